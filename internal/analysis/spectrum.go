package analysis

import (
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// Peak is one bin of a one-sided power spectrum.
type Peak struct {
	Frequency float64
	Period    float64
	Power     float64
}

// PowerSpectrum returns the magnitude of the one-sided spectrum of data with
// its mean removed, together with the bin spacing for samples dt apart.
func PowerSpectrum(data []float64, dt float64) ([]float64, float64) {
	n := len(data)
	if n < 2 || dt <= 0 {
		return nil, 0
	}

	mean := stat.Mean(data, nil)
	centered := make([]float64, n)
	for i, v := range data {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	ps := make([]float64, n/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps, 1 / (float64(n) * dt)
}

// Peaks returns the k strongest local maxima of the spectrum, strongest first.
// The zero-frequency bin is never reported.
func Peaks(data []float64, dt float64, k int) []Peak {
	ps, df := PowerSpectrum(data, dt)
	if len(ps) < 3 {
		return nil
	}

	var peaks []Peak
	for i := 1; i < len(ps); i++ {
		left := ps[i-1]
		right := 0.0
		if i+1 < len(ps) {
			right = ps[i+1]
		}
		if ps[i] > left && ps[i] >= right && ps[i] > 0 {
			f := float64(i) * df
			peaks = append(peaks, Peak{Frequency: f, Period: 1 / f, Power: ps[i]})
		}
	}

	sort.Slice(peaks, func(a, b int) bool { return peaks[a].Power > peaks[b].Power })
	if len(peaks) > k {
		peaks = peaks[:k]
	}
	return peaks
}

// DominantPeriod returns the period of the strongest spectral peak.
func DominantPeriod(data []float64, dt float64) (float64, bool) {
	peaks := Peaks(data, dt, 1)
	if len(peaks) == 0 {
		return 0, false
	}
	return peaks[0].Period, true
}
