package metrics

import (
	"math"

	"github.com/san-kum/particlelab/internal/sim"
	"gonum.org/v1/gonum/floats"
)

// Summary holds the derived quantities of one run.
type Summary struct {
	InitialEnergy  float64 `json:"initial_energy" yaml:"initial_energy"`
	FinalEnergy    float64 `json:"final_energy" yaml:"final_energy"`
	EnergyDrift    float64 `json:"energy_drift" yaml:"energy_drift"`
	DriftRate      float64 `json:"energy_drift_rate" yaml:"energy_drift_rate"`
	MaxPenetration float64 `json:"max_penetration" yaml:"max_penetration"`
	PeakSpeed      float64 `json:"peak_speed" yaml:"peak_speed"`
	Alpha          float64 `json:"alpha" yaml:"alpha"`
	Bounces        int     `json:"bounces" yaml:"bounces"`
}

// Summarize derives a Summary from the records of a run made with cfg.
func Summarize(records []sim.Record, cfg sim.Config) Summary {
	if len(records) == 0 {
		return Summary{}
	}

	energy := make([]float64, len(records))
	speed := make([]float64, len(records))
	depth := make([]float64, len(records))
	bounces := 0
	for i, r := range records {
		energy[i] = r.TotalEnergy
		speed[i] = r.MaxSpeed
		depth[i] = r.MaxPenetration
		bounces += r.BounceCount
	}

	peak := maxOf(speed)
	return Summary{
		InitialEnergy:  energy[0],
		FinalEnergy:    energy[len(energy)-1],
		EnergyDrift:    Drift(records),
		DriftRate:      DriftRate(records, cfg.Dt),
		MaxPenetration: maxOf(depth),
		PeakSpeed:      peak,
		Alpha:          Alpha(cfg.Gravity.Y, cfg.Dt, peak),
		Bounces:        bounces,
	}
}

// maxOf is floats.Max except that a NaN anywhere in s is the result, so a
// diverged step is never hidden behind a finite maximum.
func maxOf(s []float64) float64 {
	if floats.HasNaN(s) {
		return math.NaN()
	}
	return floats.Max(s)
}
