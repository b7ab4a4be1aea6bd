package metrics

import (
	"math"

	"github.com/san-kum/particlelab/internal/models"
	"gonum.org/v1/gonum/spatial/r2"
)

// TerminalSpeed is |g|/c for linear drag, +Inf when c is 0.
func TerminalSpeed(gravity r2.Vec, drag float64) float64 {
	return models.NewLinearDrag(gravity, drag).TerminalSpeed()
}

// Converged reports whether the last window successive differences of series
// are all below tol.
func Converged(series []float64, window int, tol float64) bool {
	if window < 1 || len(series) < window+1 {
		return false
	}
	tail := series[len(series)-window-1:]
	for i := 1; i < len(tail); i++ {
		if math.Abs(tail[i]-tail[i-1]) >= tol {
			return false
		}
	}
	return true
}
