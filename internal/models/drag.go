package models

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// LinearDrag is uniform gravity plus Stokes drag on unit-mass particles.
type LinearDrag struct {
	Gravity     r2.Vec
	Coefficient float64
}

func NewLinearDrag(gravity r2.Vec, coefficient float64) *LinearDrag {
	return &LinearDrag{
		Gravity:     gravity,
		Coefficient: coefficient,
	}
}

// Acceleration returns gravity - c*v. With c = 0 this is exactly Gravity.
func (d *LinearDrag) Acceleration(v r2.Vec) r2.Vec {
	return r2.Sub(d.Gravity, r2.Scale(d.Coefficient, v))
}

// TerminalSpeed is |g|/c, or +Inf without drag.
func (d *LinearDrag) TerminalSpeed() float64 {
	if d.Coefficient == 0 {
		return math.Inf(1)
	}
	return r2.Norm(d.Gravity) / d.Coefficient
}
