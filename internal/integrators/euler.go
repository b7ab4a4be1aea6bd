package integrators

import "gonum.org/v1/gonum/spatial/r2"

// Accelerator gives the acceleration of a unit-mass particle moving with
// velocity v.
type Accelerator interface {
	Acceleration(v r2.Vec) r2.Vec
}

// SymplecticEuler is the semi-implicit Euler scheme: velocity first, then
// position from the updated velocity. First order and only conditionally
// stable.
type SymplecticEuler struct{}

func NewSymplecticEuler() *SymplecticEuler {
	return &SymplecticEuler{}
}

// Step advances every particle independently by dt, in place. The
// acceleration is evaluated on the velocity at the start of the step.
func (e *SymplecticEuler) Step(f Accelerator, pos, vel []r2.Vec, dt float64) {
	for i := range vel {
		a := f.Acceleration(vel[i])
		vel[i] = r2.Add(vel[i], r2.Scale(dt, a))
		pos[i] = r2.Add(pos[i], r2.Scale(dt, vel[i]))
	}
}
