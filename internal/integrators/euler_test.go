package integrators

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

type constant struct{ a r2.Vec }

func (c constant) Acceleration(v r2.Vec) r2.Vec { return c.a }

type damping struct{ c float64 }

func (d damping) Acceleration(v r2.Vec) r2.Vec { return r2.Scale(-d.c, v) }

func TestSymplecticEulerOrdering(t *testing.T) {
	integ := NewSymplecticEuler()
	pos := []r2.Vec{{X: 0, Y: 10}}
	vel := []r2.Vec{{X: 1, Y: 0}}

	integ.Step(constant{r2.Vec{X: 0, Y: -10}}, pos, vel, 0.5)

	// velocity first, then position from the new velocity
	if vel[0] != (r2.Vec{X: 1, Y: -5}) {
		t.Errorf("velocity = %v, want (1, -5)", vel[0])
	}
	if pos[0] != (r2.Vec{X: 0.5, Y: 7.5}) {
		t.Errorf("position = %v, want (0.5, 7.5) (explicit Euler would give (0.5, 10))", pos[0])
	}
}

func TestSymplecticEulerUsesStartVelocity(t *testing.T) {
	integ := NewSymplecticEuler()
	pos := []r2.Vec{{}}
	vel := []r2.Vec{{X: 2, Y: 0}}

	integ.Step(damping{c: 1}, pos, vel, 0.25)

	if math.Abs(vel[0].X-1.5) > 1e-15 {
		t.Errorf("velocity.x = %f, want 1.5", vel[0].X)
	}
}

func TestSymplecticEulerIndependentParticles(t *testing.T) {
	integ := NewSymplecticEuler()
	pos := []r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 10}}
	vel := []r2.Vec{{X: 1, Y: 1}, {X: -1, Y: 0}}

	integ.Step(constant{}, pos, vel, 1)

	if pos[0] != (r2.Vec{X: 1, Y: 1}) || pos[1] != (r2.Vec{X: 9, Y: 10}) {
		t.Errorf("positions = %v", pos)
	}
}

func TestSymplecticEulerFirstOrder(t *testing.T) {
	integ := NewSymplecticEuler()
	// dv/dt = -v from v=1; exact v(1) = e^-1
	errAt := func(dt float64) float64 {
		pos := []r2.Vec{{}}
		vel := []r2.Vec{{X: 1}}
		for i := 0; i < int(math.Round(1/dt)); i++ {
			integ.Step(damping{c: 1}, pos, vel, dt)
		}
		return math.Abs(vel[0].X - math.Exp(-1))
	}

	ratio := errAt(0.01) / errAt(0.005)
	if ratio < 1.8 || ratio > 2.2 {
		t.Errorf("halving dt changed error by %.2f, want about 2", ratio)
	}
}
