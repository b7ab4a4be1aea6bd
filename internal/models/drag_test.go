package models

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestLinearDragAcceleration(t *testing.T) {
	d := NewLinearDrag(r2.Vec{X: 0, Y: -9.8}, 0.5)

	a := d.Acceleration(r2.Vec{X: 2, Y: -4})
	if math.Abs(a.X+1) > 1e-12 || math.Abs(a.Y+7.8) > 1e-12 {
		t.Errorf("acceleration = %v, want (-1, -7.8)", a)
	}
}

func TestLinearDragWithoutDragIsGravity(t *testing.T) {
	g := r2.Vec{X: 0, Y: -9.8}
	d := NewLinearDrag(g, 0)

	for _, v := range []r2.Vec{{}, {X: 3, Y: -7}, {X: -1e9, Y: 1e9}} {
		a := d.Acceleration(v)
		if math.Float64bits(a.X) != math.Float64bits(g.X) || math.Float64bits(a.Y) != math.Float64bits(g.Y) {
			t.Errorf("v=%v: acceleration %v, want %v bit for bit", v, a, g)
		}
	}
}

func TestLinearDragEquilibrium(t *testing.T) {
	d := NewLinearDrag(r2.Vec{X: 0, Y: -9.8}, 2)

	vt := d.TerminalSpeed()
	if vt != 4.9 {
		t.Errorf("terminal speed = %f, want 4.9", vt)
	}

	a := d.Acceleration(r2.Vec{X: 0, Y: -vt})
	if math.Abs(a.Y) > 1e-12 {
		t.Errorf("acceleration at terminal speed = %v, want 0", a)
	}

	if !math.IsInf(NewLinearDrag(r2.Vec{Y: -9.8}, 0).TerminalSpeed(), 1) {
		t.Error("terminal speed without drag should be +Inf")
	}
}
