package sim

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

const tol = 1e-12

func single(t *testing.T, pos, vel r2.Vec) *Ensemble {
	t.Helper()
	e, err := NewEnsemble([]r2.Vec{pos}, []r2.Vec{vel})
	if err != nil {
		t.Fatalf("new ensemble: %v", err)
	}
	return e
}

func randomBox(t *testing.T, seed int64, n int) *Ensemble {
	t.Helper()
	rnd := rand.New(rand.NewSource(seed))
	pos := make([]r2.Vec, n)
	for i := range pos {
		pos[i] = r2.Vec{X: rnd.Float64() * 10, Y: rnd.Float64() * 10}
	}
	e, err := NewEnsemble(pos, make([]r2.Vec, n))
	if err != nil {
		t.Fatalf("new ensemble: %v", err)
	}
	return e
}

func TestStepFreeFall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0.1
	cfg.Restitution = 1.0
	cfg.Steps = 1

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	e := single(t, r2.Vec{X: 0, Y: 5}, r2.Vec{})
	r := s.Step(e)

	if math.Abs(e.Velocity[0].Y-(-0.98)) > tol || e.Velocity[0].X != 0 {
		t.Errorf("velocity = %v, want (0, -0.98)", e.Velocity[0])
	}
	if math.Abs(e.Position[0].Y-4.902) > tol || e.Position[0].X != 0 {
		t.Errorf("position = %v, want (0, 4.902)", e.Position[0])
	}
	if r.MaxPenetration != 0 || r.BounceCount != 0 {
		t.Errorf("unexpected contact: %+v", r)
	}

	expected := 0.5*0.98*0.98 + 9.8*4.902
	if math.Abs(r.TotalEnergy-expected) > 1e-9 {
		t.Errorf("energy = %.12f, want %.12f", r.TotalEnergy, expected)
	}
	if math.Abs(r.TotalEnergy-48.5) > 0.05 {
		t.Errorf("energy = %f, want about 48.5", r.TotalEnergy)
	}
}

func TestStepBounce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0.1
	cfg.Restitution = 0.8

	s, _ := New(cfg)
	e := single(t, r2.Vec{X: 0, Y: 0.05}, r2.Vec{X: 0, Y: -1.0})
	r := s.Step(e)

	if math.Abs(r.MaxPenetration-0.148) > tol {
		t.Errorf("max penetration = %.15f, want 0.148", r.MaxPenetration)
	}
	if r.BounceCount != 1 {
		t.Errorf("bounce count = %d, want 1", r.BounceCount)
	}
	if e.Position[0].Y != 0 {
		t.Errorf("position.y = %f, want 0", e.Position[0].Y)
	}
	if math.Abs(e.Velocity[0].Y-1.584) > tol {
		t.Errorf("velocity.y = %.15f, want 1.584", e.Velocity[0].Y)
	}

	// energy is measured on the corrected state
	expected := 0.5 * e.Velocity[0].Y * e.Velocity[0].Y
	if r.TotalEnergy != expected {
		t.Errorf("energy = %f, want %f", r.TotalEnergy, expected)
	}
}

func TestStepRestingParticleIsNotAHit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = r2.Vec{}
	s, _ := New(cfg)

	e := single(t, r2.Vec{X: 1, Y: 0}, r2.Vec{X: 2, Y: 0})
	r := s.Step(e)
	if r.BounceCount != 0 || r.MaxPenetration != 0 {
		t.Errorf("particle at y=0 flagged as hit: %+v", r)
	}
}

func TestStepLeavesHorizontalMotion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0.1
	s, _ := New(cfg)

	e := single(t, r2.Vec{X: 1, Y: 0.01}, r2.Vec{X: 2, Y: -3})
	s.Step(e)

	if e.Velocity[0].X != 2 {
		t.Errorf("velocity.x = %f, want 2", e.Velocity[0].X)
	}
	if math.Abs(e.Position[0].X-1.2) > tol {
		t.Errorf("position.x = %f, want 1.2", e.Position[0].X)
	}
}

func TestPenetrationIsMaxOverCrossers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = r2.Vec{}
	cfg.Dt = 1
	s, _ := New(cfg)

	e, _ := NewEnsemble(
		[]r2.Vec{{X: 0, Y: 0.5}, {X: 1, Y: 0.5}, {X: 2, Y: 5}},
		[]r2.Vec{{X: 0, Y: -1}, {X: 0, Y: -2.5}, {X: 0, Y: -1}},
	)
	r := s.Step(e)

	if r.BounceCount != 2 {
		t.Errorf("bounce count = %d, want 2", r.BounceCount)
	}
	if r.MaxPenetration != 2.0 {
		t.Errorf("max penetration = %f, want 2", r.MaxPenetration)
	}
	if !e.AboveGround() {
		t.Error("corrected state below ground")
	}
}

func TestGroundInvariant(t *testing.T) {
	for _, dt := range []float64{1e-3, 1e-2, 1e-1, 0.5} {
		cfg := DefaultConfig()
		cfg.Dt = dt
		cfg.Drag = 0.2
		s, _ := New(cfg)

		e := randomBox(t, 42, 25)
		for i := 0; i < 400; i++ {
			s.Step(e)
			for j, p := range e.Position {
				if p.Y < 0 {
					t.Fatalf("dt=%g step %d particle %d: y = %g", dt, i, j, p.Y)
				}
			}
		}
	}
}

func TestDragFreeIsPureGravity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0.01
	cfg.Steps = 300
	cfg.Restitution = 0.9

	noDrag, err := Run(context.Background(), randomBox(t, 7, 10), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	e := randomBox(t, 7, 10)
	for i := 0; i < cfg.Steps; i++ {
		for j := range e.Velocity {
			e.Velocity[j] = r2.Add(e.Velocity[j], r2.Scale(cfg.Dt, cfg.Gravity))
			e.Position[j] = r2.Add(e.Position[j], r2.Scale(cfg.Dt, e.Velocity[j]))
			if e.Position[j].Y < 0 {
				e.Velocity[j].Y *= -cfg.Restitution
				e.Position[j].Y = 0
			}
		}
	}

	if !reflect.DeepEqual(noDrag.Final, e) {
		t.Error("drag = 0 diverges from the gravity-only update")
	}
}

func TestEnergyConservationLimit(t *testing.T) {
	const T = 1.0
	prev := math.Inf(1)

	for _, dt := range []float64{1e-2, 5e-3, 1e-3} {
		cfg := DefaultConfig()
		cfg.Dt = dt
		cfg.Steps = int(math.Round(T / dt))
		cfg.Restitution = 1.0

		res, err := Run(context.Background(), single(t, r2.Vec{X: 0, Y: 100}, r2.Vec{}), cfg)
		if err != nil {
			t.Fatalf("run: %v", err)
		}

		first := res.Records[0].TotalEnergy
		last := res.Records[len(res.Records)-1].TotalEnergy
		drift := math.Abs(last - first)

		// free fall under semi-implicit Euler loses g^2*dt^2/2 per step
		expected := 0.5 * 9.8 * 9.8 * dt * dt * float64(cfg.Steps-1)
		if math.Abs(drift-expected) > 1e-8 {
			t.Errorf("dt=%g: drift %g, want %g", dt, drift, expected)
		}
		if drift >= prev {
			t.Errorf("dt=%g: drift %g did not shrink (previous %g)", dt, drift, prev)
		}
		if drift/first > 1e-3 {
			t.Errorf("dt=%g: relative drift %g too large", dt, drift/first)
		}
		prev = drift
	}
}

func TestMonotonicDissipation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0.01
	cfg.Drag = 0.1
	cfg.Restitution = 0.8
	cfg.Steps = 300

	res, err := Run(context.Background(), single(t, r2.Vec{X: 0, Y: 5}, r2.Vec{}), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	bounced := 0
	for i := 1; i < len(res.Records); i++ {
		prev, cur := res.Records[i-1], res.Records[i]
		if cur.BounceCount > 0 {
			bounced++
			if cur.TotalEnergy >= prev.TotalEnergy {
				t.Errorf("step %d: energy rose across bounce, %f -> %f", i, prev.TotalEnergy, cur.TotalEnergy)
			}
			continue
		}
		if cur.TotalEnergy > prev.TotalEnergy {
			t.Errorf("step %d: energy rose without bounce, %f -> %f", i, prev.TotalEnergy, cur.TotalEnergy)
		}
	}
	if bounced == 0 {
		t.Fatal("expected at least one bounce")
	}
}

func TestTerminalVelocity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0.01
	cfg.Drag = 1.0
	cfg.Steps = 2000

	res, err := Run(context.Background(), single(t, r2.Vec{X: 0, Y: 1000}, r2.Vec{}), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, r := range res.Records {
		if r.BounceCount > 0 {
			t.Fatalf("unexpected bounce at step %d", r.Step)
		}
	}

	speeds := res.Series(Speed)
	n := len(speeds)
	if d := math.Abs(speeds[n-1] - speeds[n-2]); d > 1e-6 {
		t.Errorf("max speed still changing by %g", d)
	}
	if math.Abs(speeds[n-1]-9.8) > 1e-6 {
		t.Errorf("terminal speed = %f, want 9.8", speeds[n-1])
	}
}

func TestDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0.05
	cfg.Drag = 0.1
	cfg.Steps = 500

	initial := randomBox(t, 42, 10)
	a, err := Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !reflect.DeepEqual(a.Records, b.Records) {
		t.Error("identical inputs produced different records")
	}
}

func TestRunDoesNotMutateInitial(t *testing.T) {
	initial := randomBox(t, 1, 5)
	before := initial.Clone()

	if _, err := Run(context.Background(), initial, DefaultConfig()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(initial, before) {
		t.Error("run mutated its initial conditions")
	}
}

func TestRunRecordCount(t *testing.T) {
	for _, steps := range []int{0, 1, 37} {
		cfg := DefaultConfig()
		cfg.Steps = steps
		res, err := Run(context.Background(), randomBox(t, 3, 4), cfg)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(res.Records) != steps {
			t.Errorf("steps=%d: got %d records", steps, len(res.Records))
		}
		for i, r := range res.Records {
			if r.Step != i {
				t.Errorf("record %d has step %d", i, r.Step)
			}
			if r.Time != float64(i)*cfg.Dt {
				t.Errorf("record %d has time %g, want %g", i, r.Time, float64(i)*cfg.Dt)
			}
		}
	}
}

func TestRunInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Steps: 10}},
		{"negative dt", Config{Dt: -0.1, Steps: 10}},
		{"negative steps", Config{Dt: 0.1, Steps: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), randomBox(t, 1, 2), tt.cfg)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRunValidateState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = r2.Vec{X: 0, Y: -math.MaxFloat64}
	cfg.Dt = 10
	cfg.Steps = 10
	cfg.ValidateState = true

	res, err := Run(context.Background(), single(t, r2.Vec{X: 0, Y: 1}, r2.Vec{}), cfg)
	var stepErr *StepError
	if !errors.As(err, &stepErr) || !errors.Is(err, ErrUnstable) {
		t.Fatalf("expected unstable step error, got %v", err)
	}
	if len(res.Records) != stepErr.Step+1 {
		t.Errorf("got %d records for failure at step %d", len(res.Records), stepErr.Step)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, randomBox(t, 1, 2), DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type countingMetric struct {
	count int
}

func (c *countingMetric) Name() string     { return "count" }
func (c *countingMetric) Observe(r Record) { c.count++ }
func (c *countingMetric) Value() float64   { return float64(c.count) }
func (c *countingMetric) Reset()           { c.count = 0 }

func TestSimulatorMetrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Steps = 10
	s, _ := New(cfg)

	metric := &countingMetric{}
	s.AddMetric(metric)

	res, err := s.Run(context.Background(), randomBox(t, 1, 3))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Metrics["count"] != 10 {
		t.Errorf("expected 10 observations, got %f", res.Metrics["count"])
	}

	res, _ = s.Run(context.Background(), randomBox(t, 1, 3))
	if res.Metrics["count"] != 10 {
		t.Errorf("metric not reset between runs: %f", res.Metrics["count"])
	}
}

func TestRunAllIsolatesSweepPoints(t *testing.T) {
	initial := randomBox(t, 42, 10)
	before := initial.Clone()

	var cfgs []Config
	for _, dt := range []float64{1e-3, 1e-2, 1e-1} {
		cfg := DefaultConfig()
		cfg.Dt = dt
		cfg.Steps = 200
		cfgs = append(cfgs, cfg)
	}

	results, err := RunAll(context.Background(), initial, cfgs, 2, nil)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if !reflect.DeepEqual(initial, before) {
		t.Error("sweep mutated shared initial conditions")
	}

	for i, cfg := range cfgs {
		solo, _ := Run(context.Background(), before, cfg)
		if !reflect.DeepEqual(results[i].Records, solo.Records) {
			t.Errorf("point %d differs from a standalone run", i)
		}
	}
}

func TestRunAllPropagatesErrors(t *testing.T) {
	cfgs := []Config{DefaultConfig(), {Dt: 0, Steps: 1}}
	if _, err := RunAll(context.Background(), randomBox(t, 1, 2), cfgs, 0, nil); !errors.Is(err, ErrInvalidTimestep) {
		t.Errorf("expected ErrInvalidTimestep, got %v", err)
	}
}
