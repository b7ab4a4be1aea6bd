package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/san-kum/particlelab/internal/config"
	"github.com/san-kum/particlelab/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// UniformBox places n particles at rest, uniformly in [0,size)², drawing x
// then y for each particle from a source seeded with seed.
func UniformBox(seed int64, n int, size float64) (*sim.Ensemble, error) {
	if n <= 0 {
		return nil, sim.ErrEmptyEnsemble
	}
	rng := rand.New(rand.NewSource(seed))

	pos := make([]r2.Vec, n)
	for i := range pos {
		x := rng.Float64() * size
		y := rng.Float64() * size
		pos[i] = r2.Vec{X: x, Y: y}
	}
	return &sim.Ensemble{Position: pos, Velocity: make([]r2.Vec, n)}, nil
}

type Experiment struct {
	cfg       *config.Config
	initial   *sim.Ensemble
	simulator *sim.Simulator
}

func New(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	initial, err := UniformBox(cfg.Seed, cfg.Particles, cfg.Box)
	if err != nil {
		return nil, err
	}
	return &Experiment{cfg: cfg, initial: initial}, nil
}

func (e *Experiment) Setup(metrics []sim.Metric, observers ...sim.Observer) error {
	s, err := sim.New(e.cfg.SimConfig())
	if err != nil {
		return err
	}
	for _, m := range metrics {
		s.AddMetric(m)
	}
	for _, o := range observers {
		s.AddObserver(o)
	}
	e.simulator = s
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.initial)
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Initial returns the experiment's initial conditions. Callers must not
// modify them; runs always work on a copy.
func (e *Experiment) Initial() *sim.Ensemble { return e.initial }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}
