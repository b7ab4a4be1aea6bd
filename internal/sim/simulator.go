package sim

import (
	"context"
	"math"

	"github.com/san-kum/particlelab/internal/collision"
	"github.com/san-kum/particlelab/internal/integrators"
	"github.com/san-kum/particlelab/internal/models"
	"gonum.org/v1/gonum/spatial/r2"
)

// Simulator advances caller-owned ensembles with the semi-implicit Euler
// scheme, linear drag and a restitutive ground at y = 0.
type Simulator struct {
	cfg        Config
	force      *models.LinearDrag
	integrator *integrators.SymplecticEuler
	ground     collision.Ground
	metrics    []Metric
	observers  []Observer
	step       int
}

func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		cfg:        cfg,
		force:      models.NewLinearDrag(cfg.Gravity, cfg.Drag),
		integrator: integrators.NewSymplecticEuler(),
		ground:     collision.Ground{Restitution: cfg.Restitution},
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}, nil
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Config() Config { return s.cfg }

// Step advances e by one timestep in place and returns its measurement.
func (s *Simulator) Step(e *Ensemble) Record {
	s.integrator.Step(s.force, e.Position, e.Velocity, s.cfg.Dt)
	contact := s.ground.Resolve(e.Position, e.Velocity)

	r := Measure(e, s.cfg.Gravity)
	r.Step = s.step
	r.Time = float64(s.step) * s.cfg.Dt
	r.MaxPenetration = contact.MaxPenetration
	r.BounceCount = contact.Hits
	s.step++

	for _, m := range s.metrics {
		m.Observe(r)
	}
	for _, o := range s.observers {
		o.OnStep(e, r)
	}
	return r
}

// Reset rewinds the step counter and the attached metrics.
func (s *Simulator) Reset() {
	s.step = 0
	for _, m := range s.metrics {
		m.Reset()
	}
}

// Run resets the simulator and performs cfg.Steps steps on a private copy of
// initial. The returned result holds one record per completed step.
func (s *Simulator) Run(ctx context.Context, initial *Ensemble) (*Result, error) {
	if initial == nil || initial.Len() == 0 {
		return nil, ErrEmptyEnsemble
	}
	s.Reset()

	e := initial.Clone()
	result := &Result{
		Config:  s.cfg,
		Records: make([]Record, 0, s.cfg.Steps),
		Metrics: make(map[string]float64),
	}

	for i := 0; i < s.cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			result.Final = e
			return result, ctx.Err()
		default:
		}

		r := s.Step(e)
		result.Records = append(result.Records, r)

		if s.cfg.ValidateState && !e.IsValid() {
			result.Final = e
			s.collect(result)
			return result, &StepError{Step: r.Step, Time: r.Time, Wrapped: ErrUnstable}
		}
	}

	result.Final = e
	s.collect(result)
	return result, nil
}

func (s *Simulator) collect(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// Run is a convenience for New(cfg) followed by Run.
func Run(ctx context.Context, initial *Ensemble, cfg Config) (*Result, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, initial)
}

// Measure reduces e to its total mechanical energy and maximum speed, with
// unit mass and the potential measured from y = 0. A NaN speed makes the
// maximum NaN. It does not modify e.
func Measure(e *Ensemble, gravity r2.Vec) Record {
	var r Record
	for i := range e.Position {
		v := e.Velocity[i]
		kinetic := 0.5 * r2.Norm2(v)
		potential := -gravity.Y * e.Position[i].Y
		r.TotalEnergy += kinetic + potential

		r.MaxSpeed = math.Max(r.MaxSpeed, r2.Norm(v))
	}
	return r
}
