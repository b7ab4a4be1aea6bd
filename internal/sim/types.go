package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Ensemble is a fixed-size population of unit-mass particles. Position[i]
// and Velocity[i] always describe the same particle.
type Ensemble struct {
	Position []r2.Vec
	Velocity []r2.Vec
}

// NewEnsemble copies pos and vel into a new ensemble. The two slices must
// have the same, non-zero length.
func NewEnsemble(pos, vel []r2.Vec) (*Ensemble, error) {
	if len(pos) != len(vel) {
		return nil, fmt.Errorf("%w: %d positions, %d velocities", ErrDimensionMismatch, len(pos), len(vel))
	}
	if len(pos) == 0 {
		return nil, ErrEmptyEnsemble
	}
	e := &Ensemble{
		Position: make([]r2.Vec, len(pos)),
		Velocity: make([]r2.Vec, len(vel)),
	}
	copy(e.Position, pos)
	copy(e.Velocity, vel)
	return e, nil
}

func (e *Ensemble) Len() int { return len(e.Position) }

// Clone returns a deep copy that shares no memory with e.
func (e *Ensemble) Clone() *Ensemble {
	c := &Ensemble{
		Position: make([]r2.Vec, len(e.Position)),
		Velocity: make([]r2.Vec, len(e.Velocity)),
	}
	copy(c.Position, e.Position)
	copy(c.Velocity, e.Velocity)
	return c
}

// IsValid reports whether every coordinate is finite.
func (e *Ensemble) IsValid() bool {
	for i := range e.Position {
		if !finite(e.Position[i]) || !finite(e.Velocity[i]) {
			return false
		}
	}
	return true
}

// AboveGround reports whether no particle sits below y = 0.
func (e *Ensemble) AboveGround() bool {
	for _, p := range e.Position {
		if p.Y < 0 {
			return false
		}
	}
	return true
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Config is the immutable parameter set of one run.
type Config struct {
	Gravity     r2.Vec
	Dt          float64
	Steps       int
	Drag        float64
	Restitution float64

	// TrackBounces asks consumers to keep the per-step bounce count.
	TrackBounces bool
	// ValidateState stops a run at the first non-finite state.
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Gravity:     r2.Vec{X: 0, Y: -9.8},
		Dt:          0.01,
		Steps:       500,
		Drag:        0,
		Restitution: 0.8,
	}
}

// Validate checks the preconditions of a run. Restitution is not checked:
// values above 1 and below 0 are accepted.
func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidTimestep, c.Dt)
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeSteps, c.Steps)
	}
	if c.Drag < 0 || math.IsNaN(c.Drag) {
		return fmt.Errorf("%w: drag coefficient %g", ErrParameterBounds, c.Drag)
	}
	if !finite(c.Gravity) {
		return fmt.Errorf("%w: gravity %v", ErrParameterBounds, c.Gravity)
	}
	return nil
}

// Duration is the simulated time covered by a full run.
func (c Config) Duration() float64 {
	return c.Dt * float64(c.Steps)
}

// Record is the measurement emitted after one step. Energy and speed describe
// the corrected state; MaxPenetration is taken before ground correction.
// Time is Step·dt, so the first record sits at t = 0.
type Record struct {
	Step           int     `json:"step"`
	Time           float64 `json:"time"`
	TotalEnergy    float64 `json:"total_energy"`
	MaxSpeed       float64 `json:"max_speed"`
	MaxPenetration float64 `json:"max_penetration"`
	BounceCount    int     `json:"bounce_count"`
}

type Result struct {
	Config  Config
	Records []Record
	Final   *Ensemble
	Metrics map[string]float64
}

// Series extracts one field of every record.
func (r *Result) Series(field func(Record) float64) []float64 {
	out := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		out[i] = field(rec)
	}
	return out
}

func Energy(r Record) float64      { return r.TotalEnergy }
func Speed(r Record) float64       { return r.MaxSpeed }
func Penetration(r Record) float64 { return r.MaxPenetration }

type Metric interface {
	Name() string
	Observe(r Record)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(e *Ensemble, r Record)
}
