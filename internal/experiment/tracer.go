package experiment

import (
	"github.com/san-kum/particlelab/internal/sim"
	"go.uber.org/zap"
)

// Tracer logs a record every Every steps at debug level.
type Tracer struct {
	logger *zap.Logger
	every  int
}

func NewTracer(logger *zap.Logger, every int) *Tracer {
	if every <= 0 {
		every = 1
	}
	return &Tracer{logger: logger, every: every}
}

func (t *Tracer) OnStep(e *sim.Ensemble, r sim.Record) {
	if r.Step%t.every != 0 {
		return
	}
	t.logger.Debug("step",
		zap.Int("step", r.Step),
		zap.Float64("time", r.Time),
		zap.Float64("energy", r.TotalEnergy),
		zap.Float64("max_speed", r.MaxSpeed),
		zap.Float64("max_penetration", r.MaxPenetration),
		zap.Int("bounces", r.BounceCount),
		zap.Bool("above_ground", e.AboveGround()),
	)
}
