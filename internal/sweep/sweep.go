// Package sweep runs families of simulations that differ in one or more
// parameters, all starting from the same initial conditions.
package sweep

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/particlelab/internal/experiment"
	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/sim"
	"go.uber.org/zap"
)

// Point is one completed run of a sweep.
type Point struct {
	Param   string
	Value   float64
	Params  map[string]float64
	Result  *sim.Result
	Summary metrics.Summary
}

type Runner struct {
	registry *experiment.Registry
	logger   *zap.Logger
	limit    int
}

// NewRunner returns a runner that executes at most limit runs at once; a
// limit <= 0 means no bound.
func NewRunner(registry *experiment.Registry, logger *zap.Logger, limit int) *Runner {
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{registry: registry, logger: logger, limit: limit}
}

// Sweep runs base once per value of param. Points come back in the order of
// values.
func (r *Runner) Sweep(ctx context.Context, initial *sim.Ensemble, base sim.Config, param string, values []float64) ([]Point, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("sweep %s: no values", param)
	}

	cfgs := make([]sim.Config, len(values))
	for i, v := range values {
		cfg, err := r.registry.Apply(base, param, v)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", param, v, err)
		}
		cfgs[i] = cfg
	}

	r.logger.Info("sweep started",
		zap.String("param", param),
		zap.Int("points", len(values)),
		zap.Int("particles", initial.Len()),
	)

	results, err := sim.RunAll(ctx, initial, cfgs, r.limit, attachMetrics)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", param, err)
	}

	points := make([]Point, len(values))
	for i, res := range results {
		points[i] = Point{
			Param:   param,
			Value:   values[i],
			Params:  map[string]float64{param: values[i]},
			Result:  res,
			Summary: metrics.Summarize(res.Records, res.Config),
		}
		r.logPoint(points[i])
	}
	return points, nil
}

// Grid runs the cartesian product of the given parameter values. Names and
// ranges are index-aligned.
func (r *Runner) Grid(ctx context.Context, initial *sim.Ensemble, base sim.Config, names []string, ranges [][]float64) ([]Point, error) {
	if len(names) != len(ranges) || len(names) == 0 {
		return nil, fmt.Errorf("grid: %d names for %d ranges", len(names), len(ranges))
	}

	var (
		cfgs   []sim.Config
		params []map[string]float64
	)
	var build func(depth int, cfg sim.Config, current map[string]float64) error
	build = func(depth int, cfg sim.Config, current map[string]float64) error {
		if depth == len(names) {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("grid %v: %w", current, err)
			}
			cfgs = append(cfgs, cfg)
			params = append(params, current)
			return nil
		}
		for _, v := range ranges[depth] {
			next, err := r.registry.Apply(cfg, names[depth], v)
			if err != nil {
				return err
			}
			p := make(map[string]float64, len(current)+1)
			for k, val := range current {
				p[k] = val
			}
			p[names[depth]] = v
			if err := build(depth+1, next, p); err != nil {
				return err
			}
		}
		return nil
	}
	if err := build(0, base, map[string]float64{}); err != nil {
		return nil, err
	}

	r.logger.Info("grid started", zap.Strings("params", names), zap.Int("points", len(cfgs)))

	results, err := sim.RunAll(ctx, initial, cfgs, r.limit, attachMetrics)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}

	points := make([]Point, len(results))
	for i, res := range results {
		points[i] = Point{
			Param:   names[0],
			Value:   params[i][names[0]],
			Params:  params[i],
			Result:  res,
			Summary: metrics.Summarize(res.Records, res.Config),
		}
		r.logPoint(points[i])
	}
	return points, nil
}

func (r *Runner) logPoint(p Point) {
	r.logger.Debug("sweep point",
		zap.Any("params", p.Params),
		zap.Float64("drift", p.Summary.EnergyDrift),
		zap.Float64("drift_rate", p.Summary.DriftRate),
		zap.Float64("max_penetration", p.Summary.MaxPenetration),
		zap.Float64("alpha", p.Summary.Alpha),
	)
}

func attachMetrics(s *sim.Simulator) {
	for _, m := range experiment.DefaultMetrics() {
		s.AddMetric(m)
	}
}

// Best returns the point minimising the named run metric.
func Best(points []Point, metric string) (Point, bool) {
	best := math.Inf(1)
	idx := -1
	for i, p := range points {
		v, ok := p.Result.Metrics[metric]
		if !ok {
			continue
		}
		if v < best {
			best = v
			idx = i
		}
	}
	if idx < 0 {
		return Point{}, false
	}
	return points[idx], true
}

// Critical returns the largest swept value whose absolute drift rate stays
// within tol.
func Critical(points []Point, tol float64) (float64, bool) {
	found := false
	critical := math.Inf(-1)
	for _, p := range points {
		if math.Abs(p.Summary.DriftRate) <= tol && p.Value > critical {
			critical = p.Value
			found = true
		}
	}
	return critical, found
}
