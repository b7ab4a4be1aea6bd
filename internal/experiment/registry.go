package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/sim"
)

// Setter applies a sweep value to a run configuration.
type Setter func(cfg *sim.Config, value float64)

type Registry struct {
	params map[string]Setter
}

func NewRegistry() *Registry {
	r := &Registry{params: make(map[string]Setter)}

	r.params["dt"] = func(cfg *sim.Config, v float64) { cfg.Dt = v }
	r.params["drag"] = func(cfg *sim.Config, v float64) { cfg.Drag = v }
	r.params["restitution"] = func(cfg *sim.Config, v float64) { cfg.Restitution = v }
	r.params["gravity"] = func(cfg *sim.Config, v float64) { cfg.Gravity.Y = -v }

	return r
}

func (r *Registry) Register(name string, fn Setter) {
	r.params[name] = fn
}

func (r *Registry) GetParam(name string) (Setter, error) {
	fn, ok := r.params[name]
	if !ok {
		return nil, fmt.Errorf("unknown parameter: %s", name)
	}
	return fn, nil
}

// Apply returns a copy of base with the named parameter set to value.
func (r *Registry) Apply(base sim.Config, name string, value float64) (sim.Config, error) {
	fn, err := r.GetParam(name)
	if err != nil {
		return base, err
	}
	fn(&base, value)
	return base, nil
}

func (r *Registry) ListParams() []string {
	names := make([]string, 0, len(r.params))
	for name := range r.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func DefaultMetrics() []sim.Metric {
	return []sim.Metric{
		metrics.NewEnergyDrift(),
		metrics.NewPeakSpeed(),
		metrics.NewPenetration(),
		metrics.NewBounces(),
	}
}
