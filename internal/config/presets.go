package config

import "sort"

var presetGravity = [2]float64{0, DefaultGravityY}

// Presets reproduce the experiment series: basic bounce, per-step
// measurements, the timestep study and the two drag studies.
var Presets = map[string]*Config{
	"basic": {
		Name: "basic", Particles: 10, Box: 10, Seed: 42, Gravity: presetGravity,
		Dt: 0.1, Steps: 200, Restitution: 0.8,
	},
	"measure": {
		Name: "measure", Particles: 10, Box: 10, Seed: 42, Gravity: presetGravity,
		Dt: 0.1, Steps: 200, Restitution: 0.8, TrackBounces: true,
	},
	"dt-sweep": {
		Name: "dt-sweep", Particles: 10, Box: 10, Seed: 42, Gravity: presetGravity,
		Dt: 1e-3, Steps: 500, Restitution: 1.0,
		Sweep: SweepConfig{Param: "dt", Values: []float64{1e-3, 2e-3, 5e-3, 1e-2, 2e-2, 5e-2, 1e-1}},
	},
	"drag": {
		Name: "drag", Particles: 10, Box: 10, Seed: 42, Gravity: presetGravity,
		Dt: 1e-2, Steps: 500, Drag: 0.1, Restitution: 0.8,
	},
	"drag-sweep": {
		Name: "drag-sweep", Particles: 10, Box: 10, Seed: 42, Gravity: presetGravity,
		Dt: 1e-2, Steps: 500, Drag: 0.1, Restitution: 0.8,
		Sweep: SweepConfig{Param: "drag", Values: []float64{0.05, 0.1, 0.2, 0.5}},
	},
}

// GetPreset returns a private copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
