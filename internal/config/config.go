package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/particlelab/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultName        = "particles"
	DefaultParticles   = 10
	DefaultBox         = 10.0
	DefaultSeed        = 42
	DefaultGravityY    = -9.8
	DefaultDt          = 0.01
	DefaultSteps       = 500
	DefaultRestitution = 0.8
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the on-disk description of an experiment: initial conditions,
// run parameters and an optional sweep.
type Config struct {
	Name          string      `yaml:"name"`
	Particles     int         `yaml:"particles"`
	Box           float64     `yaml:"box"`
	Seed          int64       `yaml:"seed"`
	Gravity       [2]float64  `yaml:"gravity,flow"`
	Dt            float64     `yaml:"dt"`
	Steps         int         `yaml:"steps"`
	Drag          float64     `yaml:"drag"`
	Restitution   float64     `yaml:"restitution"`
	TrackBounces  bool        `yaml:"track_bounces"`
	ValidateState bool        `yaml:"validate_state"`
	Sweep         SweepConfig `yaml:"sweep,omitempty"`
}

type SweepConfig struct {
	Param  string    `yaml:"param,omitempty"`
	Values []float64 `yaml:"values,omitempty,flow"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:        DefaultName,
		Particles:   DefaultParticles,
		Box:         DefaultBox,
		Seed:        DefaultSeed,
		Gravity:     [2]float64{0, DefaultGravityY},
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
		Restitution: DefaultRestitution,
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of a copy of base: fields absent from the file
// keep the values of base.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

// Clone returns a copy that does not share the sweep values.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Sweep.Values = append([]float64(nil), c.Sweep.Values...)
	return &cp
}

func (c *Config) Validate() error {
	if c.Particles <= 0 {
		return fmt.Errorf("%w: particles must be positive, got %d", ErrInvalidConfig, c.Particles)
	}
	if !(c.Box > 0) {
		return fmt.Errorf("%w: box must be positive, got %g", ErrInvalidConfig, c.Box)
	}
	if err := c.SimConfig().Validate(); err != nil {
		return err
	}
	if c.Sweep.Param != "" && len(c.Sweep.Values) == 0 {
		return fmt.Errorf("%w: sweep over %q has no values", ErrInvalidConfig, c.Sweep.Param)
	}
	return nil
}

// SimConfig returns the run parameters of c.
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Gravity:       r2.Vec{X: c.Gravity[0], Y: c.Gravity[1]},
		Dt:            c.Dt,
		Steps:         c.Steps,
		Drag:          c.Drag,
		Restitution:   c.Restitution,
		TrackBounces:  c.TrackBounces,
		ValidateState: c.ValidateState,
	}
}
