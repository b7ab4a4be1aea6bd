package automation

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/san-kum/particlelab/internal/config"
	"github.com/san-kum/particlelab/internal/experiment"
	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/sim"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset (or the defaults) and applies the fields
// given under config.
type ScenarioStep struct {
	Preset string    `yaml:"preset"`
	Config yaml.Node `yaml:"config"`
	SaveAs string    `yaml:"save_as"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Name    string
	Config  *config.Config
	Result  *sim.Result
	Summary metrics.Summary
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}

	return &scenario, nil
}

// Resolve builds the configuration of a step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	if !s.Config.IsZero() {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, err
		}
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in order. Results of the steps completed
// before a failure are returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario, logger *zap.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("name", cfg.Name),
		)

		exp, err := experiment.New(cfg)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := exp.Setup(experiment.DefaultMetrics()); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{
			Name:    cfg.Name,
			Config:  cfg,
			Result:  result,
			Summary: metrics.Summarize(result.Records, result.Config),
		})
	}

	return results, nil
}

// MonteCarloConfig repeats one configuration over Trials seeds, starting at
// Seed.
type MonteCarloConfig struct {
	Base   *config.Config
	Trials int
	Seed   int64
}

// MonteCarloResult holds the outcome of one trial
type MonteCarloResult struct {
	TrialID int
	Seed    int64
	Summary metrics.Summary
	Stable  bool // every recorded quantity stayed finite
}

// RunMonteCarlo runs the base configuration once per seed.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, logger *zap.Logger) ([]MonteCarloResult, error) {
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("monte carlo needs at least one trial, got %d", cfg.Trials)
	}
	results := make([]MonteCarloResult, 0, cfg.Trials)

	for trial := 0; trial < cfg.Trials; trial++ {
		trialCfg := cfg.Base.Clone()
		trialCfg.Seed = cfg.Seed + int64(trial)

		exp, err := experiment.New(trialCfg)
		if err != nil {
			return nil, err
		}
		if err := exp.Setup(nil); err != nil {
			return nil, err
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		summary := metrics.Summarize(result.Records, result.Config)
		results = append(results, MonteCarloResult{
			TrialID: trial,
			Seed:    trialCfg.Seed,
			Summary: summary,
			Stable:  result.Final.IsValid() && finite(summary),
		})

		if (trial+1)%10 == 0 {
			logger.Info("monte carlo progress", zap.Int("done", trial+1), zap.Int("trials", cfg.Trials))
		}
	}

	return results, nil
}

func finite(s metrics.Summary) bool {
	for _, v := range []float64{s.EnergyDrift, s.MaxPenetration, s.PeakSpeed} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Stats summarises the stable trials of a Monte Carlo run.
type Stats struct {
	Stable, Unstable                int
	MeanDrift, StdDrift             float64
	MeanPenetration, StdPenetration float64
	MeanPeakSpeed                   float64
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) Stats {
	var (
		s                   Stats
		drift, depth, speed []float64
	)
	for _, r := range results {
		if !r.Stable {
			s.Unstable++
			continue
		}
		s.Stable++
		drift = append(drift, r.Summary.EnergyDrift)
		depth = append(depth, r.Summary.MaxPenetration)
		speed = append(speed, r.Summary.PeakSpeed)
	}
	if s.Stable == 0 {
		return s
	}

	s.MeanDrift, s.StdDrift = stat.MeanStdDev(drift, nil)
	s.MeanPenetration, s.StdPenetration = stat.MeanStdDev(depth, nil)
	s.MeanPeakSpeed = stat.Mean(speed, nil)
	if s.Stable == 1 {
		s.StdDrift, s.StdPenetration = 0, 0
	}
	return s
}
