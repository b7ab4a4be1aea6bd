package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/san-kum/particlelab/internal/analysis"
	"github.com/san-kum/particlelab/internal/automation"
	"github.com/san-kum/particlelab/internal/experiment"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadRecords(runID)
	if err != nil {
		return err
	}

	res := &sim.Result{Records: records}
	peaks := analysis.Peaks(res.Series(sim.Speed), meta.Dt, numPeaks)
	if len(peaks) == 0 {
		fmt.Println("no periodic content found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FREQ (Hz)\tPERIOD (s)\tPOWER")
	for _, p := range peaks {
		fmt.Fprintf(w, "%.4f\t%.4f\t%.4g\n", p.Frequency, p.Period, p.Power)
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunScenario(ctx, scenario, logger)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tNAME\tDRIFT\tMAX PEN\tPEAK SPEED\tRUN ID")
	for i, r := range results {
		runID := "-"
		if !noSave {
			info := storage.RunInfo{Name: r.Name, Seed: r.Config.Seed, Particles: r.Config.Particles}
			if runID, err = st.Save(info, r.Result); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%.6g\t%.6g\t%.6g\t%s\n", i+1, r.Name, r.Summary.EnergyDrift, r.Summary.MaxPenetration, r.Summary.PeakSpeed, runID)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:   cfg,
		Trials: trials,
		Seed:   cfg.Seed,
	}, logger)
	if err != nil {
		return err
	}

	s := automation.MonteCarloStats(results)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "trials\t%d (%d unstable)\n", len(results), s.Unstable)
	fmt.Fprintf(w, "energy drift\t%.6g ± %.3g\n", s.MeanDrift, s.StdDrift)
	fmt.Fprintf(w, "max penetration\t%.6g ± %.3g\n", s.MeanPenetration, s.StdPenetration)
	fmt.Fprintf(w, "peak speed\t%.6g\n", s.MeanPeakSpeed)
	return w.Flush()
}

func benchStep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	initial, err := experiment.UniformBox(cfg.Seed, cfg.Particles, cfg.Box)
	if err != nil {
		return err
	}
	s, err := sim.New(cfg.SimConfig())
	if err != nil {
		return err
	}

	e := initial.Clone()
	start := time.Now()
	for i := 0; i < cfg.Steps; i++ {
		s.Step(e)
	}
	elapsed := time.Since(start)

	perStep := time.Duration(0)
	if cfg.Steps > 0 {
		perStep = elapsed / time.Duration(cfg.Steps)
	}
	logger.Debug("bench done", zap.Int("particles", cfg.Particles), zap.Int("steps", cfg.Steps))

	fmt.Printf("particles: %d\n", cfg.Particles)
	fmt.Printf("steps: %d\n", cfg.Steps)
	fmt.Printf("total: %v\n", elapsed)
	fmt.Printf("per step: %v\n", perStep)
	if perStep > 0 {
		fmt.Printf("particle steps/s: %.3g\n", float64(cfg.Particles)/perStep.Seconds())
	}
	return nil
}
