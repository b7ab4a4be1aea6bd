package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/particlelab/internal/config"
	"github.com/san-kum/particlelab/internal/experiment"
	"github.com/san-kum/particlelab/internal/logging"
	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/storage"
	"github.com/san-kum/particlelab/internal/sweep"
	"github.com/san-kum/particlelab/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir  string
	logLevel string
	logJSON  bool
	logger   = zap.NewNop()

	configFile    string
	preset        string
	particles     int
	box           float64
	seed          int64
	dt            float64
	steps         int
	drag          float64
	restitution   float64
	gravity       float64
	trackBounces  bool
	validateState bool

	noSave     bool
	showPlot   bool
	traceEvery int
	workers    int
	tolerance  float64
	figureDir  string
	figureOut  string
	outPath    string
	numPeaks   int
	trials     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "particlelab",
		Short:        "falling particle integration lab",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel, logJSON)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".particlelab", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "plot energy after the run")
	runCmd.Flags().IntVar(&traceEvery, "trace", 0, "log every n-th step at debug level")

	sweepCmd := &cobra.Command{
		Use:   "sweep [param] [values...]",
		Short: "run one simulation per parameter value",
		Long: "sweep runs the same initial conditions once per value of a parameter.\n" +
			"Parameters: " + strings.Join(experiment.NewRegistry().ListParams(), ", ") + ".\n" +
			"Without arguments the sweep of the preset or config file is used.",
		RunE: runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = unbounded)")
	sweepCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")
	sweepCmd.Flags().Float64Var(&tolerance, "tol", 0, "report the largest value with |drift rate| <= tol")
	sweepCmd.Flags().StringVar(&figureDir, "figures", "", "write sweep figures to this directory")

	gridCmd := &cobra.Command{
		Use:   "grid name=v1,v2,... [name=v1,v2,...]",
		Short: "run the cartesian product of parameter values",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGrid,
	}
	addSimFlags(gridCmd)
	gridCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = unbounded)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run records to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run records to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportRun(args[0], outPath)
		},
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	figureCmd := &cobra.Command{
		Use:   "figure [run_id...]",
		Short: "render energy, speed and penetration figures for stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  renderFigures,
	}
	figureCmd.Flags().StringVarP(&figureOut, "out", "o", "figures", "output directory")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write a configuration file (default or --preset)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}
	configCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of the max speed series",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&numPeaks, "peaks", 5, "number of spectral peaks to report")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "repeat a configuration over random seeds",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addSimFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of seeds")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the step function",
		Args:  cobra.NoArgs,
		RunE:  benchStep,
	}
	addSimFlags(benchCmd)

	rootCmd.AddCommand(runCmd, sweepCmd, gridCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, figureCmd, liveCmd, presetsCmd, configCmd, analyzeCmd, scenarioCmd, monteCarloCmd, benchCmd)

	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVarP(&particles, "particles", "n", def.Particles, "number of particles")
	cmd.Flags().Float64Var(&box, "box", def.Box, "side of the initial box")
	cmd.Flags().Int64Var(&seed, "seed", def.Seed, "random seed")
	cmd.Flags().Float64Var(&dt, "dt", def.Dt, "timestep")
	cmd.Flags().IntVar(&steps, "steps", def.Steps, "number of steps")
	cmd.Flags().Float64Var(&drag, "drag", def.Drag, "linear drag coefficient")
	cmd.Flags().Float64VarP(&restitution, "restitution", "e", def.Restitution, "coefficient of restitution")
	cmd.Flags().Float64Var(&gravity, "gravity", -def.Gravity[1], "gravitational acceleration (downwards)")
	cmd.Flags().BoolVar(&trackBounces, "bounces", def.TrackBounces, "record bounce counts")
	cmd.Flags().BoolVar(&validateState, "validate", def.ValidateState, "stop when the state diverges")
}

// resolveConfig applies, in increasing priority, defaults, the preset, the
// config file and explicitly set flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("particles") {
		cfg.Particles = particles
	}
	if flags.Changed("box") {
		cfg.Box = box
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("drag") {
		cfg.Drag = drag
	}
	if flags.Changed("restitution") {
		cfg.Restitution = restitution
	}
	if flags.Changed("gravity") {
		cfg.Gravity = [2]float64{0, -gravity}
	}
	if flags.Changed("bounces") {
		cfg.TrackBounces = trackBounces
	}
	if flags.Changed("validate") {
		cfg.ValidateState = validateState
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	var observers []sim.Observer
	if traceEvery > 0 {
		observers = append(observers, experiment.NewTracer(logger, traceEvery))
	}
	if err := exp.Setup(experiment.DefaultMetrics(), observers...); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("run started",
		zap.String("name", cfg.Name),
		zap.Int("particles", cfg.Particles),
		zap.Float64("dt", cfg.Dt),
		zap.Int("steps", cfg.Steps),
		zap.Float64("drag", cfg.Drag),
		zap.Float64("restitution", cfg.Restitution),
	)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil && (result == nil || len(result.Records) == 0) {
		return err
	}
	if err != nil {
		logger.Warn("run stopped early", zap.Int("steps", len(result.Records)), zap.Error(err))
	} else {
		logger.Info("run completed", zap.Duration("elapsed", time.Since(start)))
	}

	if reportErr := reportRun(cfg, result); reportErr != nil {
		return reportErr
	}
	return err
}

// reportRun saves result unless --no-save is set and prints its summary. A run
// cut short by --validate or an interrupt is reported the same way.
func reportRun(cfg *config.Config, result *sim.Result) error {
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.RunInfo{Name: cfg.Name, Seed: cfg.Seed, Particles: cfg.Particles}, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Printf("steps: %d\n", len(result.Records))
	printSummary(metrics.Summarize(result.Records, result.Config), cfg.TrackBounces)

	if result.Config.Drag > 0 {
		vt := metrics.TerminalSpeed(result.Config.Gravity, result.Config.Drag)
		converged := metrics.Converged(result.Series(sim.Speed), 20, 1e-3*vt)
		fmt.Printf("terminal speed: %.4f (max speed settled: %v)\n", vt, converged)
	}

	if energy := finiteValues(result.Series(sim.Energy)); showPlot && len(energy) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(energy, asciigraph.Height(12), asciigraph.Width(70), asciigraph.Caption("total energy")))
	}
	return nil
}

// finiteValues drops NaN and infinite entries, which the terminal plots
// cannot scale.
func finiteValues(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func printSummary(s metrics.Summary, bounces bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "initial energy\t%.6f\n", s.InitialEnergy)
	fmt.Fprintf(w, "final energy\t%.6f\n", s.FinalEnergy)
	fmt.Fprintf(w, "energy drift\t%.6f\n", s.EnergyDrift)
	fmt.Fprintf(w, "drift rate\t%.6f\n", s.DriftRate)
	fmt.Fprintf(w, "max penetration\t%.6f\n", s.MaxPenetration)
	fmt.Fprintf(w, "peak speed\t%.6f\n", s.PeakSpeed)
	fmt.Fprintf(w, "alpha\t%.6f\n", s.Alpha)
	if bounces {
		fmt.Fprintf(w, "bounces\t%d\n", s.Bounces)
	}
	w.Flush()
}

func parseValues(args []string) ([]float64, error) {
	values := make([]float64, 0, len(args))
	for _, a := range args {
		for _, f := range strings.Split(a, ",") {
			if f == "" {
				continue
			}
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q: %w", f, err)
			}
			values = append(values, v)
		}
	}
	return values, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	param, values := cfg.Sweep.Param, cfg.Sweep.Values
	if len(args) > 0 {
		param = args[0]
		if values, err = parseValues(args[1:]); err != nil {
			return err
		}
	}
	if param == "" || len(values) == 0 {
		return fmt.Errorf("sweep needs a parameter and values (or a preset/config with a sweep)")
	}

	initial, err := experiment.UniformBox(cfg.Seed, cfg.Particles, cfg.Box)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := sweep.NewRunner(experiment.NewRegistry(), logger, workers)
	points, err := runner.Sweep(ctx, initial, cfg.SimConfig(), param, values)
	if err != nil {
		return err
	}

	printPoints(points, []string{param}, cfg.TrackBounces)

	rates := make([]float64, len(points))
	for i, p := range points {
		rates[i] = p.Summary.DriftRate
	}
	if rates = finiteValues(rates); len(rates) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(rates, asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption("energy drift rate by sweep point")))
	}

	if cmd.Flags().Changed("tol") {
		if v, ok := sweep.Critical(points, tolerance); ok {
			fmt.Printf("\nlargest %s with |drift rate| <= %g: %g\n", param, tolerance, v)
		} else {
			fmt.Printf("\nno %s keeps |drift rate| <= %g\n", param, tolerance)
		}
	}

	if !noSave {
		if err := savePoints(cfg, points); err != nil {
			return err
		}
	}

	if figureDir != "" {
		if err := sweepFigures(figureDir, cfg.Name, points); err != nil {
			return err
		}
		fmt.Printf("figures written to %s\n", figureDir)
	}
	return nil
}

func runGrid(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(args))
	ranges := make([][]float64, 0, len(args))
	for _, a := range args {
		name, list, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("expected name=v1,v2,... got %q", a)
		}
		values, err := parseValues([]string{list})
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	initial, err := experiment.UniformBox(cfg.Seed, cfg.Particles, cfg.Box)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := sweep.NewRunner(experiment.NewRegistry(), logger, workers)
	points, err := runner.Grid(ctx, initial, cfg.SimConfig(), names, ranges)
	if err != nil {
		return err
	}

	printPoints(points, names, cfg.TrackBounces)
	if best, ok := sweep.Best(points, "max_penetration"); ok {
		fmt.Printf("\nsmallest max penetration: %v\n", best.Params)
	}
	return nil
}

func printPoints(points []sweep.Point, names []string, bounces bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := strings.ToUpper(strings.Join(names, "\t")) + "\tDRIFT\tDRIFT RATE\tMAX PEN\tPEAK SPEED\tALPHA"
	if bounces {
		header += "\tBOUNCES"
	}
	fmt.Fprintln(w, header)

	for _, p := range points {
		for _, n := range names {
			fmt.Fprintf(w, "%g\t", p.Params[n])
		}
		s := p.Summary
		fmt.Fprintf(w, "%.6g\t%.6g\t%.6g\t%.6g\t%.6g", s.EnergyDrift, s.DriftRate, s.MaxPenetration, s.PeakSpeed, s.Alpha)
		if bounces {
			fmt.Fprintf(w, "\t%d", s.Bounces)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}

func savePoints(cfg *config.Config, points []sweep.Point) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	for _, p := range points {
		info := storage.RunInfo{
			Name:       fmt.Sprintf("%s_%s%g", cfg.Name, p.Param, p.Value),
			Seed:       cfg.Seed,
			Particles:  cfg.Particles,
			SweepParam: p.Param,
			SweepValue: p.Value,
		}
		runID, err := st.Save(info, p.Result)
		if err != nil {
			return err
		}
		logger.Debug("sweep point saved", zap.String("run", runID))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tN\tDT\tSTEPS\tDRAG\tE\tDRIFT\tMAX PEN")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%d\t%g\t%g\t%.4g\t%.4g\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Dt,
			run.Steps,
			run.Drag,
			run.Restitution,
			run.Summary.EnergyDrift,
			run.Summary.MaxPenetration,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
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
	if len(records) < 2 {
		return fmt.Errorf("run %s has too few records to plot", runID)
	}

	res := &sim.Result{Records: records}
	fmt.Printf("%s  dt=%g  drag=%g  e=%g  n=%d\n\n", meta.ID, meta.Dt, meta.Drag, meta.Restitution, meta.Particles)

	for _, series := range []struct {
		caption string
		field   func(sim.Record) float64
	}{
		{"total energy", sim.Energy},
		{"max speed", sim.Speed},
		{"max penetration", sim.Penetration},
	} {
		values := finiteValues(res.Series(series.field))
		if len(values) < 2 {
			fmt.Printf("%s: no finite values\n\n", series.caption)
			continue
		}
		fmt.Println(asciigraph.Plot(values,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption(series.caption),
		))
		fmt.Println()
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
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

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return storage.WriteCSV(out, records, meta.TrackBounces)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	initial, err := experiment.UniformBox(cfg.Seed, cfg.Particles, cfg.Box)
	if err != nil {
		return err
	}

	m, err := viz.NewModel(cfg.Name, initial, cfg.SimConfig(), cfg.Box)
	if err != nil {
		return err
	}
	return viz.Run(m)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tN\tDT\tSTEPS\tDRAG\tE\tSWEEP")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		sweepDesc := "-"
		if p.Sweep.Param != "" {
			sweepDesc = fmt.Sprintf("%s %v", p.Sweep.Param, p.Sweep.Values)
		}
		fmt.Fprintf(w, "%s\t%d\t%g\t%d\t%g\t%g\t%s\n", name, p.Particles, p.Dt, p.Steps, p.Drag, p.Restitution, sweepDesc)
	}
	return w.Flush()
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if len(args) == 0 {
		return config.Write(os.Stdout, cfg)
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("config written to %s\n", args[0])
	return nil
}
