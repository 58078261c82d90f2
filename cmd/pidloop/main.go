package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/pidloop/internal/config"
	"github.com/san-kum/pidloop/internal/control"
	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/export"
	"github.com/san-kum/pidloop/internal/logging"
	"github.com/san-kum/pidloop/internal/sim"
	"github.com/san-kum/pidloop/internal/storage"
	"github.com/san-kum/pidloop/internal/tui"
	"github.com/san-kum/pidloop/pid"
)

var (
	dataDir  string
	logLevel string
	logJSON  bool

	configFile string
	preset     string
	dt         float64
	duration   float64
	seed       int64
	integrator string
	controller string
	backend    string
	noise      float64
	manual     float64
	initValue  float64
	initRate   float64

	kp        float64
	ki        float64
	kd        float64
	setPoint  float64
	period    time.Duration
	direction string
	mode      string
	outMin    float64
	outMax    float64

	live       bool
	frameRate  int
	ensemble   int
	withOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "pidloop",
		Short:        "discrete pid controller bench",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pidloop", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as json")

	runCmd := &cobra.Command{
		Use:   "run [plant]",
		Short: "run a closed-loop simulation and save it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "show a status line while running")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "status line refresh rate")
	runCmd.Flags().IntVar(&ensemble, "ensemble", 1, "number of runs with consecutive seeds")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run's trace to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
		},
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export a run's response plot as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().BoolVar(&withOutput, "output", false, "also draw the controller output")

	presetsCmd := &cobra.Command{
		Use:   "presets [plant]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init-config [file]",
		Short: "write a config file from defaults, a preset and flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, nil)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	addConfigFlags(initCmd)

	liveCmd := &cobra.Command{
		Use:   "live [plant]",
		Short: "tune a loop interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, args)
			if err != nil {
				return err
			}
			return tui.Run(cfg)
		},
	}
	addConfigFlags(liveCmd)

	reportCmd := &cobra.Command{
		Use:   "report [plant]",
		Short: "print the controller's tuning report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printReport,
	}
	addConfigFlags(reportCmd)

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, presetsCmd, initCmd, liveCmd, reportCmd)
	rootCmd.AddCommand(newTuneCmd(), newZNCmd(), newAnalyzeCmd(), newScenarioCmd(), newSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "start from a named preset")
	f.Float64Var(&dt, "dt", d.Dt, "integration step in seconds")
	f.Float64Var(&duration, "time", d.Duration, "duration in seconds")
	f.Int64Var(&seed, "seed", d.Seed, "random seed")
	f.StringVar(&integrator, "integrator", d.Integrator, "integrator (euler, heun, rk4)")
	f.StringVar(&controller, "controller", d.Controller, "controller (pid, none, manual)")
	f.StringVar(&backend, "backend", d.Backend, "pid numeric backend (float64, float32, fixed)")
	f.Float64Var(&noise, "noise", d.Noise, "measurement noise standard deviation")
	f.Float64Var(&manual, "manual", d.Manual, "output of the manual controller")
	f.Float64Var(&initValue, "init", d.InitState.Value, "initial measured value")
	f.Float64Var(&initRate, "init-rate", d.InitState.Rate, "initial rate (spring_mass)")

	f.Float64Var(&kp, "kp", d.PID.Kp, "proportional gain")
	f.Float64Var(&ki, "ki", d.PID.Ki, "integral gain per second")
	f.Float64Var(&kd, "kd", d.PID.Kd, "derivative gain in seconds")
	f.Float64Var(&setPoint, "setpoint", d.PID.SetPoint, "set-point")
	f.DurationVar(&period, "period", d.PID.SamplePeriod, "controller sample period")
	f.StringVar(&direction, "direction", d.PID.Direction, "controller direction (direct, reverse)")
	f.StringVar(&mode, "mode", d.PID.Mode, "output mode (non_accumulating, accumulating)")
	f.Float64Var(&outMin, "out-min", d.PID.OutMin, "lower output limit")
	f.Float64Var(&outMax, "out-max", d.PID.OutMax, "upper output limit")
}

// buildConfig layers defaults, the preset, the config file and explicitly
// set flags, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Plant = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Plant, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for %s (available: %v)", preset, cfg.Plant, config.ListPresets(cfg.Plant))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.Plant = args[0]
		}
	}

	changed := cmd.Flags().Changed
	if changed("dt") {
		cfg.Dt = dt
	}
	if changed("time") {
		cfg.Duration = duration
	}
	if changed("seed") {
		cfg.Seed = seed
	}
	if changed("integrator") {
		cfg.Integrator = integrator
	}
	if changed("controller") {
		cfg.Controller = controller
	}
	if changed("backend") {
		cfg.Backend = backend
	}
	if changed("noise") {
		cfg.Noise = noise
	}
	if changed("manual") {
		cfg.Manual = manual
	}
	if changed("init") {
		cfg.InitState.Value = initValue
	}
	if changed("init-rate") {
		cfg.InitState.Rate = initRate
	}
	if changed("kp") {
		cfg.PID.Kp = kp
	}
	if changed("ki") {
		cfg.PID.Ki = ki
	}
	if changed("kd") {
		cfg.PID.Kd = kd
	}
	if changed("setpoint") {
		cfg.PID.SetPoint = setPoint
	}
	if changed("period") {
		cfg.PID.SamplePeriod = period
	}
	if changed("direction") {
		cfg.PID.Direction = direction
	}
	if changed("mode") {
		cfg.PID.Mode = mode
	}
	if changed("out-min") {
		cfg.PID.OutMin = outMin
	}
	if changed("out-max") {
		cfg.PID.OutMax = outMax
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return logging.New(logLevel, logJSON)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if ensemble > 1 {
		return runEnsemble(ctx, cfg, logger)
	}

	registry := experiment.NewRegistry()
	exp, err := registry.Build(cfg, pid.WithDebugHook(logging.TuningHook(logger)))
	if err != nil {
		return err
	}

	var mon *tui.Monitor
	if live {
		mon = tui.NewMonitor(os.Stderr, exp.Sampled(), cfg.Duration, frameRate)
		exp.Simulator().AddObserver(mon)
	}

	logger.Info("running simulation",
		zap.String("plant", cfg.Plant),
		zap.String("integrator", cfg.Integrator),
		zap.String("controller", cfg.Controller),
		zap.String("backend", cfg.Backend),
		zap.Float64("dt", cfg.Dt),
		zap.Float64("duration", cfg.Duration),
	)
	start := time.Now()
	result, err := exp.Run(ctx)
	if mon != nil {
		mon.Done()
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	for _, e := range result.Errors {
		logger.Warn("simulation stopped early", zap.Error(e))
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	var samples []control.Sample
	if s := exp.Sampled(); s != nil {
		samples = s.Samples()
	}
	runID, err := st.Save(runMetadata(cfg, result), result, samples)
	if err != nil {
		return err
	}
	logger.Debug("run saved", zap.String("id", runID), zap.Int("samples", len(samples)))

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)
	return nil
}

func runEnsemble(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	registry := experiment.NewRegistry()
	build := func(seed int64) (*sim.Simulator, error) {
		c := *cfg
		c.Seed = seed
		exp, err := registry.Build(&c)
		if err != nil {
			return nil, err
		}
		return exp.Simulator(), nil
	}

	logger.Info("running ensemble", zap.String("plant", cfg.Plant), zap.Int("runs", ensemble), zap.Int64("seed", cfg.Seed))
	simCfg := sim.Config{Dt: cfg.Dt, Duration: cfg.Duration, Seed: cfg.Seed, ValidateState: true}
	results, err := sim.NewEnsemble(build, ensemble, cfg.Seed).Run(ctx, sim.State(cfg.GetInitState()), simCfg)
	if err != nil {
		return err
	}

	values := make(map[string][]float64)
	for _, r := range results {
		for name, v := range r.Metrics {
			values[name] = append(values[name], v)
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTDDEV\tMIN\tMAX")
	for _, name := range names {
		mean, std, lo, hi := summarize(values[name])
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\t%.6f\n", name, mean, std, lo, hi)
	}
	return w.Flush()
}

func summarize(v []float64) (mean, std, lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		mean += x
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	mean /= float64(len(v))
	for _, x := range v {
		std += (x - mean) * (x - mean)
	}
	std = math.Sqrt(std / float64(len(v)))
	return mean, std, lo, hi
}

func runMetadata(cfg *config.Config, result *sim.Result) storage.RunMetadata {
	meta := storage.RunMetadata{
		Plant:      cfg.Plant,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
		Controller: cfg.Controller,
		Noise:      cfg.Noise,
		Metrics:    result.Metrics,
	}
	if cfg.Controller == "pid" {
		meta.Backend = cfg.Backend
		meta.PID = &storage.PIDSettings{
			Kp:           cfg.PID.Kp,
			Ki:           cfg.PID.Ki,
			Kd:           cfg.PID.Kd,
			Direction:    cfg.PID.Direction,
			Mode:         cfg.PID.Mode,
			SamplePeriod: cfg.PID.SamplePeriod.String(),
			OutMin:       cfg.PID.OutMin,
			OutMax:       cfg.PID.OutMax,
			SetPoint:     cfg.PID.SetPoint,
		}
	}
	return meta
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
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
	fmt.Fprintln(w, "ID\tPLANT\tTIME\tDURATION\tDT\tINTEG\tCTRL\tBACKEND\tIAE")

	for _, run := range runs {
		iae := "-"
		if v, ok := run.Metrics["iae"]; ok {
			iae = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.Plant,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Controller,
			run.Backend,
			iae,
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
	tr, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(tr.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("plant: %s\n", meta.Plant)
	fmt.Printf("steps: %d\n\n", len(tr.States))

	y := make([]float64, len(tr.States))
	for i, x := range tr.States {
		y[i] = x[0]
	}

	if samples, err := st.LoadSamples(runID); err == nil && len(samples) > 1 {
		meas := make([]float64, len(samples))
		sp := make([]float64, len(samples))
		for i, s := range samples {
			meas[i] = s.Measurement
			sp[i] = s.SetPoint
		}
		fmt.Println(asciigraph.PlotMany([][]float64{sp, meas},
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("measurement vs set-point (per sample)"),
		))
	} else {
		fmt.Println(asciigraph.Plot(y,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("x0 vs time"),
		))
	}
	fmt.Println()

	if len(tr.Controls) > 1 {
		fmt.Println(asciigraph.Plot(tr.Controls,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption("controller output"),
		))
		fmt.Println()
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	tr, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}

	y := make([]float64, len(tr.States))
	for i, x := range tr.States {
		y[i] = x[0]
	}
	series := []export.Series{{Label: "measurement", Color: "#5fffd7", Values: y}}

	samples, err := st.LoadSamples(args[0])
	switch {
	case err == nil:
		series = append(series, export.Series{Label: "set-point", Color: "#ffd700", Values: holdSetPoint(tr.Times, samples)})
	case !errors.Is(err, storage.ErrNoSamples):
		return err
	}
	if withOutput {
		series = append(series, export.Series{Label: "output", Color: "#ff87ff", Values: tr.Controls})
	}
	return export.ResponseSVG(os.Stdout, tr.Times, series, 960, 480)
}

// holdSetPoint resamples the per-sample set-point onto the trace times.
func holdSetPoint(times []float64, samples []control.Sample) []float64 {
	out := make([]float64, 0, len(times))
	j := 0
	for _, t := range times {
		for j+1 < len(samples) && samples[j+1].Time <= t {
			j++
		}
		if j >= len(samples) || samples[j].Time > t {
			break
		}
		out = append(out, samples[j].SetPoint)
	}
	return out
}

func listPresets(cmd *cobra.Command, args []string) error {
	plants := experiment.NewRegistry().ListPlants()
	if len(args) > 0 {
		plants = args[:1]
	}
	for _, plant := range plants {
		names := config.ListPresets(plant)
		if len(names) == 0 {
			fmt.Printf("no presets for plant: %s\n", plant)
			continue
		}
		fmt.Printf("presets for %s:\n", plant)
		for _, name := range names {
			fmt.Printf("  %s\n", name)
		}
	}
	return nil
}

func printReport(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Controller != "pid" {
		return fmt.Errorf("controller %q has no tuning report", cfg.Controller)
	}
	pidCfg, err := cfg.PID.ToPID()
	if err != nil {
		return err
	}
	loop, err := control.NewLoop(cfg.Backend, pidCfg)
	if err != nil {
		return err
	}
	fmt.Println(loop.Report())
	fmt.Printf("backend: %s, direction: %s, mode: %s\n", loop.Backend(), loop.Direction(), loop.Mode())
	return nil
}
