package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/pidloop/internal/analysis"
	"github.com/san-kum/pidloop/internal/config"
	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/optim"
	"github.com/san-kum/pidloop/internal/storage"
)

var (
	kpRange string
	kiRange string
	kdRange string
	metric  string
	top     int

	ku         float64
	tu         float64
	rule       string
	find       bool
	sweepRange string

	asJSON bool
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune [plant]",
		Short: "grid search pid gains against a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneGains,
	}
	addConfigFlags(cmd)
	cmd.Flags().StringVar(&kpRange, "kp-range", "0.5:5:10", "kp sweep as lo:hi:n")
	cmd.Flags().StringVar(&kiRange, "ki-range", "0:2:5", "ki sweep as lo:hi:n")
	cmd.Flags().StringVar(&kdRange, "kd-range", "0:0:1", "kd sweep as lo:hi:n")
	cmd.Flags().StringVar(&metric, "metric", "iae", "metric to minimize")
	cmd.Flags().IntVar(&top, "top", 5, "number of trials to show")
	return cmd
}

func newZNCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zn [plant]",
		Short: "ziegler-nichols gains from the ultimate gain and period",
		Args:  cobra.MaximumNArgs(1),
		RunE:  zieglerNichols,
	}
	addConfigFlags(cmd)
	cmd.Flags().Float64Var(&ku, "ku", 0, "ultimate gain")
	cmd.Flags().Float64Var(&tu, "tu", 0, "ultimate period in seconds")
	cmd.Flags().StringVar(&rule, "rule", "", "tuning rule (default: all)")
	cmd.Flags().BoolVar(&find, "find", false, "find ku and tu with a proportional-only sweep")
	cmd.Flags().StringVar(&sweepRange, "sweep", "0.5:40:80", "sweep for --find as lo:hi:n")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response and oscillation analysis of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// parseRange reads "lo:hi:n" into n evenly spaced values. A single number
// is a one-point range.
func parseRange(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		return []float64{v}, nil
	case 3:
		lo, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		hi, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("range %q: count must be a positive integer", s)
		}
		return optim.Linspace(lo, hi, n), nil
	default:
		return nil, fmt.Errorf("range %q: want lo:hi:n", s)
	}
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Controller != "pid" {
		return fmt.Errorf("controller %q has no gains to tune", cfg.Controller)
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ranges := make([][]float64, 3)
	for i, s := range []string{kpRange, kiRange, kdRange} {
		if ranges[i], err = parseRange(s); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	registry := experiment.NewRegistry()
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		c := *cfg
		c.PID.Kp, c.PID.Ki, c.PID.Kd = params["kp"], params["ki"], params["kd"]
		return registry.Build(&c)
	}

	logger.Info("grid search",
		zap.String("plant", cfg.Plant),
		zap.String("metric", metric),
		zap.Int("combinations", len(ranges[0])*len(ranges[1])*len(ranges[2])),
	)
	gs := optim.NewGridSearch([]string{"kp", "ki", "kd"}, ranges)
	best, value, err := gs.Search(ctx, build, metric)
	if err != nil {
		return err
	}

	fmt.Printf("best %s: %.6f at kp=%g ki=%g kd=%g\n\n", metric, value, best["kp"], best["ki"], best["kd"])

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KP\tKI\tKD\t%s\n", strings.ToUpper(metric))
	for i, tr := range gs.Trials() {
		if i >= top {
			break
		}
		val := fmt.Sprintf("%.6f", tr.Value)
		if tr.Err != nil {
			val = "failed: " + tr.Err.Error()
		}
		fmt.Fprintf(w, "%g\t%g\t%g\t%s\n", tr.Params["kp"], tr.Params["ki"], tr.Params["kd"], val)
	}
	return w.Flush()
}

func zieglerNichols(cmd *cobra.Command, args []string) error {
	rules := analysis.Rules()
	if rule != "" {
		r, err := analysis.ParseRule(rule)
		if err != nil {
			return err
		}
		rules = []analysis.Rule{r}
	}

	if find {
		cfg, err := buildConfig(cmd, args)
		if err != nil {
			return err
		}
		kps, err := parseRange(sweepRange)
		if err != nil {
			return err
		}
		ku, tu, err = findUltimate(cmd.Context(), cfg, kps)
		if err != nil {
			return err
		}
		fmt.Printf("ultimate gain %.4g, period %.4gs\n\n", ku, tu)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tKP\tKI\tKD")
	for _, r := range rules {
		kp, ki, kd, err := analysis.ZieglerNichols(ku, tu, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\n", r, kp, ki, kd)
	}
	return w.Flush()
}

// findUltimate sweeps proportional-only loops over cfg's plant without
// measurement noise.
func findUltimate(ctx context.Context, cfg *config.Config, kps []float64) (float64, float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	registry := experiment.NewRegistry()
	build := func(kp float64) (*experiment.Experiment, error) {
		c := *cfg
		c.Controller = "pid"
		c.Noise = 0
		c.Schedule = nil
		c.PID.Kp, c.PID.Ki, c.PID.Kd = kp, 0, 0
		return registry.Build(&c)
	}
	return optim.UltimateGain(ctx, build, kps)
}

type analysisReport struct {
	Run        string             `json:"run"`
	Step       *analysis.StepInfo `json:"step,omitempty"`
	StepError  string             `json:"step_error,omitempty"`
	Frequency  float64            `json:"dominant_frequency_hz,omitempty"`
	Period     float64            `json:"dominant_period,omitempty"`
	DecayRatio float64            `json:"decay_ratio"`
	Metrics    map[string]float64 `json:"metrics"`
}

func analyzeRun(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("run %s has no trace", runID)
	}

	y := make([]float64, len(tr.States))
	for i, x := range tr.States {
		y[i] = x[0]
	}

	rep := analysisReport{Run: meta.ID, Metrics: meta.Metrics}

	setPoint := y[len(y)-1]
	if meta.PID != nil {
		setPoint = meta.PID.SetPoint
	}
	if info, err := analysis.AnalyzeStep(tr.Times, y, setPoint, experiment.SettlingBand); err == nil {
		rep.Step = &info
	} else {
		rep.StepError = err.Error()
	}

	tail := y[len(y)/2:]
	rep.DecayRatio = analysis.DecayRatio(tail)
	if f, err := analysis.DominantFrequency(tail, meta.Dt); err == nil {
		rep.Frequency = f
		rep.Period = 1 / f
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Printf("run: %s\n", rep.Run)
	fmt.Printf("plant: %s\n\n", meta.Plant)
	if s := rep.Step; s != nil {
		fmt.Printf("step %g -> %g\n", s.Initial, s.SetPoint)
		fmt.Printf("  rise time:      %.4fs\n", s.RiseTime)
		fmt.Printf("  peak:           %.4f at %.4fs\n", s.Peak, s.PeakTime)
		fmt.Printf("  overshoot:      %.2f%%\n", s.Overshoot)
		if s.Settled {
			fmt.Printf("  settling time:  %.4fs\n", s.SettlingTime)
		} else {
			fmt.Println("  settling time:  not settled")
		}
		fmt.Printf("  steady error:   %.6f\n", s.SteadyStateError)
	} else {
		fmt.Printf("step: %s\n", rep.StepError)
	}
	fmt.Printf("\ndecay ratio (second half): %.4f\n", rep.DecayRatio)
	if rep.Frequency > 0 {
		fmt.Printf("dominant frequency: %.4f Hz (period %.4fs)\n", rep.Frequency, rep.Period)
	}
	fmt.Println("\nmetrics:")
	printMetrics(rep.Metrics)
	return nil
}
