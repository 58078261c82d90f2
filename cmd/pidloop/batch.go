package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/pidloop/internal/automation"
	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/storage"
)

var (
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	noSave     bool
)

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the experiments listed in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")
	return cmd
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [plant]",
		Short: "sweep one plant or controller parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(cmd)
	cmd.Flags().StringVar(&sweepParam, "param", "tau", "parameter name (plant params, kp, ki, kd, setpoint, period_ms)")
	cmd.Flags().Float64Var(&sweepMin, "min", 0.5, "first value")
	cmd.Flags().Float64Var(&sweepMax, "max", 5, "last value")
	cmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")
	return cmd
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
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

	results, runErr := automation.RunScenario(ctx, sc, experiment.NewRegistry(), logger)

	st := storage.New(dataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPLANT\tRUN\tIAE\tOVERSHOOT\tSETTLING")
	for _, r := range results {
		id := "-"
		if !noSave {
			if id, err = st.Save(runMetadata(r.Config, r.Result), r.Result, r.Samples); err != nil {
				return err
			}
			logger.Debug("run saved", zap.String("id", id), zap.String("step", r.Name))
		}
		m := r.Result.Metrics
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.2f%%\t%.3fs\n", r.Name, r.Config.Plant, id, m["iae"], m["overshoot_pct"], m["settling_time"])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
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

	sweep := &automation.ParameterSweep{
		Base:     cfg,
		Param:    sweepParam,
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepSteps,
	}
	results, err := automation.RunSweep(ctx, sweep, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFINAL\tIAE\tOVERSHOOT\tSETTLING\n", sweepParam)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%g\tfailed: %v\t\t\t\n", r.ParamValue, r.Err)
			continue
		}
		m := r.Metrics
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\t%.2f%%\t%.3fs\n", r.ParamValue, r.Final, m["iae"], m["overshoot_pct"], m["settling_time"])
	}
	return w.Flush()
}
