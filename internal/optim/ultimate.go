package optim

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/pidloop/internal/analysis"
	"github.com/san-kum/pidloop/internal/experiment"
)

// SustainedDecay is the decay ratio at or above which an oscillation counts
// as sustained.
const SustainedDecay = 0.9

var ErrNoUltimateGain = errors.New("no gain in the sweep produced sustained oscillation")

// UltimateGain runs proportional-only experiments for each gain in kps, in
// order, and returns the first gain whose response keeps oscillating over
// the second half of the run, along with the oscillation period in seconds.
func UltimateGain(ctx context.Context, build func(kp float64) (*experiment.Experiment, error), kps []float64) (ku, tu float64, err error) {
	for _, kp := range kps {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}

		exp, err := build(kp)
		if err != nil {
			return 0, 0, fmt.Errorf("kp=%g: %w", kp, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("kp=%g: %w", kp, err)
		}

		trace := make([]float64, 0, len(result.States)/2+1)
		for _, x := range result.States[len(result.States)/2:] {
			trace = append(trace, x[0])
		}
		if analysis.DecayRatio(trace) < SustainedDecay {
			continue
		}

		freq, err := analysis.DominantFrequency(trace, exp.Config().Dt)
		if err != nil {
			return 0, 0, fmt.Errorf("kp=%g: %w", kp, err)
		}
		return kp, 1 / freq, nil
	}
	return 0, 0, ErrNoUltimateGain
}
