package optim

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/san-kum/pidloop/internal/experiment"
)

var ErrNoCandidate = errors.New("no parameter combination produced a result")

// Builder constructs a fresh experiment for one parameter combination.
type Builder func(params map[string]float64) (*experiment.Experiment, error)

// Trial is one evaluated combination.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	trials     []Trial
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs every combination and returns the one minimizing metricName.
// Combinations whose experiment fails to build or diverges are skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment Builder,
	metricName string,
) (map[string]float64, float64, error) {
	g.trials = g.trials[:0]

	best := math.Inf(1)
	var bestParams map[string]float64

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, metricName, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoCandidate
	}
	return bestParams, best, nil
}

// Trials returns every combination from the last Search, best first.
func (g *GridSearch) Trials() []Trial {
	out := append([]Trial(nil), g.trials...)
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].Err == nil) != (out[j].Err == nil) {
			return out[i].Err == nil
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment Builder,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		val, err := evaluate(ctx, current, buildExperiment, metricName)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		g.trials = append(g.trials, Trial{Params: current, Value: val, Err: err})
		if err == nil && val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(ctx context.Context, params map[string]float64, build Builder, metricName string) (float64, error) {
	exp, err := build(params)
	if err != nil {
		return 0, err
	}

	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	if len(result.Errors) > 0 {
		return 0, result.Errors[0]
	}

	val, ok := result.Metrics[metricName]
	if !ok {
		return 0, errors.New("metric not recorded: " + metricName)
	}
	return val, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
