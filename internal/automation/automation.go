package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pidloop/internal/config"
	"github.com/san-kum/pidloop/internal/control"
	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/sim"
)

var ErrUnknownParam = errors.New("no plant or controller parameter with that name")

// Scenario is a scripted sequence of experiments.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep builds its config from a preset or a config file, then
// applies the non-zero overrides and finally the runtime params.
type ScenarioStep struct {
	Name     string             `yaml:"name"`
	Plant    string             `yaml:"plant"`
	Preset   string             `yaml:"preset"`
	Config   string             `yaml:"config"`
	Backend  string             `yaml:"backend"`
	Duration float64            `yaml:"duration"`
	Dt       float64            `yaml:"dt"`
	Seed     int64              `yaml:"seed"`
	Params   map[string]float64 `yaml:"params"`
}

// StepResult is one finished scenario step.
type StepResult struct {
	Name    string
	Config  *config.Config
	Result  *sim.Result
	Samples []control.Sample
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

func (s ScenarioStep) config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Plant != "" {
		cfg.Plant = s.Plant
	}
	switch {
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		if s.Plant != "" {
			cfg.Plant = s.Plant
		}
	case s.Preset != "":
		p := config.GetPreset(cfg.Plant, s.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for %s", s.Preset, cfg.Plant)
		}
		cfg = p
	}
	if s.Backend != "" {
		cfg.Backend = s.Backend
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	return cfg, nil
}

// RunScenario executes every step in order and stops at the first failure,
// returning the steps finished so far.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *zap.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}

		cfg, err := step.config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := registry.Build(cfg)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := ApplyParams(exp, step.Params); err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		logger.Info("running scenario step",
			zap.String("scenario", scenario.Name),
			zap.String("step", name),
			zap.Int("index", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("plant", cfg.Plant),
		)
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: name, Config: cfg, Result: result}
		if s := exp.Sampled(); s != nil {
			sr.Samples = s.Samples()
		}
		results = append(results, sr)
	}

	return results, nil
}

// ApplyParams sets runtime parameters on the experiment's plant or, for
// names the plant does not know, its controller.
func ApplyParams(exp *experiment.Experiment, params map[string]float64) error {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := applyParam(exp.Simulator(), name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

func applyParam(s *sim.Simulator, name string, value float64) error {
	for _, target := range []any{s.Dynamics(), s.Controller()} {
		c, ok := target.(sim.Configurable)
		if !ok {
			continue
		}
		if _, ok := c.GetParams()[name]; ok {
			return c.SetParam(name, value)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownParam, name)
}

// ParameterSweep runs Base once per value of Param, spaced evenly from Min
// to Max.
type ParameterSweep struct {
	Base     *config.Config
	Param    string
	Min      float64
	Max      float64
	NumSteps int
}

// SweepResult holds one sweep point. Err is set when the point diverged or
// rejected the parameter value; the sweep carries on.
type SweepResult struct {
	ParamValue float64
	Final      float64
	Metrics    map[string]float64
	Err        error
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, logger *zap.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)
	}

	for i := 0; i < sweep.NumSteps; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		paramVal := sweep.Min + float64(i)*paramStep

		exp, err := registry.Build(sweep.Base)
		if err != nil {
			return nil, err
		}
		sr := SweepResult{ParamValue: paramVal}
		if err := applyParam(exp.Simulator(), sweep.Param, paramVal); err != nil {
			if errors.Is(err, ErrUnknownParam) {
				return nil, err
			}
			sr.Err = err
			results = append(results, sr)
			continue
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, err
		}
		sr.Metrics = result.Metrics
		if len(result.States) > 0 {
			sr.Final = result.States[len(result.States)-1][0]
		}
		if len(result.Errors) > 0 {
			sr.Err = result.Errors[0]
		}
		results = append(results, sr)

		logger.Debug("sweep point",
			zap.String("param", sweep.Param),
			zap.Float64("value", paramVal),
			zap.Int("index", i+1),
			zap.Int("of", sweep.NumSteps),
		)
	}

	return results, nil
}
