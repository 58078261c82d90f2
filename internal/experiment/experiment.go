package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/pidloop/internal/config"
	"github.com/san-kum/pidloop/internal/control"
	"github.com/san-kum/pidloop/internal/sim"
)

type Experiment struct {
	cfg       *config.Config
	simulator *sim.Simulator
	sampled   *control.Sampled
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

func (e *Experiment) Setup(dyn sim.Dynamics, integrator sim.Integrator, controller sim.Controller, metrics []sim.Metric) error {
	if len(e.cfg.GetInitState()) != dyn.StateDim() {
		return fmt.Errorf("plant %s expects %d states, init state has %d", e.cfg.Plant, dyn.StateDim(), len(e.cfg.GetInitState()))
	}
	e.simulator = sim.New(dyn, integrator, controller)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	if s, ok := controller.(*control.Sampled); ok {
		e.sampled = s
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	simCfg := sim.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		Seed:          e.cfg.Seed,
		ValidateState: true,
	}

	return e.simulator.Run(ctx, sim.State(e.cfg.GetInitState()), simCfg)
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

// Sampled returns the PID controller, or nil for open-loop runs.
func (e *Experiment) Sampled() *control.Sampled { return e.sampled }

// Loop returns the PID loop, or nil for open-loop runs.
func (e *Experiment) Loop() control.Loop {
	if e.sampled == nil {
		return nil
	}
	return e.sampled.Loop()
}
