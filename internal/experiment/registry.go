package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pidloop/internal/config"
	"github.com/san-kum/pidloop/internal/control"
	"github.com/san-kum/pidloop/internal/integrators"
	"github.com/san-kum/pidloop/internal/metrics"
	"github.com/san-kum/pidloop/internal/plant"
	"github.com/san-kum/pidloop/internal/sim"
	"github.com/san-kum/pidloop/pid"
)

// SettlingBand is the settling-time band as a fraction of the initial step.
const SettlingBand = 0.02

type Registry struct {
	plants      map[string]func(config.PlantConfig) sim.Dynamics
	integrators map[string]func() sim.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		plants:      make(map[string]func(config.PlantConfig) sim.Dynamics),
		integrators: make(map[string]func() sim.Integrator),
	}

	r.plants["first_order"] = func(p config.PlantConfig) sim.Dynamics {
		return &plant.FirstOrder{Gain: p.Gain, Tau: p.Tau}
	}
	r.plants["integrating"] = func(p config.PlantConfig) sim.Dynamics {
		return &plant.Integrating{Gain: p.Gain, Leak: p.Leak}
	}
	r.plants["thermal"] = func(p config.PlantConfig) sim.Dynamics {
		return &plant.Thermal{Power: p.Power, Loss: p.Loss, Capacity: p.Capacity, Ambient: p.Ambient}
	}
	r.plants["spring_mass"] = func(p config.PlantConfig) sim.Dynamics {
		return &plant.SpringMass{Mass: p.Mass, Stiffness: p.Stiffness, Damping: p.Damping}
	}

	r.integrators["euler"] = func() sim.Integrator { return integrators.NewEuler() }
	r.integrators["heun"] = func() sim.Integrator { return integrators.NewHeun() }
	r.integrators["rk4"] = func() sim.Integrator { return integrators.NewRK4() }

	return r
}

func (r *Registry) GetPlant(name string, params config.PlantConfig) (sim.Dynamics, error) {
	fn, ok := r.plants[name]
	if !ok {
		return nil, fmt.Errorf("unknown plant: %s", name)
	}
	return fn(params), nil
}

func (r *Registry) GetIntegrator(name string) (sim.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

// GetController builds the controller named by cfg.Controller. The PID
// controller measures state element 0.
func (r *Registry) GetController(cfg *config.Config, controlDim int, opts ...pid.Option) (sim.Controller, error) {
	switch cfg.Controller {
	case "none":
		return control.NewNone(controlDim), nil
	case "manual":
		return control.NewManual(cfg.Manual), nil
	case "pid":
		pidCfg, err := cfg.PID.ToPID()
		if err != nil {
			return nil, err
		}
		loop, err := control.NewLoop(cfg.Backend, pidCfg, opts...)
		if err != nil {
			return nil, err
		}
		steps := make([]control.SetPointStep, len(cfg.Schedule))
		for i, s := range cfg.Schedule {
			steps[i] = control.SetPointStep{At: s.At, Value: s.Value}
		}
		ctrl := control.NewSampled(loop, 0).WithSchedule(steps).WithRecording()
		if cfg.Noise > 0 {
			ctrl.WithNoise(cfg.Noise, cfg.Seed)
		}
		return ctrl, nil
	default:
		return nil, fmt.Errorf("unknown controller: %s", cfg.Controller)
	}
}

func (r *Registry) ListPlants() []string {
	names := make([]string, 0, len(r.plants))
	for name := range r.plants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics tracks the loop's live set-point when there is one.
func (r *Registry) DefaultMetrics(cfg *config.Config, ctrl sim.Controller) []sim.Metric {
	ref := metrics.Constant(cfg.PID.SetPoint)
	if s, ok := ctrl.(*control.Sampled); ok {
		loop := s.Loop()
		ref = func(float64) float64 { return loop.SetPoint() }
	}

	ms := []sim.Metric{
		metrics.NewControlEffort(),
		metrics.NewIAE(ref, 0),
		metrics.NewOvershoot(ref, 0),
		metrics.NewSettlingTime(ref, 0, SettlingBand),
	}
	if cfg.Controller == "pid" {
		ms = append(ms, metrics.NewSaturation(cfg.PID.OutMin, cfg.PID.OutMax))
	}
	return ms
}

// Build validates cfg and wires a ready-to-run experiment.
func (r *Registry) Build(cfg *config.Config, opts ...pid.Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dyn, err := r.GetPlant(cfg.Plant, cfg.PlantParams)
	if err != nil {
		return nil, err
	}
	integ, err := r.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := r.GetController(cfg, dyn.ControlDim(), opts...)
	if err != nil {
		return nil, err
	}

	exp := New(cfg)
	if err := exp.Setup(dyn, integ, ctrl, r.DefaultMetrics(cfg, ctrl)); err != nil {
		return nil, err
	}
	return exp, nil
}
