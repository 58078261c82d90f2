package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pidloop/pid"
)

const (
	DefaultDt           = 0.01
	DefaultDuration     = 20.0
	DefaultSamplePeriod = 100 * time.Millisecond
	DefaultKp           = 2.0
	DefaultKi           = 1.0
	DefaultKd           = 0.0
	DefaultSetPoint     = 10.0
	DefaultOutLimit     = 100.0
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Plant       string          `yaml:"plant"`
	Integrator  string          `yaml:"integrator"`
	Controller  string          `yaml:"controller"`
	Backend     string          `yaml:"backend"`
	Dt          float64         `yaml:"dt"`
	Duration    float64         `yaml:"duration"`
	Seed        int64           `yaml:"seed"`
	Noise       float64         `yaml:"noise"`
	Manual      float64         `yaml:"manual_output"`
	InitState   InitStateConfig `yaml:"init_state"`
	PID         PIDConfig       `yaml:"pid"`
	PlantParams PlantConfig     `yaml:"plant_params"`
	Schedule    []StepConfig    `yaml:"schedule,omitempty"`
}

type InitStateConfig struct {
	Value float64 `yaml:"value"`
	Rate  float64 `yaml:"rate"`
}

type PIDConfig struct {
	Kp           float64       `yaml:"kp"`
	Ki           float64       `yaml:"ki"`
	Kd           float64       `yaml:"kd"`
	Direction    string        `yaml:"direction"`
	Mode         string        `yaml:"mode"`
	SamplePeriod time.Duration `yaml:"sample_period"`
	OutMin       float64       `yaml:"out_min"`
	OutMax       float64       `yaml:"out_max"`
	SetPoint     float64       `yaml:"set_point"`
}

type PlantConfig struct {
	Gain      float64 `yaml:"gain"`
	Tau       float64 `yaml:"tau"`
	Leak      float64 `yaml:"leak"`
	Power     float64 `yaml:"power"`
	Loss      float64 `yaml:"loss"`
	Capacity  float64 `yaml:"capacity"`
	Ambient   float64 `yaml:"ambient"`
	Mass      float64 `yaml:"mass"`
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
}

// StepConfig changes the set-point at a simulation time in seconds.
type StepConfig struct {
	At    float64 `yaml:"at"`
	Value float64 `yaml:"value"`
}

func DefaultConfig() *Config {
	return &Config{
		Plant:      "first_order",
		Integrator: "rk4",
		Controller: "pid",
		Backend:    "float64",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		PID: PIDConfig{
			Kp:           DefaultKp,
			Ki:           DefaultKi,
			Kd:           DefaultKd,
			Direction:    pid.Direct.String(),
			Mode:         pid.NonAccumulating.String(),
			SamplePeriod: DefaultSamplePeriod,
			OutMin:       -DefaultOutLimit,
			OutMax:       DefaultOutLimit,
			SetPoint:     DefaultSetPoint,
		},
		PlantParams: PlantConfig{
			Gain:      1.0,
			Tau:       1.0,
			Power:     40.0,
			Loss:      0.15,
			Capacity:  8.0,
			Ambient:   25.0,
			Mass:      1.0,
			Stiffness: 10.0,
			Damping:   0.5,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first problem found, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidConfig, c.Duration)
	}
	if c.Noise < 0 {
		return fmt.Errorf("%w: noise must not be negative, got %g", ErrInvalidConfig, c.Noise)
	}
	switch c.Controller {
	case "pid", "none", "manual":
	default:
		return fmt.Errorf("%w: unknown controller %q", ErrInvalidConfig, c.Controller)
	}
	if c.Controller != "pid" {
		return nil
	}
	if _, err := c.PID.ToPID(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ToPID parses the controller section. Gain, limit and period checks are
// left to pid.New so there is one source of truth.
func (p PIDConfig) ToPID() (pid.Config[float64], error) {
	dir, err := pid.ParseDirection(p.Direction)
	if err != nil {
		return pid.Config[float64]{}, err
	}
	mode, err := pid.ParseOutputMode(p.Mode)
	if err != nil {
		return pid.Config[float64]{}, err
	}
	cfg := pid.Config[float64]{
		Kp:           p.Kp,
		Ki:           p.Ki,
		Kd:           p.Kd,
		Direction:    dir,
		Mode:         mode,
		SamplePeriod: p.SamplePeriod,
		OutMin:       p.OutMin,
		OutMax:       p.OutMax,
		SetPoint:     p.SetPoint,
	}
	if _, err := pid.NewFloat64(cfg); err != nil {
		return pid.Config[float64]{}, err
	}
	return cfg, nil
}

func (c *Config) GetInitState() []float64 {
	switch c.Plant {
	case "spring_mass":
		return []float64{c.InitState.Value, c.InitState.Rate}
	default:
		return []float64{c.InitState.Value}
	}
}
