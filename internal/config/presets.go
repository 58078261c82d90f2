package config

import (
	"sort"
	"time"

	"github.com/san-kum/pidloop/pid"
)

func preset(apply func(c *Config)) *Config {
	c := DefaultConfig()
	apply(c)
	return c
}

var Presets = map[string]map[string]*Config{
	"first_order": {
		"default": DefaultConfig(),
		"noisy": preset(func(c *Config) {
			c.Noise = 0.2
			c.Seed = 1
			c.PID.Kd = 0.2
		}),
		"slow_sample": preset(func(c *Config) {
			c.PID.SamplePeriod = 700 * time.Millisecond
		}),
		"velocity": preset(func(c *Config) {
			c.PID.Mode = pid.Accumulating.String()
			c.PID.Kp, c.PID.Ki, c.PID.Kd = 0.2, 0, 0
		}),
		"steps": preset(func(c *Config) {
			c.Duration = 40
			c.Schedule = []StepConfig{{At: 15, Value: 20}, {At: 30, Value: 5}}
		}),
	},
	"integrating": {
		"position": preset(func(c *Config) {
			c.Plant = "integrating"
			c.PID.Kp, c.PID.Ki, c.PID.Kd = 1.5, 0, 0.1
			c.PID.OutMin, c.PID.OutMax = -5, 5
		}),
	},
	"thermal": {
		"hotend": preset(func(c *Config) {
			c.Plant = "thermal"
			c.Duration = 300
			c.InitState.Value = 25
			c.PID.Kp, c.PID.Ki, c.PID.Kd = 0.087, 0.0042, 0.1
			c.PID.OutMin, c.PID.OutMax = 0, 1
			c.PID.SetPoint = 210
		}),
		"bed": preset(func(c *Config) {
			c.Plant = "thermal"
			c.Dt = 0.1
			c.Duration = 1200
			c.InitState.Value = 25
			c.PlantParams.Power, c.PlantParams.Loss, c.PlantParams.Capacity = 200, 1.2, 400
			c.PID.Kp, c.PID.Ki, c.PID.Kd = 0.3, 0.003, 1
			c.PID.SamplePeriod = time.Second
			c.PID.OutMin, c.PID.OutMax = 0, 1
			c.PID.SetPoint = 60
		}),
		"fixed": preset(func(c *Config) {
			c.Plant = "thermal"
			c.Backend = "fixed"
			c.Duration = 300
			c.InitState.Value = 25
			c.PID.Kp, c.PID.Ki, c.PID.Kd = 0.087, 0.0042, 0.1
			c.PID.OutMin, c.PID.OutMax = 0, 1
			c.PID.SetPoint = 210
		}),
	},
	"spring_mass": {
		"position": preset(func(c *Config) {
			c.Plant = "spring_mass"
			c.Dt = 0.001
			c.Duration = 10
			c.PID.Kp, c.PID.Ki, c.PID.Kd = 30, 20, 4
			c.PID.SamplePeriod = 10 * time.Millisecond
			c.PID.SetPoint = 1
		}),
		"open_loop": preset(func(c *Config) {
			c.Plant = "spring_mass"
			c.Controller = "manual"
			c.Manual = 5
			c.Dt = 0.001
			c.Duration = 20
		}),
	},
}

func GetPreset(plant, name string) *Config {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	cfg, ok := plantPresets[name]
	if !ok {
		return nil
	}
	clone := *cfg
	clone.Schedule = append([]StepConfig(nil), cfg.Schedule...)
	return &clone
}

func ListPresets(plant string) []string {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(plantPresets))
	for name := range plantPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
