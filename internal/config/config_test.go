package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/pidloop/pid"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Plant != "first_order" {
		t.Errorf("expected plant first_order, got %s", cfg.Plant)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pidloop.yaml")

	cfg := DefaultConfig()
	cfg.Plant = "thermal"
	cfg.PID.Direction = "reverse"
	cfg.PID.SamplePeriod = 250 * time.Millisecond
	cfg.Schedule = []StepConfig{{At: 5, Value: 50}}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Plant != "thermal" {
		t.Errorf("expected plant thermal, got %s", loaded.Plant)
	}
	if loaded.PID.SamplePeriod != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", loaded.PID.SamplePeriod)
	}
	if len(loaded.Schedule) != 1 || loaded.Schedule[0].Value != 50 {
		t.Errorf("expected schedule to survive, got %v", loaded.Schedule)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "plant: spring_mass\npid:\n  kp: 7\n  sample_period: 20ms\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PID.Kp != 7 {
		t.Errorf("expected kp 7, got %f", cfg.PID.Kp)
	}
	if cfg.PID.SamplePeriod != 20*time.Millisecond {
		t.Errorf("expected 20ms, got %s", cfg.PID.SamplePeriod)
	}
	if cfg.PID.Ki != DefaultKi {
		t.Errorf("expected default ki %f, got %f", DefaultKi, cfg.PID.Ki)
	}
	if cfg.Integrator != "rk4" {
		t.Errorf("expected default integrator, got %s", cfg.Integrator)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		target error
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }, nil},
		{"negative duration", func(c *Config) { c.Duration = -1 }, nil},
		{"negative noise", func(c *Config) { c.Noise = -0.1 }, nil},
		{"unknown controller", func(c *Config) { c.Controller = "lqr" }, nil},
		{"negative gain", func(c *Config) { c.PID.Ki = -1 }, pid.ErrNegativeGain},
		{"inverted limits", func(c *Config) { c.PID.OutMin, c.PID.OutMax = 1, -1 }, pid.ErrInvalidLimits},
		{"zero period", func(c *Config) { c.PID.SamplePeriod = 0 }, pid.ErrInvalidPeriod},
		{"bad direction", func(c *Config) { c.PID.Direction = "sideways" }, pid.ErrUnknownDirection},
		{"bad mode", func(c *Config) { c.PID.Mode = "ratio" }, pid.ErrUnknownOutputMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestValidateSkipsPIDForOpenLoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Controller = "manual"
	cfg.PID.SamplePeriod = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected manual config to validate, got %v", err)
	}
}

func TestToPID(t *testing.T) {
	p := DefaultConfig().PID
	p.Direction = "Reverse"
	p.Mode = "velocity"

	cfg, err := p.ToPID()
	if err != nil {
		t.Fatalf("ToPID failed: %v", err)
	}
	if cfg.Direction != pid.Reverse {
		t.Errorf("expected reverse, got %s", cfg.Direction)
	}
	if cfg.Mode != pid.Accumulating {
		t.Errorf("expected accumulating, got %s", cfg.Mode)
	}
	if cfg.SamplePeriod != DefaultSamplePeriod {
		t.Errorf("expected %s, got %s", DefaultSamplePeriod, cfg.SamplePeriod)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("thermal", "hotend")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.PID.SetPoint != 210 {
		t.Errorf("expected set-point 210, got %f", cfg.PID.SetPoint)
	}

	cfg.PID.SetPoint = 0
	if GetPreset("thermal", "hotend").PID.SetPoint != 210 {
		t.Error("GetPreset should return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("thermal", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "hotend"); cfg != nil {
		t.Error("expected nil for nonexistent plant")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("first_order")
	if len(presets) == 0 {
		t.Fatal("expected presets for first_order")
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1] > presets[i] {
			t.Errorf("expected sorted names, got %v", presets)
		}
	}

	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent plant")
	}
}

func TestPresetsValidate(t *testing.T) {
	for plant, presets := range Presets {
		for name, cfg := range presets {
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", plant, name, err)
			}
			if cfg.Plant != plant {
				t.Errorf("%s/%s: expected plant %s, got %s", plant, name, plant, cfg.Plant)
			}
		}
	}
}

func TestGetInitState(t *testing.T) {
	tests := []struct {
		plant    string
		expected int
	}{
		{"first_order", 1},
		{"integrating", 1},
		{"thermal", 1},
		{"spring_mass", 2},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Plant = tt.plant
		state := cfg.GetInitState()
		if len(state) != tt.expected {
			t.Errorf("plant %s: expected %d states, got %d", tt.plant, tt.expected, len(state))
		}
	}
}
