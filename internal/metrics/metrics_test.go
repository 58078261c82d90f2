package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/pidloop/internal/sim"
)

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	m.Observe(nil, sim.Control{2}, 0)
	m.Observe(nil, sim.Control{-4}, 1)
	if m.Value() != 3 {
		t.Errorf("expected 3, got %f", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero effort after reset")
	}
}

func TestSaturation(t *testing.T) {
	m := NewSaturation(0, 1)
	for _, u := range []float64{0, 0.5, 1, 1} {
		m.Observe(nil, sim.Control{u}, 0)
	}
	if m.Value() != 0.75 {
		t.Errorf("expected 0.75, got %f", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestIAE(t *testing.T) {
	m := NewIAE(Constant(1), 0)
	// error falls linearly from 1 to 0 over two seconds
	m.Observe(sim.State{0}, nil, 0)
	m.Observe(sim.State{0.5}, nil, 1)
	m.Observe(sim.State{1}, nil, 2)
	if math.Abs(m.Value()-1) > 1e-12 {
		t.Errorf("expected 1, got %f", m.Value())
	}

	m.Reset()
	m.Observe(sim.State{3}, nil, 5)
	if m.Value() != 0 {
		t.Errorf("expected 0 after a single sample, got %f", m.Value())
	}
}

func TestOvershoot(t *testing.T) {
	tests := []struct {
		name     string
		ref      float64
		trace    []float64
		expected float64
	}{
		{"rising", 10, []float64{0, 5, 12, 9, 10}, 20},
		{"falling", 0, []float64{10, 4, -1, 0}, 10},
		{"no overshoot", 10, []float64{0, 5, 9, 10}, 0},
		{"no step", 5, []float64{5, 6, 5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewOvershoot(Constant(tt.ref), 0)
			for i, y := range tt.trace {
				m.Observe(sim.State{y}, nil, float64(i))
			}
			if math.Abs(m.Value()-tt.expected) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.expected, m.Value())
			}
		})
	}
}

func TestSettlingTime(t *testing.T) {
	m := NewSettlingTime(Constant(10), 0, 0.05)
	trace := []float64{0, 8, 11, 9.7, 10.2, 10.1}
	for i, y := range trace {
		m.Observe(sim.State{y}, nil, float64(i))
	}
	if m.Value() != 2 {
		t.Errorf("expected settling at t=2, got %f", m.Value())
	}
}
