package plant

import (
	"math"
	"testing"

	"github.com/san-kum/pidloop/internal/integrators"
	"github.com/san-kum/pidloop/internal/sim"
)

func settle(dyn sim.Dynamics, x sim.State, u float64, seconds float64) sim.State {
	integ := integrators.NewRK4()
	dt := 0.01
	steps := int(math.Round(seconds / dt))
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, sim.Control{u}, float64(i)*dt, dt)
	}
	return x
}

func TestFirstOrderStep(t *testing.T) {
	p := &FirstOrder{Gain: 2, Tau: 0.5}

	x := settle(p, sim.State{0}, 1.5, 0.5)
	expected := 3 * (1 - math.Exp(-1))
	if math.Abs(x[0]-expected) > 1e-6 {
		t.Errorf("expected %.6f after one time constant, got %.6f", expected, x[0])
	}

	x = settle(p, x, 1.5, 10)
	if math.Abs(x[0]-p.Steady(1.5)) > 1e-6 {
		t.Errorf("expected steady state %.3f, got %.6f", p.Steady(1.5), x[0])
	}
}

func TestIntegratingHoldsPosition(t *testing.T) {
	p := NewIntegrating()

	x := settle(p, sim.State{0}, 2, 1)
	if math.Abs(x[0]-2) > 1e-9 {
		t.Errorf("expected 2, got %f", x[0])
	}

	x = settle(p, x, 0, 5)
	if math.Abs(x[0]-2) > 1e-9 {
		t.Errorf("expected position held at 2, got %f", x[0])
	}
}

func TestIntegratingLeak(t *testing.T) {
	p := &Integrating{Gain: 1, Leak: 0.5}
	x := settle(p, sim.State{0}, 1, 30)
	if math.Abs(x[0]-2) > 1e-4 {
		t.Errorf("expected leak equilibrium 2, got %f", x[0])
	}
}

func TestThermalDutyClipped(t *testing.T) {
	p := NewThermal()
	x := sim.State{p.Ambient}

	full := p.Derivative(x, sim.Control{1}, 0)
	over := p.Derivative(x, sim.Control{5}, 0)
	if full[0] != over[0] {
		t.Errorf("expected duty clipped to 1: %f vs %f", full[0], over[0])
	}

	cool := p.Derivative(sim.State{100}, sim.Control{-1}, 0)
	idle := p.Derivative(sim.State{100}, sim.Control{0}, 0)
	if cool[0] != idle[0] {
		t.Errorf("expected negative duty clipped to 0: %f vs %f", cool[0], idle[0])
	}
}

func TestThermalEquilibrium(t *testing.T) {
	p := NewThermal()
	tau := p.Capacity / p.Loss
	x := settle(p, sim.State{p.Ambient}, 1, 12*tau)
	if math.Abs(x[0]-p.MaxTemperature()) > 0.01 {
		t.Errorf("expected %.2f at full duty, got %.2f", p.MaxTemperature(), x[0])
	}
}

func TestSpringMassDerivative(t *testing.T) {
	sm := NewSpringMass()

	dx := sm.Derivative(sim.State{0, 0}, sim.Control{0}, 0)
	if dx[0] != 0 || dx[1] != 0 {
		t.Errorf("expected rest at equilibrium, got %v", dx)
	}

	dx = sm.Derivative(sim.State{1, 0}, sim.Control{0}, 0)
	expectedAcc := -DefaultStiffness / DefaultMass
	if math.Abs(dx[1]-expectedAcc) > 1e-9 {
		t.Errorf("expected acceleration %f, got %f", expectedAcc, dx[1])
	}
}

func TestSpringMassStaticDeflection(t *testing.T) {
	sm := NewSpringMass()
	x := settle(sm, sim.State{0, 0}, 5, 60)
	expected := 5 / DefaultStiffness
	if math.Abs(x[0]-expected) > 1e-4 {
		t.Errorf("expected deflection %f, got %f", expected, x[0])
	}
	if sm.Energy(x) <= 0 {
		t.Error("expected stored spring energy")
	}
}

func TestSetParam(t *testing.T) {
	tests := []struct {
		name    string
		plant   sim.Configurable
		param   string
		value   float64
		wantErr bool
	}{
		{"first order tau", NewFirstOrder(), "tau", 3, false},
		{"first order zero tau", NewFirstOrder(), "tau", 0, true},
		{"integrating leak", NewIntegrating(), "leak", 0.1, false},
		{"integrating negative leak", NewIntegrating(), "leak", -1, true},
		{"thermal power", NewThermal(), "power", 60, false},
		{"thermal zero capacity", NewThermal(), "capacity", 0, true},
		{"spring damping", NewSpringMass(), "damping", 2, false},
		{"spring zero mass", NewSpringMass(), "mass", 0, true},
		{"unknown", NewSpringMass(), "gravity", 9.81, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plant.SetParam(tt.param, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err == nil && tt.plant.GetParams()[tt.param] != tt.value {
				t.Errorf("expected %s=%g, got %g", tt.param, tt.value, tt.plant.GetParams()[tt.param])
			}
		})
	}
}
