package plant

import (
	"fmt"

	"github.com/san-kum/pidloop/internal/sim"
)

// FirstOrder is tau·dy/dt = K·u - y.
type FirstOrder struct {
	Gain float64
	Tau  float64
}

func NewFirstOrder() *FirstOrder {
	return &FirstOrder{Gain: 1.0, Tau: 1.0}
}

func (p *FirstOrder) StateDim() int   { return 1 }
func (p *FirstOrder) ControlDim() int { return 1 }

func (p *FirstOrder) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	return sim.State{(p.Gain*input(u) - x[0]) / p.Tau}
}

// Steady returns the value y settles at under a constant input.
func (p *FirstOrder) Steady(u float64) float64 { return p.Gain * u }

func (p *FirstOrder) GetParams() map[string]float64 {
	return map[string]float64{
		"gain": p.Gain,
		"tau":  p.Tau,
	}
}

func (p *FirstOrder) SetParam(name string, value float64) error {
	switch name {
	case "gain":
		p.Gain = value
	case "tau":
		if value <= 0 {
			return fmt.Errorf("tau must be positive, got %g", value)
		}
		p.Tau = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

func input(u sim.Control) float64 {
	if len(u) == 0 {
		return 0
	}
	return u[0]
}
