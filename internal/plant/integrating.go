package plant

import (
	"fmt"

	"github.com/san-kum/pidloop/internal/sim"
)

// Integrating is dy/dt = K·u - L·y. With zero leak it is a pure integrator,
// which holds its position when the input drops to zero.
type Integrating struct {
	Gain float64
	Leak float64
}

func NewIntegrating() *Integrating {
	return &Integrating{Gain: 1.0}
}

func (p *Integrating) StateDim() int   { return 1 }
func (p *Integrating) ControlDim() int { return 1 }

func (p *Integrating) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	return sim.State{p.Gain*input(u) - p.Leak*x[0]}
}

func (p *Integrating) GetParams() map[string]float64 {
	return map[string]float64{
		"gain": p.Gain,
		"leak": p.Leak,
	}
}

func (p *Integrating) SetParam(name string, value float64) error {
	switch name {
	case "gain":
		p.Gain = value
	case "leak":
		if value < 0 {
			return fmt.Errorf("leak must not be negative, got %g", value)
		}
		p.Leak = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
