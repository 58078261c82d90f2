package plant

import (
	"fmt"

	"github.com/san-kum/pidloop/internal/sim"
)

const DefaultAmbient = 25.0

// Thermal is a heater block: C·dT/dt = P·u - H·(T - Ta).
// The input is the heater duty cycle and is clipped to [0, 1].
type Thermal struct {
	Power    float64 // W at full duty
	Loss     float64 // W/°C to ambient
	Capacity float64 // J/°C
	Ambient  float64 // °C
}

// NewThermal returns a small 40 W hotend.
func NewThermal() *Thermal {
	return &Thermal{
		Power:    40.0,
		Loss:     0.15,
		Capacity: 8.0,
		Ambient:  DefaultAmbient,
	}
}

func (p *Thermal) StateDim() int   { return 1 }
func (p *Thermal) ControlDim() int { return 1 }

func (p *Thermal) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	duty := input(u)
	if duty < 0 {
		duty = 0
	} else if duty > 1 {
		duty = 1
	}
	return sim.State{(p.Power*duty - p.Loss*(x[0]-p.Ambient)) / p.Capacity}
}

// MaxTemperature is the equilibrium at full duty.
func (p *Thermal) MaxTemperature() float64 {
	return p.Ambient + p.Power/p.Loss
}

func (p *Thermal) GetParams() map[string]float64 {
	return map[string]float64{
		"power":    p.Power,
		"loss":     p.Loss,
		"capacity": p.Capacity,
		"ambient":  p.Ambient,
	}
}

func (p *Thermal) SetParam(name string, value float64) error {
	switch name {
	case "power":
		p.Power = value
	case "loss":
		if value <= 0 {
			return fmt.Errorf("loss must be positive, got %g", value)
		}
		p.Loss = value
	case "capacity":
		if value <= 0 {
			return fmt.Errorf("capacity must be positive, got %g", value)
		}
		p.Capacity = value
	case "ambient":
		p.Ambient = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
