package control

import (
	"fmt"

	"github.com/san-kum/pidloop/internal/sim"
)

// Manual holds a fixed output, the open-loop step test used to read a
// plant's gain and time constant before tuning.
type Manual struct {
	Value float64
}

func NewManual(value float64) *Manual {
	return &Manual{Value: value}
}

func (m *Manual) Compute(x sim.State, t float64) sim.Control {
	return sim.Control{m.Value}
}

func (m *Manual) GetParams() map[string]float64 {
	return map[string]float64{"output": m.Value}
}

func (m *Manual) SetParam(name string, value float64) error {
	if name != "output" {
		return fmt.Errorf("unknown param: %s", name)
	}
	m.Value = value
	return nil
}
