package metrics

import (
	"math"

	"github.com/san-kum/pidloop/internal/sim"
)

// ControlEffort is the mean absolute controller output.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x sim.State, u sim.Control, t float64) {
	for _, val := range u {
		c.sum += math.Abs(val)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Saturation is the fraction of samples where the output sits on a limit.
type Saturation struct {
	lo, hi    float64
	saturated int
	samples   int
}

func NewSaturation(lo, hi float64) *Saturation {
	return &Saturation{lo: lo, hi: hi}
}

func (s *Saturation) Name() string { return "saturation" }

func (s *Saturation) Observe(x sim.State, u sim.Control, t float64) {
	s.samples++
	if len(u) == 0 {
		return
	}
	tol := 1e-9 * math.Max(1, s.hi-s.lo)
	if u[0] <= s.lo+tol || u[0] >= s.hi-tol {
		s.saturated++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}
