package control

import "github.com/san-kum/pidloop/internal/sim"

// None drives every input to zero, the free response of the plant.
type None struct {
	dim int
}

func NewNone(dim int) *None {
	return &None{
		dim: dim,
	}
}

func (n *None) Compute(x sim.State, t float64) sim.Control {
	return make(sim.Control, n.dim)
}
