package integrators

import "github.com/san-kum/pidloop/internal/sim"

// Euler is the explicit first-order method.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t float64, dt float64) sim.State {
	dx := dyn.Derivative(x, u, t)
	result := make(sim.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

// Heun is the explicit trapezoidal method.
type Heun struct {
	scratch sim.State
}

func NewHeun() *Heun {
	return &Heun{}
}

func (h *Heun) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t float64, dt float64) sim.State {
	n := len(x)
	if len(h.scratch) != n {
		h.scratch = make(sim.State, n)
	}

	k1 := dyn.Derivative(x, u, t)
	for i := 0; i < n; i++ {
		h.scratch[i] = x[i] + dt*k1[i]
	}
	k2 := dyn.Derivative(h.scratch, u, t+dt)

	result := make(sim.State, n)
	for i := 0; i < n; i++ {
		result[i] = x[i] + 0.5*dt*(k1[i]+k2[i])
	}
	return result
}
