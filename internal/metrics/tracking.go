package metrics

import (
	"math"

	"github.com/san-kum/pidloop/internal/sim"
)

// Reference is the set-point the measurement should follow.
type Reference func(t float64) float64

func Constant(v float64) Reference {
	return func(float64) float64 { return v }
}

// IAE is the integral of absolute error over time.
type IAE struct {
	ref   Reference
	index int
	sum   float64
	prevT float64
	prevE float64
	seen  bool
}

func NewIAE(ref Reference, index int) *IAE {
	return &IAE{ref: ref, index: index}
}

func (m *IAE) Name() string { return "iae" }

func (m *IAE) Observe(x sim.State, u sim.Control, t float64) {
	e := math.Abs(m.ref(t) - x[m.index])
	if m.seen {
		m.sum += 0.5 * (e + m.prevE) * (t - m.prevT)
	}
	m.prevT, m.prevE, m.seen = t, e, true
}

func (m *IAE) Value() float64 { return m.sum }

func (m *IAE) Reset() {
	m.sum = 0
	m.seen = false
}

// Overshoot is the peak excursion past the set-point as a percentage of the
// initial step. The step is taken from the first observation.
type Overshoot struct {
	ref   Reference
	index int
	start float64
	peak  float64
	seen  bool
}

func NewOvershoot(ref Reference, index int) *Overshoot {
	return &Overshoot{ref: ref, index: index}
}

func (m *Overshoot) Name() string { return "overshoot_pct" }

func (m *Overshoot) Observe(x sim.State, u sim.Control, t float64) {
	y := x[m.index]
	if !m.seen {
		m.start = y
		m.seen = true
	}
	sp := m.ref(t)
	step := sp - m.start
	if step == 0 {
		return
	}
	excess := (y - sp) / step
	if excess > m.peak {
		m.peak = excess
	}
}

func (m *Overshoot) Value() float64 { return 100 * m.peak }

func (m *Overshoot) Reset() {
	m.peak = 0
	m.seen = false
}

// SettlingTime is the last time the measurement was outside a band around
// the set-point. The band is a fraction of the initial step.
type SettlingTime struct {
	ref   Reference
	index int
	band  float64
	start float64
	last  float64
	seen  bool
}

func NewSettlingTime(ref Reference, index int, band float64) *SettlingTime {
	return &SettlingTime{ref: ref, index: index, band: band}
}

func (m *SettlingTime) Name() string { return "settling_time" }

func (m *SettlingTime) Observe(x sim.State, u sim.Control, t float64) {
	y := x[m.index]
	if !m.seen {
		m.start = y
		m.seen = true
	}
	sp := m.ref(t)
	width := m.band * math.Abs(sp-m.start)
	if math.Abs(y-sp) > width {
		m.last = t
	}
}

func (m *SettlingTime) Value() float64 { return m.last }

func (m *SettlingTime) Reset() {
	m.last = 0
	m.seen = false
}
