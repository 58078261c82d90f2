package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/pidloop/fixed"
	"github.com/san-kum/pidloop/pid"
)

const (
	BackendFloat64 = "float64"
	BackendFloat32 = "float32"
	BackendFixed   = "fixed"
)

var ErrUnknownBackend = errors.New("unknown numeric backend")

// Loop exposes a pid.Controller[N] through float64 values.
type Loop interface {
	Update(measurement float64) float64
	SetTunings(kp, ki, kd float64) error
	SetOutputLimits(lo, hi float64) error
	SetControllerDirection(dir pid.Direction) error
	SetSamplePeriod(period time.Duration) error
	SetOutputMode(mode pid.OutputMode) error
	SetSetPoint(sp float64)
	SetDebugHook(h pid.DebugHook)
	Reset()

	SetPoint() float64
	Output() float64
	OutputLimits() (lo, hi float64)
	SamplePeriod() time.Duration
	Direction() pid.Direction
	Mode() pid.OutputMode
	Ticks() uint32
	Terms() pid.Terms[float64]
	Report() pid.Report
	Backend() string
}

func Backends() []string {
	return []string{BackendFloat64, BackendFloat32, BackendFixed}
}

// NewLoop builds a controller on the named backend, converting cfg from
// float64.
func NewLoop(backend string, cfg pid.Config[float64], opts ...pid.Option) (Loop, error) {
	switch backend {
	case BackendFloat64, "":
		return newLoop[float64](BackendFloat64, pid.Float[float64]{}, cfg, opts)
	case BackendFloat32:
		return newLoop[float32](BackendFloat32, pid.Float[float32]{}, cfg, opts)
	case BackendFixed:
		return newLoop[fixed.Q](BackendFixed, fixed.Arithmetic{}, cfg, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func newLoop[N any](name string, arith pid.Arithmetic[N], cfg pid.Config[float64], opts []pid.Option) (Loop, error) {
	c, err := pid.New[N](arith, pid.Config[N]{
		Kp:           arith.FromFloat(cfg.Kp),
		Ki:           arith.FromFloat(cfg.Ki),
		Kd:           arith.FromFloat(cfg.Kd),
		Direction:    cfg.Direction,
		Mode:         cfg.Mode,
		SamplePeriod: cfg.SamplePeriod,
		OutMin:       arith.FromFloat(cfg.OutMin),
		OutMax:       arith.FromFloat(cfg.OutMax),
		SetPoint:     arith.FromFloat(cfg.SetPoint),
	}, opts...)
	if err != nil {
		return nil, err
	}
	return Wrap(name, c), nil
}

// Wrap adapts an existing controller.
func Wrap[N any](name string, c *pid.Controller[N]) Loop {
	return &loop[N]{name: name, c: c, a: c.Arithmetic()}
}

type loop[N any] struct {
	name string
	c    *pid.Controller[N]
	a    pid.Arithmetic[N]
}

func (l *loop[N]) Update(measurement float64) float64 {
	return l.a.Float(l.c.Update(l.a.FromFloat(measurement)))
}

func (l *loop[N]) SetTunings(kp, ki, kd float64) error {
	return l.c.SetTunings(l.a.FromFloat(kp), l.a.FromFloat(ki), l.a.FromFloat(kd))
}

func (l *loop[N]) SetOutputLimits(lo, hi float64) error {
	return l.c.SetOutputLimits(l.a.FromFloat(lo), l.a.FromFloat(hi))
}

func (l *loop[N]) SetControllerDirection(dir pid.Direction) error {
	return l.c.SetControllerDirection(dir)
}

func (l *loop[N]) SetSamplePeriod(period time.Duration) error { return l.c.SetSamplePeriod(period) }
func (l *loop[N]) SetOutputMode(mode pid.OutputMode) error    { return l.c.SetOutputMode(mode) }
func (l *loop[N]) SetSetPoint(sp float64)                     { l.c.SetSetPoint(l.a.FromFloat(sp)) }
func (l *loop[N]) SetDebugHook(h pid.DebugHook)               { l.c.SetDebugHook(h) }
func (l *loop[N]) Reset()                                     { l.c.Reset() }

func (l *loop[N]) SetPoint() float64           { return l.a.Float(l.c.SetPoint()) }
func (l *loop[N]) Output() float64             { return l.a.Float(l.c.Output()) }
func (l *loop[N]) SamplePeriod() time.Duration { return l.c.SamplePeriod() }
func (l *loop[N]) Direction() pid.Direction    { return l.c.Direction() }
func (l *loop[N]) Mode() pid.OutputMode        { return l.c.Mode() }
func (l *loop[N]) Ticks() uint32               { return l.c.Ticks() }
func (l *loop[N]) Report() pid.Report          { return l.c.Report() }
func (l *loop[N]) Backend() string             { return l.name }

func (l *loop[N]) OutputLimits() (lo, hi float64) {
	cLo, cHi := l.c.OutputLimits()
	return l.a.Float(cLo), l.a.Float(cHi)
}

func (l *loop[N]) Terms() pid.Terms[float64] {
	t := l.c.Terms()
	return pid.Terms[float64]{
		Error:        l.a.Float(t.Error),
		Proportional: l.a.Float(t.Proportional),
		Integral:     l.a.Float(t.Integral),
		Derivative:   l.a.Float(t.Derivative),
	}
}
