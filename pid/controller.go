package pid

import (
	"math"
	"time"
)

// Controller is a discrete-time PID controller over the numeric type N.
//
// The derivative acts on the measurement rather than on the error, so a
// set-point step does not kick the output. The integral accumulator and the
// output are both clamped to the output limits.
type Controller[N any] struct {
	arith Arithmetic[N]
	hook  DebugHook

	// actual gains as given by the caller
	kp, ki, kd N
	// gains scaled by sample period and direction
	zp, zi, zd N

	period time.Duration
	dir    Direction
	mode   OutputMode

	setPoint   N
	prevInput  N
	prevOutput N

	err   N
	pTerm N
	iTerm N
	dTerm N

	outMin, outMax N

	// Update calls so far; saturates at math.MaxUint32.
	ticks uint32
}

// New builds a controller on the given arithmetic backend and initializes it
// with cfg.
func New[N any](arith Arithmetic[N], cfg Config[N], opts ...Option) (*Controller[N], error) {
	if arith == nil {
		return nil, ErrNoArithmetic
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	c := &Controller[N]{arith: arith, hook: o.hook}
	if err := c.Init(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFloat64 is New with the float64 backend.
func NewFloat64(cfg Config[float64], opts ...Option) (*Controller[float64], error) {
	return New[float64](Float[float64]{}, cfg, opts...)
}

// Init validates cfg and, if it is acceptable, replaces all tuning and
// running state. On error the controller is left as it was.
func (c *Controller[N]) Init(cfg Config[N]) error {
	if !c.arith.Less(cfg.OutMin, cfg.OutMax) {
		return ErrInvalidLimits
	}
	if cfg.SamplePeriod <= 0 {
		return ErrInvalidPeriod
	}
	if !cfg.Direction.valid() {
		return ErrUnknownDirection
	}
	if !cfg.Mode.valid() {
		return ErrUnknownOutputMode
	}
	if c.negative(cfg.Kp) || c.negative(cfg.Ki) || c.negative(cfg.Kd) {
		return ErrNegativeGain
	}

	c.outMin, c.outMax = cfg.OutMin, cfg.OutMax
	c.period = cfg.SamplePeriod
	c.dir = cfg.Direction
	c.mode = cfg.Mode
	c.applyTunings(cfg.Kp, cfg.Ki, cfg.Kd)
	c.setPoint = cfg.SetPoint
	c.Reset()

	c.emit()
	return nil
}

// Update runs one control step with the latest measurement and returns the
// clamped output. It must be called once per sample period. A NaN or
// infinite measurement is skipped: the last output is returned and no state
// changes.
func (c *Controller[N]) Update(input N) N {
	a := c.arith

	if f := a.Float(input); math.IsNaN(f) || math.IsInf(f, 0) {
		return clamp(a, c.prevOutput, c.outMin, c.outMax)
	}

	c.err = a.Sub(c.setPoint, input)

	c.iTerm = clamp(a, a.Add(c.iTerm, a.Mul(c.zi, c.err)), c.outMin, c.outMax)

	// No previous sample on the first tick, so no derivative action.
	if c.ticks > 0 {
		inputChange := a.Sub(input, c.prevInput)
		c.dTerm = a.Neg(a.Mul(c.zd, inputChange))
	}

	c.pTerm = a.Mul(c.zp, c.err)

	out := a.Add(a.Add(c.pTerm, c.iTerm), c.dTerm)
	if c.mode == Accumulating {
		out = a.Add(c.prevOutput, out)
	}
	out = clamp(a, out, c.outMin, c.outMax)

	c.prevInput = input
	c.prevOutput = out
	if c.ticks < math.MaxUint32 {
		c.ticks++
	}
	return out
}

// SetTunings replaces the gains. Negative gains are rejected with
// ErrNegativeGain.
func (c *Controller[N]) SetTunings(kp, ki, kd N) error {
	if c.negative(kp) || c.negative(ki) || c.negative(kd) {
		return ErrNegativeGain
	}
	c.applyTunings(kp, ki, kd)
	c.emit()
	return nil
}

func (c *Controller[N]) applyTunings(kp, ki, kd N) {
	a := c.arith
	c.kp, c.ki, c.kd = kp, ki, kd

	seconds := a.FromFloat(c.period.Seconds())
	c.zp = kp
	c.zi = a.Mul(ki, seconds)
	c.zd = a.Div(kd, seconds)

	if c.dir == Reverse {
		c.invert()
	}
}

// SetOutputLimits changes the clamp range. The current integral and output
// are not re-clamped until the next Update.
func (c *Controller[N]) SetOutputLimits(lo, hi N) error {
	if !c.arith.Less(lo, hi) {
		return ErrInvalidLimits
	}
	c.outMin, c.outMax = lo, hi
	return nil
}

// SetControllerDirection switches between Direct and Reverse. The scaled
// gains flip sign only when the direction actually changes.
func (c *Controller[N]) SetControllerDirection(dir Direction) error {
	if !dir.valid() {
		return ErrUnknownDirection
	}
	if dir == c.dir {
		return nil
	}
	c.invert()
	c.dir = dir
	c.emit()
	return nil
}

// SetSamplePeriod rescales the integral and derivative gains so the
// continuous-time behaviour is unchanged at the new tick rate.
func (c *Controller[N]) SetSamplePeriod(period time.Duration) error {
	if period <= 0 {
		return ErrInvalidPeriod
	}
	a := c.arith
	ratio := a.FromFloat(float64(period) / float64(c.period))
	c.zi = a.Mul(c.zi, ratio)
	c.zd = a.Div(c.zd, ratio)
	c.period = period
	c.emit()
	return nil
}

// SetOutputMode switches between position-form and velocity-form output.
func (c *Controller[N]) SetOutputMode(mode OutputMode) error {
	if !mode.valid() {
		return ErrUnknownOutputMode
	}
	c.mode = mode
	return nil
}

// SetSetPoint changes the target used from the next Update on.
func (c *Controller[N]) SetSetPoint(sp N) { c.setPoint = sp }

// SetDebugHook replaces the tuning report sink; nil disables reporting.
func (c *Controller[N]) SetDebugHook(h DebugHook) { c.hook = h }

// Reset clears the running state and keeps tuning, limits and set-point.
func (c *Controller[N]) Reset() {
	zero := c.arith.FromFloat(0)
	c.prevInput = zero
	c.prevOutput = zero
	c.err = zero
	c.pTerm = zero
	c.iTerm = zero
	c.dTerm = zero
	c.ticks = 0
}

func (c *Controller[N]) Kp() N { return c.kp }
func (c *Controller[N]) Ki() N { return c.ki }
func (c *Controller[N]) Kd() N { return c.kd }
func (c *Controller[N]) Zp() N { return c.zp }
func (c *Controller[N]) Zi() N { return c.zi }
func (c *Controller[N]) Zd() N { return c.zd }

func (c *Controller[N]) SetPoint() N { return c.setPoint }

// Output is the clamped output stored by the last Update.
func (c *Controller[N]) Output() N { return c.prevOutput }

func (c *Controller[N]) OutputLimits() (lo, hi N)    { return c.outMin, c.outMax }
func (c *Controller[N]) SamplePeriod() time.Duration { return c.period }
func (c *Controller[N]) Direction() Direction        { return c.dir }
func (c *Controller[N]) Mode() OutputMode            { return c.mode }

// Ticks counts updates since Init or Reset, saturating at math.MaxUint32.
func (c *Controller[N]) Ticks() uint32 { return c.ticks }

func (c *Controller[N]) Arithmetic() Arithmetic[N] { return c.arith }

// Terms returns the working values computed by the last Update.
func (c *Controller[N]) Terms() Terms[N] {
	return Terms[N]{
		Error:        c.err,
		Proportional: c.pTerm,
		Integral:     c.iTerm,
		Derivative:   c.dTerm,
	}
}

// Report returns the current tuning as float64 values.
func (c *Controller[N]) Report() Report {
	a := c.arith
	return Report{
		Kp:           a.Float(c.kp),
		Ki:           a.Float(c.ki),
		Kd:           a.Float(c.kd),
		Zp:           a.Float(c.zp),
		Zi:           a.Float(c.zi),
		Zd:           a.Float(c.zd),
		SamplePeriod: c.period,
		Direction:    c.dir,
	}
}

func (c *Controller[N]) invert() {
	a := c.arith
	c.zp = a.Neg(c.zp)
	c.zi = a.Neg(c.zi)
	c.zd = a.Neg(c.zd)
}

func (c *Controller[N]) negative(v N) bool {
	return c.arith.Less(v, c.arith.FromFloat(0))
}

func (c *Controller[N]) emit() {
	if c.hook != nil {
		c.hook(c.Report())
	}
}
