package pid

import (
	"fmt"
	"strings"
	"time"
)

// Direction relates the sign of the error to the sign of the output.
type Direction int

const (
	// Direct: a positive error gives a positive output.
	Direct Direction = iota
	// Reverse: a positive error gives a negative output.
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Direct:
		return "direct"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

func (d Direction) valid() bool { return d == Direct || d == Reverse }

// ParseDirection accepts "direct" or "reverse", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct", "":
		return Direct, nil
	case "reverse":
		return Reverse, nil
	}
	return Direct, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// OutputMode selects position-form or velocity-form output.
type OutputMode int

const (
	// NonAccumulating recomputes the output from scratch every tick.
	NonAccumulating OutputMode = iota
	// Accumulating adds each tick's result onto the previous output.
	Accumulating

	DistancePID = NonAccumulating
	VelocityPID = Accumulating
)

func (m OutputMode) String() string {
	switch m {
	case NonAccumulating:
		return "non_accumulating"
	case Accumulating:
		return "accumulating"
	default:
		return fmt.Sprintf("OutputMode(%d)", int(m))
	}
}

func (m OutputMode) valid() bool { return m == NonAccumulating || m == Accumulating }

// ParseOutputMode accepts the String forms plus "distance" and "velocity".
func ParseOutputMode(s string) (OutputMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "non_accumulating", "non-accumulating", "distance", "":
		return NonAccumulating, nil
	case "accumulating", "velocity":
		return Accumulating, nil
	}
	return NonAccumulating, fmt.Errorf("%w: %q", ErrUnknownOutputMode, s)
}

// Config holds everything Init needs. None of these fields has a reliable
// default, so all of them must be set.
type Config[N any] struct {
	Kp, Ki, Kd   N
	Direction    Direction
	Mode         OutputMode
	SamplePeriod time.Duration
	OutMin       N
	OutMax       N
	SetPoint     N
}

// Terms is a snapshot of the working values from the most recent Update.
type Terms[N any] struct {
	Error        N
	Proportional N
	Integral     N
	Derivative   N
}

// Report summarises the current tuning for diagnostics.
type Report struct {
	Kp, Ki, Kd   float64
	Zp, Zi, Zd   float64
	SamplePeriod time.Duration
	Direction    Direction
}

func (r Report) String() string {
	return fmt.Sprintf("PID: Tuning parameters set. Kp = %.1f, Ki = %.1f, Kd = %.1f, "+
		"Zp = %.1f, Zi = %.1f, Zd = %.1f, with sample period = %.1fms",
		r.Kp, r.Ki, r.Kd, r.Zp, r.Zi, r.Zd, float64(r.SamplePeriod)/float64(time.Millisecond))
}

// DebugHook receives a Report every time the tuning changes.
type DebugHook func(Report)

// Option configures a Controller at construction.
type Option func(*options)

type options struct {
	hook DebugHook
}

// WithDebugHook installs a tuning report sink.
func WithDebugHook(h DebugHook) Option {
	return func(o *options) { o.hook = h }
}
