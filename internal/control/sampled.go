package control

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/san-kum/pidloop/internal/sim"
)

// sampleEps absorbs float error when the simulation step divides the sample
// period exactly.
const sampleEps = 1e-9

// SetPointStep changes the set-point at a given simulation time.
type SetPointStep struct {
	At    float64
	Value float64
}

// Sample is one controller update as seen by the bench.
type Sample struct {
	Time        float64
	Measurement float64
	SetPoint    float64
	Output      float64
	Error       float64
	P, I, D     float64
}

// Sampled runs a Loop once per sample period against state element Index
// and holds its output between samples.
type Sampled struct {
	loop  Loop
	Index int

	noise float64
	rng   *rand.Rand

	schedule []SetPointStep
	nextStep int

	started bool
	next    float64
	hold    float64

	record  bool
	samples []Sample
}

func NewSampled(loop Loop, index int) *Sampled {
	return &Sampled{loop: loop, Index: index}
}

// WithNoise adds zero-mean Gaussian noise of the given standard deviation to
// every measurement.
func (s *Sampled) WithNoise(stddev float64, seed int64) *Sampled {
	s.noise = stddev
	s.rng = rand.New(rand.NewSource(seed))
	return s
}

// WithSchedule applies set-point changes as simulation time passes them.
func (s *Sampled) WithSchedule(steps []SetPointStep) *Sampled {
	s.schedule = append([]SetPointStep(nil), steps...)
	sort.SliceStable(s.schedule, func(i, j int) bool { return s.schedule[i].At < s.schedule[j].At })
	return s
}

// WithRecording keeps every controller update for Samples.
func (s *Sampled) WithRecording() *Sampled {
	s.record = true
	return s
}

func (s *Sampled) Loop() Loop          { return s.loop }
func (s *Sampled) Samples() []Sample   { return s.samples }
func (s *Sampled) NextSample() float64 { return s.next }

func (s *Sampled) Compute(x sim.State, t float64) sim.Control {
	if s.started && t < s.next-sampleEps {
		return sim.Control{s.hold}
	}

	for s.nextStep < len(s.schedule) && s.schedule[s.nextStep].At <= t+sampleEps {
		s.loop.SetSetPoint(s.schedule[s.nextStep].Value)
		s.nextStep++
	}

	m := x[s.Index]
	if s.noise > 0 {
		m += s.rng.NormFloat64() * s.noise
	}
	s.hold = s.loop.Update(m)

	period := s.loop.SamplePeriod().Seconds()
	if !s.started {
		s.started = true
		s.next = t
	}
	s.next += period
	// the simulation step is longer than the sample period
	if s.next <= t {
		s.next = t + period
	}

	if s.record {
		terms := s.loop.Terms()
		s.samples = append(s.samples, Sample{
			Time:        t,
			Measurement: m,
			SetPoint:    s.loop.SetPoint(),
			Output:      s.hold,
			Error:       terms.Error,
			P:           terms.Proportional,
			I:           terms.Integral,
			D:           terms.Derivative,
		})
	}
	return sim.Control{s.hold}
}

// Reset clears the controller's running state and restarts sampling.
func (s *Sampled) Reset() {
	s.loop.Reset()
	s.started = false
	s.next = 0
	s.hold = 0
	s.nextStep = 0
	s.samples = s.samples[:0]
}

func (s *Sampled) GetParams() map[string]float64 {
	r := s.loop.Report()
	return map[string]float64{
		"kp":        r.Kp,
		"ki":        r.Ki,
		"kd":        r.Kd,
		"setpoint":  s.loop.SetPoint(),
		"period_ms": float64(r.SamplePeriod) / float64(time.Millisecond),
	}
}

func (s *Sampled) SetParam(name string, value float64) error {
	r := s.loop.Report()
	switch name {
	case "kp":
		return s.loop.SetTunings(value, r.Ki, r.Kd)
	case "ki":
		return s.loop.SetTunings(r.Kp, value, r.Kd)
	case "kd":
		return s.loop.SetTunings(r.Kp, r.Ki, value)
	case "setpoint":
		s.loop.SetSetPoint(value)
		return nil
	case "period_ms":
		return s.loop.SetSamplePeriod(time.Duration(value * float64(time.Millisecond)))
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
}
