package pid

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func baseConfig() Config[float64] {
	return Config[float64]{
		Kp:           2,
		Ki:           1,
		Kd:           0,
		Direction:    Direct,
		Mode:         NonAccumulating,
		SamplePeriod: time.Second,
		OutMin:       -100,
		OutMax:       100,
		SetPoint:     10,
	}
}

func TestEndToEndScenario(t *testing.T) {
	c, err := NewFloat64(baseConfig())
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	out := c.Update(0)
	terms := c.Terms()
	if terms.Error != 10 {
		t.Errorf("expected error 10, got %f", terms.Error)
	}
	if terms.Integral != 10 {
		t.Errorf("expected integral 10, got %f", terms.Integral)
	}
	if terms.Derivative != 0 {
		t.Errorf("expected derivative 0 on first tick, got %f", terms.Derivative)
	}
	if out != 30 {
		t.Errorf("expected output 30, got %f", out)
	}

	out = c.Update(10)
	terms = c.Terms()
	if terms.Error != 0 {
		t.Errorf("expected error 0, got %f", terms.Error)
	}
	if terms.Integral != 10 {
		t.Errorf("expected integral 10, got %f", terms.Integral)
	}
	if out != 10 {
		t.Errorf("expected output 10, got %f", out)
	}
	if c.Output() != 10 {
		t.Errorf("expected stored output 10, got %f", c.Output())
	}
	if c.Ticks() != 2 {
		t.Errorf("expected 2 ticks, got %d", c.Ticks())
	}
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config[float64])
		want   error
	}{
		{"equal limits", func(c *Config[float64]) { c.OutMin, c.OutMax = 5, 5 }, ErrInvalidLimits},
		{"inverted limits", func(c *Config[float64]) { c.OutMin, c.OutMax = 5, 3 }, ErrInvalidLimits},
		{"zero period", func(c *Config[float64]) { c.SamplePeriod = 0 }, ErrInvalidPeriod},
		{"negative period", func(c *Config[float64]) { c.SamplePeriod = -time.Millisecond }, ErrInvalidPeriod},
		{"negative kp", func(c *Config[float64]) { c.Kp = -1 }, ErrNegativeGain},
		{"negative ki", func(c *Config[float64]) { c.Ki = -1 }, ErrNegativeGain},
		{"negative kd", func(c *Config[float64]) { c.Kd = -1 }, ErrNegativeGain},
		{"bad direction", func(c *Config[float64]) { c.Direction = Direction(7) }, ErrUnknownDirection},
		{"bad mode", func(c *Config[float64]) { c.Mode = OutputMode(7) }, ErrUnknownOutputMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			_, err := NewFloat64(cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewNilArithmetic(t *testing.T) {
	_, err := New[float64](nil, baseConfig())
	if !errors.Is(err, ErrNoArithmetic) {
		t.Errorf("expected ErrNoArithmetic, got %v", err)
	}
}

func TestInitFailureKeepsState(t *testing.T) {
	c, err := NewFloat64(baseConfig())
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	c.Update(0)

	cfg := baseConfig()
	cfg.Kp = 9
	cfg.OutMin, cfg.OutMax = 1, 0
	if err := c.Init(cfg); err == nil {
		t.Fatal("expected error, got nil")
	}
	if c.Kp() != 2 {
		t.Errorf("expected kp 2, got %f", c.Kp())
	}
	if c.Ticks() != 1 {
		t.Errorf("expected tick count to survive, got %d", c.Ticks())
	}
}

func TestSetTunings(t *testing.T) {
	cfg := baseConfig()
	cfg.SamplePeriod = 100 * time.Millisecond
	c, _ := NewFloat64(cfg)

	if err := c.SetTunings(3, 4, 5); err != nil {
		t.Fatalf("set tunings failed: %v", err)
	}
	if c.Kp() != 3 || c.Ki() != 4 || c.Kd() != 5 {
		t.Errorf("expected gains 3/4/5, got %f/%f/%f", c.Kp(), c.Ki(), c.Kd())
	}
	if !approx(c.Zp(), 3) || !approx(c.Zi(), 0.4) || !approx(c.Zd(), 50) {
		t.Errorf("expected scaled gains 3/0.4/50, got %f/%f/%f", c.Zp(), c.Zi(), c.Zd())
	}

	tests := []struct {
		name       string
		kp, ki, kd float64
	}{
		{"negative kp", -1, 1, 1},
		{"negative ki", 1, -1, 1},
		{"negative kd", 1, 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.SetTunings(tt.kp, tt.ki, tt.kd); !errors.Is(err, ErrNegativeGain) {
				t.Errorf("expected ErrNegativeGain, got %v", err)
			}
			if c.Kp() != 3 || c.Ki() != 4 || c.Kd() != 5 {
				t.Errorf("gains changed after rejected tuning: %f/%f/%f", c.Kp(), c.Ki(), c.Kd())
			}
			if !approx(c.Zi(), 0.4) {
				t.Errorf("scaled gains changed after rejected tuning: zi=%f", c.Zi())
			}
		})
	}
}

func TestSetOutputLimits(t *testing.T) {
	c, _ := NewFloat64(baseConfig())

	for _, lim := range [][2]float64{{5, 5}, {5, 3}} {
		if err := c.SetOutputLimits(lim[0], lim[1]); !errors.Is(err, ErrInvalidLimits) {
			t.Errorf("limits %v: expected ErrInvalidLimits, got %v", lim, err)
		}
		lo, hi := c.OutputLimits()
		if lo != -100 || hi != 100 {
			t.Errorf("limits %v: expected [-100, 100] kept, got [%f, %f]", lim, lo, hi)
		}
	}

	if err := c.SetOutputLimits(0, 15); err != nil {
		t.Fatalf("set limits failed: %v", err)
	}
	if out := c.Update(0); out != 15 {
		t.Errorf("expected output clamped to 15, got %f", out)
	}
	if c.Terms().Integral != 10 {
		t.Errorf("expected integral 10 within new limits, got %f", c.Terms().Integral)
	}
}

func TestSetControllerDirection(t *testing.T) {
	cfg := baseConfig()
	cfg.Kd = 0.5
	cfg.SamplePeriod = 100 * time.Millisecond
	c, _ := NewFloat64(cfg)

	zp, zi, zd := c.Zp(), c.Zi(), c.Zd()

	if err := c.SetControllerDirection(Reverse); err != nil {
		t.Fatalf("set direction failed: %v", err)
	}
	if c.Zp() != -zp || c.Zi() != -zi || c.Zd() != -zd {
		t.Errorf("expected negated scaled gains, got %f/%f/%f", c.Zp(), c.Zi(), c.Zd())
	}

	// same direction again must not flip back
	if err := c.SetControllerDirection(Reverse); err != nil {
		t.Fatalf("set direction failed: %v", err)
	}
	if c.Zp() != -zp {
		t.Errorf("expected zp %f after repeated reverse, got %f", -zp, c.Zp())
	}

	_ = c.SetControllerDirection(Direct)
	if c.Zp() != zp || c.Zi() != zi || c.Zd() != zd {
		t.Errorf("expected unchanged scaled gains, got %f/%f/%f", c.Zp(), c.Zi(), c.Zd())
	}
	if c.Kp() != 2 {
		t.Errorf("actual gains must not change sign, got kp %f", c.Kp())
	}

	if err := c.SetControllerDirection(Direction(3)); !errors.Is(err, ErrUnknownDirection) {
		t.Errorf("expected ErrUnknownDirection, got %v", err)
	}
}

func TestSetTuningsUnderReverse(t *testing.T) {
	cfg := baseConfig()
	cfg.Direction = Reverse
	c, _ := NewFloat64(cfg)

	if c.Zp() != -2 || c.Zi() != -1 {
		t.Errorf("expected -2/-1, got %f/%f", c.Zp(), c.Zi())
	}
	_ = c.SetTunings(4, 2, 0)
	if c.Zp() != -4 || c.Zi() != -2 {
		t.Errorf("expected -4/-2, got %f/%f", c.Zp(), c.Zi())
	}
}

func TestSetSamplePeriod(t *testing.T) {
	cfg := baseConfig()
	cfg.Kd = 0.5
	cfg.SamplePeriod = 100 * time.Millisecond
	c, _ := NewFloat64(cfg)

	zi, zd := c.Zi(), c.Zd()
	if err := c.SetSamplePeriod(200 * time.Millisecond); err != nil {
		t.Fatalf("set period failed: %v", err)
	}
	if !approx(c.Zi(), 2*zi) {
		t.Errorf("expected zi %f, got %f", 2*zi, c.Zi())
	}
	if !approx(c.Zd(), zd/2) {
		t.Errorf("expected zd %f, got %f", zd/2, c.Zd())
	}
	if c.SamplePeriod() != 200*time.Millisecond {
		t.Errorf("expected period 200ms, got %v", c.SamplePeriod())
	}

	for _, p := range []time.Duration{0, -time.Second} {
		if err := c.SetSamplePeriod(p); !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("period %v: expected ErrInvalidPeriod, got %v", p, err)
		}
	}
	if c.SamplePeriod() != 200*time.Millisecond {
		t.Errorf("expected period kept at 200ms, got %v", c.SamplePeriod())
	}
}

func TestFirstTickSuppressesDerivative(t *testing.T) {
	c, _ := NewFloat64(Config[float64]{
		Kd:           1,
		SamplePeriod: time.Second,
		OutMin:       -100,
		OutMax:       100,
	})

	if out := c.Update(50); out != 0 {
		t.Errorf("expected 0 on first tick, got %f", out)
	}
	if out := c.Update(60); out != -10 {
		t.Errorf("expected -10 when input rises by 10, got %f", out)
	}
}

func TestAccumulatingMode(t *testing.T) {
	cfg := baseConfig()
	cfg.Ki = 0
	cfg.Kp = 1
	cfg.Mode = Accumulating
	c, _ := NewFloat64(cfg)

	expected := []struct{ in, out float64 }{
		{0, 10},
		{0, 20},
		{5, 25},
		{10, 25},
	}
	for i, step := range expected {
		if got := c.Update(step.in); got != step.out {
			t.Errorf("step %d: expected %f, got %f", i, step.out, got)
		}
	}
}

func TestAntiWindup(t *testing.T) {
	cfg := baseConfig()
	cfg.Kp = 0
	cfg.Ki = 50
	c, _ := NewFloat64(cfg)

	for i := 0; i < 100; i++ {
		c.Update(-1000)
		if it := c.Terms().Integral; it > 100 || it < -100 {
			t.Fatalf("tick %d: integral %f outside limits", i, it)
		}
	}
	if c.Terms().Integral != 100 {
		t.Errorf("expected integral pinned at 100, got %f", c.Terms().Integral)
	}

	// one tick with error of opposite sign unwinds immediately
	out := c.Update(11)
	if out != 50 {
		t.Errorf("expected 50 after one negative-error tick, got %f", out)
	}
}

func TestTickCounterSaturates(t *testing.T) {
	c, _ := NewFloat64(baseConfig())
	c.ticks = math.MaxUint32 - 1

	c.Update(0)
	c.Update(0)
	c.Update(0)
	if c.Ticks() != math.MaxUint32 {
		t.Errorf("expected saturated tick count, got %d", c.Ticks())
	}
}

func TestNonFiniteMeasurementIsSkipped(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		c, _ := NewFloat64(baseConfig())
		first := c.Update(0)
		ticks := c.Ticks()
		terms := c.Terms()

		if out := c.Update(bad); out != first {
			t.Errorf("input %v: expected held output %f, got %f", bad, first, out)
		}
		if c.Ticks() != ticks || c.Terms() != terms {
			t.Errorf("input %v: state changed", bad)
		}

		for i := 0; i < 3; i++ {
			out := c.Update(5)
			if math.IsNaN(out) || out < -100 || out > 100 {
				t.Fatalf("input %v: tick %d output %f outside limits", bad, i, out)
			}
		}
		if i := c.Terms().Integral; math.IsNaN(i) || !approx(i, 25) {
			t.Errorf("input %v: expected integral 25, got %f", bad, i)
		}
	}
}

func TestReset(t *testing.T) {
	c, _ := NewFloat64(baseConfig())
	c.Update(0)
	c.Update(3)
	c.Reset()

	if c.Ticks() != 0 || c.Output() != 0 || c.Terms().Integral != 0 {
		t.Errorf("expected cleared state, got ticks=%d out=%f i=%f", c.Ticks(), c.Output(), c.Terms().Integral)
	}
	if c.Kp() != 2 || c.SetPoint() != 10 {
		t.Error("reset must keep tuning and set-point")
	}
}

func TestDebugHook(t *testing.T) {
	var reports []Report
	c, err := NewFloat64(baseConfig(), WithDebugHook(func(r Report) { reports = append(reports, r) }))
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report after init, got %d", len(reports))
	}

	_ = c.SetTunings(-1, 0, 0)
	if len(reports) != 1 {
		t.Errorf("rejected tuning must not report, got %d reports", len(reports))
	}

	_ = c.SetTunings(1, 2, 3)
	_ = c.SetSamplePeriod(500 * time.Millisecond)
	_ = c.SetControllerDirection(Reverse)
	if len(reports) != 4 {
		t.Fatalf("expected 4 reports, got %d", len(reports))
	}
	last := reports[3]
	if last.Kp != 1 || last.Zp != -1 || last.SamplePeriod != 500*time.Millisecond {
		t.Errorf("unexpected report: %+v", last)
	}

	c.SetDebugHook(nil)
	_ = c.SetTunings(1, 1, 1)
	if len(reports) != 4 {
		t.Errorf("expected no report with nil hook, got %d", len(reports))
	}
}

func TestReportString(t *testing.T) {
	r := Report{Kp: 2, Ki: 1, Kd: 0.5, Zp: 2, Zi: 0.1, Zd: 5, SamplePeriod: 100 * time.Millisecond}
	s := r.String()
	for _, want := range []string{"Kp = 2.0", "Ki = 1.0", "Kd = 0.5", "Zi = 0.1", "Zd = 5.0", "sample period = 100.0ms"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in %q", want, s)
		}
	}
}

func TestFloat32Backend(t *testing.T) {
	c, err := New[float32](Float[float32]{}, Config[float32]{
		Kp:           2,
		Ki:           1,
		SamplePeriod: time.Second,
		OutMin:       -100,
		OutMax:       100,
		SetPoint:     10,
	})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if out := c.Update(0); out != 30 {
		t.Errorf("expected 30, got %f", out)
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"direct", Direct, true},
		{"REVERSE", Reverse, true},
		{" reverse ", Reverse, true},
		{"", Direct, true},
		{"sideways", Direct, false},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseDirection(%q) error = %v", tt.in, err)
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseDirection(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseOutputMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
		ok   bool
	}{
		{"non_accumulating", NonAccumulating, true},
		{"distance", DistancePID, true},
		{"velocity", VelocityPID, true},
		{"accumulating", Accumulating, true},
		{"bogus", NonAccumulating, false},
	}
	for _, tt := range tests {
		got, err := ParseOutputMode(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseOutputMode(%q) error = %v", tt.in, err)
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseOutputMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if tt.ok && got.String() == "" {
			t.Errorf("empty String for %v", got)
		}
	}
}
