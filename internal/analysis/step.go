package analysis

import (
	"fmt"
	"math"
)

// StepInfo summarizes a response to a set-point step.
type StepInfo struct {
	SetPoint         float64 `json:"set_point"`
	Initial          float64 `json:"initial"`
	Peak             float64 `json:"peak"`
	PeakTime         float64 `json:"peak_time"`
	RiseTime         float64 `json:"rise_time"`
	Overshoot        float64 `json:"overshoot_pct"`
	SettlingTime     float64 `json:"settling_time"`
	SteadyStateError float64 `json:"steady_state_error"`
	Settled          bool    `json:"settled"`
}

// AnalyzeStep measures the response values[i] at times[i] to a step from
// values[0] to setPoint. Rise time is 10% to 90% of the step; settling uses
// a band given as a fraction of the step.
func AnalyzeStep(times, values []float64, setPoint, band float64) (StepInfo, error) {
	if len(times) != len(values) {
		return StepInfo{}, fmt.Errorf("times and values differ in length: %d vs %d", len(times), len(values))
	}
	if len(values) < 2 {
		return StepInfo{}, ErrTooShort
	}

	info := StepInfo{SetPoint: setPoint, Initial: values[0]}
	step := setPoint - values[0]
	if step == 0 {
		return info, fmt.Errorf("no step: initial value equals set-point %g", setPoint)
	}

	// work in the normalized response r = (y - y0) / step, which rises to 1
	t10, t90 := math.NaN(), math.NaN()
	peak := math.Inf(-1)
	width := band * math.Abs(step)
	lastOutside := times[0]
	for i, y := range values {
		if !finite(y) {
			return info, fmt.Errorf("non-finite value at t=%g", times[i])
		}
		r := (y - values[0]) / step
		if math.IsNaN(t10) && r >= 0.1 {
			t10 = times[i]
		}
		if math.IsNaN(t90) && r >= 0.9 {
			t90 = times[i]
		}
		if r > peak {
			peak = r
			info.Peak = y
			info.PeakTime = times[i]
		}
		if math.Abs(y-setPoint) > width {
			lastOutside = times[i]
		}
	}

	if !math.IsNaN(t10) && !math.IsNaN(t90) {
		info.RiseTime = t90 - t10
	}
	if peak > 1 {
		info.Overshoot = 100 * (peak - 1)
	}
	last := values[len(values)-1]
	info.SteadyStateError = setPoint - last
	info.Settled = math.Abs(last-setPoint) <= width
	if info.Settled {
		info.SettlingTime = lastOutside
	}
	return info, nil
}
