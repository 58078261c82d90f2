package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

var (
	ErrTooShort      = errors.New("trace too short to analyze")
	ErrNoOscillation = errors.New("no oscillation found")
)

// PowerSpectrum returns the magnitude of the first half of the spectrum of
// the Hann-windowed, mean-removed samples.
func PowerSpectrum(samples []float64) []float64 {
	x := detrend(samples)
	window.Apply(x, window.Hann)
	spectrum := fft.FFTReal(x)

	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantFrequency returns the frequency in Hz of the strongest
// non-constant component of samples taken every dt seconds.
func DominantFrequency(samples []float64, dt float64) (float64, error) {
	if len(samples) < 8 {
		return 0, ErrTooShort
	}
	ps := PowerSpectrum(samples)

	peak := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	if peak == 0 || ps[peak] < 1e-12 {
		return 0, ErrNoOscillation
	}

	bin := float64(peak)
	// parabolic interpolation between neighbouring bins
	if peak+1 < len(ps) {
		a, b, c := ps[peak-1], ps[peak], ps[peak+1]
		if d := a - 2*b + c; d != 0 {
			bin += 0.5 * (a - c) / d
		}
	}
	return bin / (float64(len(samples)) * dt), nil
}

// DecayRatio compares the amplitude of the last oscillation peak with the
// first. Values near 1 mean sustained oscillation; 0 means fewer than two
// peaks stood out from rounding noise.
func DecayRatio(samples []float64) float64 {
	x := detrend(samples)
	floor := 1e-9
	for _, v := range samples {
		floor = math.Max(floor, 1e-9*math.Abs(v))
	}

	var peaks []int
	for _, i := range Peaks(x) {
		if x[i] > floor {
			peaks = append(peaks, i)
		}
	}
	if len(peaks) < 2 {
		return 0
	}
	return x[peaks[len(peaks)-1]] / x[peaks[0]]
}

// Peaks returns the indexes of local maxima above zero.
func Peaks(x []float64) []int {
	var idx []int
	for i := 1; i < len(x)-1; i++ {
		if x[i] > 0 && x[i] > x[i-1] && x[i] >= x[i+1] {
			idx = append(idx, i)
		}
	}
	return idx
}

func detrend(samples []float64) []float64 {
	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	if len(samples) > 0 {
		mean /= float64(len(samples))
	}
	x := make([]float64, len(samples))
	for i, v := range samples {
		x[i] = v - mean
	}
	return x
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
