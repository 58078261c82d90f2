// Package analysis characterizes closed-loop responses and derives tunings.
//
//   - [DominantFrequency]: strongest oscillation in a trace, via FFT
//   - [AnalyzeStep]: rise time, overshoot and settling of a step response
//   - [DecayRatio]: how fast an oscillation dies out
//   - [ZieglerNichols]: gains from the ultimate gain and period
//
// # Tuning From Oscillation
//
// Raise a P-only gain until the loop oscillates without decaying. That gain
// is Ku and the oscillation period is Tu:
//
//	freq, _ := analysis.DominantFrequency(trace, dt)
//	kp, ki, kd, err := analysis.ZieglerNichols(ku, 1/freq, analysis.RuleClassic)
package analysis
