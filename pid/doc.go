// Package pid provides a discrete-time PID controller that is generic over
// its numeric representation.
//
// The controller converts a periodic stream of process measurements into a
// bounded control output:
//
//   - [Controller]: the update algorithm and its tuning state
//   - [Arithmetic]: the operations a numeric backend must supply
//   - [Float]: backend for float32 and float64
//
// A fixed-point backend lives in the sibling package fixed.
//
// # Usage
//
//	c, err := pid.NewFloat64(pid.Config[float64]{
//		Kp: 2, Ki: 1, Kd: 0,
//		Direction:    pid.Direct,
//		Mode:         pid.NonAccumulating,
//		SamplePeriod: time.Second,
//		OutMin:       -100, OutMax: 100,
//		SetPoint:     10,
//	})
//	// once per sample period:
//	out := c.Update(measurement)
//
// The caller decides when to sample; Update must be invoked once per
// configured sample period.
//
// # Thread Safety
//
// Controller instances are NOT safe for concurrent use. Callers that share
// one controller between goroutines must serialize Update and the setters.
package pid
