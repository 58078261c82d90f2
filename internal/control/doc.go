// Package control connects pid controllers to the simulator.
//
// A [Loop] is a float64 view of a pid.Controller on any numeric backend, so
// the bench can run the same plant against float64, float32 and fixed-point
// arithmetic. [Sampled] drives a Loop from the simulator the way firmware
// would: it reads the measurement once per sample period and holds the
// output in between.
//
//   - [Sampled]: zero-order-hold PID with optional measurement noise
//   - [Manual]: constant open-loop output
//   - [None]: zero output
//
// # Usage
//
//	loop, err := control.NewLoop("fixed", pid.Config[float64]{...})
//	ctrl := control.NewSampled(loop, 0)
//	s := sim.New(dyn, integ, ctrl)
//
// [Sampled] implements [sim.Configurable] for live tuning.
package control
