// Package plant provides process models to close a control loop around.
//
// Each model implements [sim.Dynamics] with a single control input. The
// measured process variable is always state element 0:
//
//   - [FirstOrder]: gain and time constant, the generic self-regulating process
//   - [Integrating]: output integrates the input, e.g. an actuator position
//     driven by a velocity-form controller
//   - [Thermal]: heater block losing heat to ambient
//   - [SpringMass]: damped second-order mechanical system
//
// All models implement [sim.Configurable] so parameters can be changed
// while a loop is running.
package plant
