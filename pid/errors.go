package pid

import "errors"

// Configuration errors. A setter returning one of these leaves the
// controller unchanged.
var (
	// ErrNegativeGain indicates a proportional, integral or derivative gain below zero.
	ErrNegativeGain = errors.New("pid: gains must be non-negative")

	// ErrInvalidLimits indicates an output range where min is not below max.
	ErrInvalidLimits = errors.New("pid: output min must be less than max")

	// ErrInvalidPeriod indicates a sample period that is zero or negative.
	ErrInvalidPeriod = errors.New("pid: sample period must be positive")

	// ErrUnknownDirection indicates a Direction outside Direct and Reverse.
	ErrUnknownDirection = errors.New("pid: unknown controller direction")

	// ErrUnknownOutputMode indicates an OutputMode outside the defined modes.
	ErrUnknownOutputMode = errors.New("pid: unknown output mode")

	// ErrNoArithmetic indicates a controller built without a numeric backend.
	ErrNoArithmetic = errors.New("pid: nil arithmetic backend")
)
