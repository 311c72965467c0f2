package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for engine and run operations.
var (
	// ErrNumericalInstability indicates a non-finite velocity, momentum or
	// effective-mass inverse. The offending impulse or step is skipped.
	ErrNumericalInstability = errors.New("dynamo: numerical instability (NaN or Inf detected)")

	// ErrPoolExhausted indicates a fixed-capacity pool has no free slot.
	ErrPoolExhausted = errors.New("dynamo: pool exhausted")

	// ErrInvalidFree indicates a free of an object that is not currently allocated.
	ErrInvalidFree = errors.New("dynamo: invalid free")

	// ErrOutOfRange indicates a material, collision group or sensor id outside its table.
	ErrOutOfRange = errors.New("dynamo: id out of range")

	// ErrInvalidConfig indicates a configuration value outside its valid range.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrUnknownScenario indicates a scenario name missing from the registry.
	ErrUnknownScenario = errors.New("dynamo: unknown scenario")

	// ErrContextCanceled indicates the run was interrupted.
	ErrContextCanceled = errors.New("dynamo: run canceled by context")
)

// StepError wraps an error with the step it occurred in.
type StepError struct {
	Step    int
	Time    float64
	Body    int
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f) body %d: %v", e.Step, e.Time, e.Body, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
