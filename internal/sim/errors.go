package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates position and velocity of different lengths.
	ErrDimensionMismatch = errors.New("sim: position and velocity sizes differ")

	ErrEmptyEnsemble = errors.New("sim: ensemble has no particles")

	// ErrInvalidTimestep indicates a non-positive or non-finite dt.
	ErrInvalidTimestep = errors.New("sim: invalid timestep")

	ErrNegativeSteps = errors.New("sim: negative step count")

	// ErrParameterBounds indicates a parameter value outside its valid range.
	ErrParameterBounds = errors.New("sim: parameter out of valid bounds")

	// ErrUnstable indicates the state left the finite range.
	ErrUnstable = errors.New("sim: simulation unstable (state diverged)")
)

// StepError wraps an error with the step at which it happened.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
