package dynamo

import "errors"

// Step failure classes reported by steppers.
var (
	// ErrStepFailure is a generic solver failure, e.g. the step size fell
	// below its floor or the substep budget ran out.
	ErrStepFailure = errors.New("dynamo: integration step failed")

	// ErrBadInput indicates a non-positive or non-finite interval, or an
	// input state that already holds NaN or Inf.
	ErrBadInput = errors.New("dynamo: invalid step input")

	// ErrBadFunc indicates the right-hand side produced NaN or Inf.
	ErrBadFunc = errors.New("dynamo: right-hand side returned non-finite derivative")

	// ErrDimensionMismatch indicates mismatched state and system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrInvalidConfig indicates a vehicle or run configuration that cannot
	// be simulated.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")
)

// SimulationError wraps a step failure with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return e.Wrapped.Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Describe maps a step error to a short human-readable diagnostic.
func Describe(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrBadFunc):
		return "bad right-hand side"
	case errors.Is(err, ErrBadInput), errors.Is(err, ErrDimensionMismatch):
		return "invalid input"
	default:
		return "solver failure"
	}
}
