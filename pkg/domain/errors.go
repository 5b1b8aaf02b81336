package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidSchedule is returned when the checkpoint sequence is not strictly
// increasing, contains a non-positive value, or exceeds the time horizon.
var ErrInvalidSchedule = errors.New("invalid schedule")

// ErrNonPositiveBudget is returned when a round would run with zero or fewer
// solver iterations, or when the budget decrement is negative.
var ErrNonPositiveBudget = errors.New("non-positive iteration budget")

// ErrSolverFailure is returned when the solver reports non-convergence or a numerical error.
var ErrSolverFailure = errors.New("solver failure")

// ErrInvalidDomain is returned when a DomainSpec cannot be built from its inputs.
var ErrInvalidDomain = errors.New("invalid domain")

// ErrRunNotFound is returned when a run ID cannot be found in the checkpoint store.
var ErrRunNotFound = errors.New("run not found")

// RoundError reports which round of a run the solver failed on.
// It matches both ErrSolverFailure and the underlying cause with errors.Is.
type RoundError struct {
	Round     int
	TimeUpper float64
	Err       error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("%s: round %d (t <= %g): %v", ErrSolverFailure, e.Round, e.TimeUpper, e.Err)
}

func (e *RoundError) Unwrap() []error {
	return []error{ErrSolverFailure, e.Err}
}
