// Package schedule describes the sequence of time checkpoints a curriculum run
// visits and the iteration budget each round receives.
package schedule

import (
	"fmt"
	"math"

	"github.com/aretw0/curriculum/pkg/domain"
)

// Schedule is the ordered list of time upper bounds plus the budget policy.
type Schedule struct {
	Checkpoints     []float64 `json:"checkpoints" yaml:"checkpoints"`
	TimeMax         float64   `json:"time_max" yaml:"time_max"`
	InitialBudget   int       `json:"initial_budget" yaml:"initial_budget"`
	BudgetDecrement int       `json:"budget_decrement" yaml:"budget_decrement"`
}

// Validate checks every precondition of a run before any round executes.
func (s Schedule) Validate() error {
	if !(s.TimeMax > 0) || math.IsInf(s.TimeMax, 0) {
		return fmt.Errorf("%w: time_max must be a positive finite number, got %g", domain.ErrInvalidSchedule, s.TimeMax)
	}
	if err := ValidateCheckpoints(s.Checkpoints, s.TimeMax); err != nil {
		return err
	}
	if s.InitialBudget < domain.MinIterationBudget {
		return fmt.Errorf("%w: initial budget %d", domain.ErrNonPositiveBudget, s.InitialBudget)
	}
	if s.BudgetDecrement < 0 {
		return fmt.Errorf("%w: budget decrement %d is negative", domain.ErrNonPositiveBudget, s.BudgetDecrement)
	}
	return nil
}

// ValidateCheckpoints checks that checkpoints are strictly increasing and lie in (0, timeMax].
func ValidateCheckpoints(checkpoints []float64, timeMax float64) error {
	prev := 0.0
	for i, t := range checkpoints {
		if math.IsNaN(t) || t <= prev {
			if i == 0 {
				return fmt.Errorf("%w: checkpoint[0] = %g must be positive", domain.ErrInvalidSchedule, t)
			}
			return fmt.Errorf("%w: checkpoint[%d] = %g does not increase past %g", domain.ErrInvalidSchedule, i, t, prev)
		}
		if t > timeMax {
			return fmt.Errorf("%w: checkpoint[%d] = %g exceeds time_max %g", domain.ErrInvalidSchedule, i, t, timeMax)
		}
		prev = t
	}
	return nil
}

// NextBudget returns the budget for the round after one that used current.
// The result never drops below domain.MinIterationBudget.
func NextBudget(current, decrement int) int {
	next := current - decrement
	if next < domain.MinIterationBudget {
		return domain.MinIterationBudget
	}
	return next
}

// Budgets returns the iteration budget each checkpoint's round will receive.
func (s Schedule) Budgets() []int {
	out := make([]int, len(s.Checkpoints))
	b := s.InitialBudget
	for i := range s.Checkpoints {
		out[i] = b
		b = NextBudget(b, s.BudgetDecrement)
	}
	return out
}

// After returns a copy of the schedule keeping only checkpoints strictly greater than t.
func (s Schedule) After(t float64) Schedule {
	out := s
	out.Checkpoints = nil
	for _, c := range s.Checkpoints {
		if c > t {
			out.Checkpoints = append(out.Checkpoints, c)
		}
	}
	return out
}

// Len returns the number of rounds.
func (s Schedule) Len() int {
	return len(s.Checkpoints)
}
