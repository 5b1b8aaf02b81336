package schedule_test

import (
	"testing"

	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_Validate(t *testing.T) {
	valid := schedule.Schedule{
		Checkpoints:     []float64{0.1, 0.3, 0.5},
		TimeMax:         0.5,
		InitialBudget:   100,
		BudgetDecrement: 10,
	}
	require.NoError(t, valid.Validate())

	empty := valid
	empty.Checkpoints = nil
	assert.NoError(t, empty.Validate(), "an empty schedule is valid and runs no rounds")

	tests := []struct {
		name   string
		mutate func(*schedule.Schedule)
		want   error
	}{
		{"repeated checkpoint", func(s *schedule.Schedule) { s.Checkpoints = []float64{0.2, 0.2} }, domain.ErrInvalidSchedule},
		{"decreasing checkpoint", func(s *schedule.Schedule) { s.Checkpoints = []float64{0.5, 0.3} }, domain.ErrInvalidSchedule},
		{"zero checkpoint", func(s *schedule.Schedule) { s.Checkpoints = []float64{0, 0.3} }, domain.ErrInvalidSchedule},
		{"past horizon", func(s *schedule.Schedule) { s.Checkpoints = []float64{0.1, 0.7} }, domain.ErrInvalidSchedule},
		{"no horizon", func(s *schedule.Schedule) { s.TimeMax = 0 }, domain.ErrInvalidSchedule},
		{"zero budget", func(s *schedule.Schedule) { s.InitialBudget = 0 }, domain.ErrNonPositiveBudget},
		{"negative decrement", func(s *schedule.Schedule) { s.BudgetDecrement = -1 }, domain.ErrNonPositiveBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			s.Checkpoints = append([]float64(nil), valid.Checkpoints...)
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}

func TestNextBudget_Clamps(t *testing.T) {
	assert.Equal(t, 90, schedule.NextBudget(100, 10))
	assert.Equal(t, 1, schedule.NextBudget(5, 10))
	assert.Equal(t, 1, schedule.NextBudget(1, 0))
	assert.Equal(t, 1, schedule.NextBudget(1, 1))
}

func TestBudgets_MonotoneAndPositive(t *testing.T) {
	for _, dec := range []int{0, 1, 7, 50, 1000} {
		s := schedule.Schedule{InitialBudget: 100, BudgetDecrement: dec, Checkpoints: make([]float64, 40)}
		budgets := s.Budgets()
		require.Len(t, budgets, 40)
		assert.Equal(t, 100, budgets[0])
		for i := 1; i < len(budgets); i++ {
			assert.LessOrEqual(t, budgets[i], budgets[i-1], "decrement %d round %d", dec, i)
			assert.GreaterOrEqual(t, budgets[i], 1, "decrement %d round %d", dec, i)
		}
	}
}

func TestSchedule_After(t *testing.T) {
	s := schedule.Schedule{Checkpoints: []float64{0.1, 0.3, 0.5}, TimeMax: 1}

	assert.Equal(t, []float64{0.5}, s.After(0.3).Checkpoints)
	assert.Equal(t, []float64{0.1, 0.3, 0.5}, s.After(0).Checkpoints)
	assert.Empty(t, s.After(0.5).Checkpoints)
	assert.Equal(t, 3, s.Len(), "After must not modify the receiver")
}

func TestRange(t *testing.T) {
	got, err := schedule.Range(0.1, 0.2, 1.0, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.3, 0.5, 0.7, 0.9}, got)

	got, err = schedule.Range(0.1, 0.2, 1.0, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.3, 0.5, 0.7, 0.9, 1.0}, got)

	got, err = schedule.Range(0.1, 0.2, 0.9, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.3, 0.5, 0.7, 0.9}, got, "max already reached by stepping")

	require.NoError(t, schedule.ValidateCheckpoints(got, 0.9))
}

func TestRange_Rejects(t *testing.T) {
	_, err := schedule.Range(0, 0.1, 1, false)
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)

	_, err = schedule.Range(0.1, 0, 1, false)
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)

	_, err = schedule.Range(2, 0.1, 1, false)
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
}

func TestRange_RejectsTinyStep(t *testing.T) {
	_, err := schedule.Range(0.1, 1e-12, 2, true)
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
}

func TestRange_RejectsTooManyCheckpoints(t *testing.T) {
	_, err := schedule.Range(1e-6, 1e-6, 1, true)
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
	assert.ErrorContains(t, err, "limit")

	got, err := schedule.Range(0.001, 0.001, 1, true)
	require.NoError(t, err)
	assert.Len(t, got, 1000)
	require.NoError(t, schedule.ValidateCheckpoints(got, 1))
}
