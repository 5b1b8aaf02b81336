package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/curriculum/internal/runtime"
	"github.com/aretw0/curriculum/pkg/adapters/memory"
	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/pde"
	"github.com/aretw0/curriculum/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	upper  float64
	params []float64
	budget int
	conds  []string
}

// echoSolver returns 2*p+1 for every parameter so continuity can be checked exactly.
type echoSolver struct {
	mu     sync.Mutex
	calls  []call
	failAt int
}

func (s *echoSolver) Train(ctx context.Context, dom domain.DomainSpec, params []float64, maxIterations int) (domain.TrainingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, call{
		upper:  dom.Time().Upper,
		params: append([]float64(nil), params...),
		budget: maxIterations,
		conds:  dom.ConditionIDs(),
	})
	if s.failAt > 0 && len(s.calls) == s.failAt {
		return domain.TrainingResult{}, errors.New("nan in loss")
	}

	out := make([]float64, len(params))
	for i, p := range params {
		out[i] = 2*p + 1
	}
	return domain.TrainingResult{
		Parameters: out,
		FinalLoss:  1 / float64(len(s.calls)),
		Iterations: maxIterations,
	}, nil
}

func newPlan(checkpoints []float64, budget, decrement int) runtime.Plan {
	problem := pde.Diffusion2D()
	return runtime.Plan{
		RunID: "run-1",
		Schedule: schedule.Schedule{
			Checkpoints:     checkpoints,
			TimeMax:         problem.TimeMax,
			InitialBudget:   budget,
			BudgetDecrement: decrement,
		},
		InitialParams: []float64{0, 0.5, -1},
		Space:         problem.Space,
		Reference:     problem.Reference,
		Builder:       problem.Builder,
	}
}

func TestTrainer_OneCallPerCheckpointInOrder(t *testing.T) {
	solver := &echoSolver{}
	trainer := runtime.NewTrainer(solver)
	checkpoints := []float64{0.1, 0.2, 0.5, 1.0, 2.0}

	state, err := trainer.Run(context.Background(), newPlan(checkpoints, 100, 10))
	require.NoError(t, err)

	require.Len(t, solver.calls, len(checkpoints))
	for i, c := range solver.calls {
		assert.Equal(t, checkpoints[i], c.upper)
		assert.Equal(t, []string{"t_min", "x_max", "x_min", "y_max", "y_min"}, c.conds)
	}
	assert.Equal(t, 5, state.RoundIndex)
	assert.Equal(t, 2.0, state.TimeUpper)
	assert.Len(t, state.History, 5)
}

func TestTrainer_WarmStartContinuity(t *testing.T) {
	solver := &echoSolver{}
	trainer := runtime.NewTrainer(solver)

	var results [][]float64
	plan := newPlan([]float64{0.5, 1.0, 1.5, 2.0}, 10, 1)
	plan.Observer = func(round int, dom domain.DomainSpec, result domain.TrainingResult) {
		results = append(results, result.Parameters)
	}

	state, err := trainer.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, plan.InitialParams, solver.calls[0].params)
	for k := 1; k < len(solver.calls); k++ {
		assert.Equal(t, results[k-1], solver.calls[k].params, "round %d", k+1)
	}
	assert.Equal(t, results[len(results)-1], state.Parameters)
	// 0 -> 1 -> 3 -> 7 -> 15
	assert.Equal(t, 15.0, state.Parameters[0])
}

func TestTrainer_DoesNotAliasParameters(t *testing.T) {
	mutating := &echoSolver{}
	trainer := runtime.NewTrainer(paramMutator{mutating})

	plan := newPlan([]float64{1, 2}, 5, 0)
	initial := append([]float64(nil), plan.InitialParams...)

	_, err := trainer.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, initial, plan.InitialParams)
}

// paramMutator scribbles over its input after delegating.
type paramMutator struct{ inner *echoSolver }

func (m paramMutator) Train(ctx context.Context, dom domain.DomainSpec, params []float64, n int) (domain.TrainingResult, error) {
	res, err := m.inner.Train(ctx, dom, params, n)
	for i := range params {
		params[i] = 99
	}
	return res, err
}

func TestTrainer_BudgetNonIncreasingAndClamped(t *testing.T) {
	cases := []struct {
		name      string
		budget    int
		decrement int
		want      []int
	}{
		{"constant", 3, 0, []int{3, 3, 3, 3, 3, 3}},
		{"linear", 10, 2, []int{10, 8, 6, 4, 2, 1}},
		{"clamped immediately", 1, 5, []int{1, 1, 1, 1, 1, 1}},
		{"large decrement", 7, 100, []int{7, 1, 1, 1, 1, 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			solver := &echoSolver{}
			trainer := runtime.NewTrainer(solver)

			state, err := trainer.Run(context.Background(), newPlan([]float64{0.2, 0.4, 0.6, 0.8, 1.0, 2.0}, tc.budget, tc.decrement))
			require.NoError(t, err)

			got := make([]int, len(solver.calls))
			for i, c := range solver.calls {
				got[i] = c.budget
				assert.GreaterOrEqual(t, c.budget, 1)
				if i > 0 {
					assert.LessOrEqual(t, c.budget, got[i-1])
				}
			}
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, state.IterationBudget, 1)
		})
	}
}

func TestTrainer_EmptySchedule(t *testing.T) {
	solver := &echoSolver{}
	trainer := runtime.NewTrainer(solver)
	observed := 0

	plan := newPlan(nil, 42, 3)
	plan.Observer = func(int, domain.DomainSpec, domain.TrainingResult) { observed++ }

	state, err := trainer.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Empty(t, solver.calls)
	assert.Zero(t, observed)
	assert.Equal(t, plan.InitialParams, state.Parameters)
	assert.Equal(t, 42, state.IterationBudget)
	assert.Zero(t, state.RoundIndex)
	assert.Zero(t, state.TimeUpper)
	assert.Empty(t, state.History)
}

func TestTrainer_RejectsInvalidSchedule(t *testing.T) {
	cases := map[string][]float64{
		"repeated":   {0.2, 0.2},
		"decreasing": {0.5, 0.3},
		"zero":       {0, 1},
		"past max":   {1, 3},
	}

	for name, checkpoints := range cases {
		t.Run(name, func(t *testing.T) {
			solver := &echoSolver{}
			trainer := runtime.NewTrainer(solver)

			state, err := trainer.Run(context.Background(), newPlan(checkpoints, 10, 1))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
			assert.Nil(t, state)
			assert.Empty(t, solver.calls)
		})
	}
}

func TestTrainer_RejectsNonPositiveBudget(t *testing.T) {
	solver := &echoSolver{}
	trainer := runtime.NewTrainer(solver)

	_, err := trainer.Run(context.Background(), newPlan([]float64{1}, 0, 1))
	assert.ErrorIs(t, err, domain.ErrNonPositiveBudget)
	assert.Empty(t, solver.calls)
}

func TestTrainer_SolverFailureStopsRun(t *testing.T) {
	solver := &echoSolver{failAt: 3}
	var failed []*domain.RoundEvent
	trainer := runtime.NewTrainer(solver, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnRoundFailed: func(_ context.Context, e *domain.RoundEvent) { failed = append(failed, e) },
	}))

	var observed []int
	plan := newPlan([]float64{0.4, 0.8, 1.2, 1.6, 2.0}, 10, 1)
	plan.Observer = func(round int, _ domain.DomainSpec, _ domain.TrainingResult) {
		observed = append(observed, round)
	}

	state, err := trainer.Run(context.Background(), plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSolverFailure)

	var rerr *domain.RoundError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 3, rerr.Round)
	assert.Equal(t, 1.2, rerr.TimeUpper)

	assert.Equal(t, []int{1, 2}, observed)
	assert.Len(t, solver.calls, 3)

	require.NotNil(t, state)
	assert.Equal(t, 2, state.RoundIndex)
	assert.Equal(t, 0.8, state.TimeUpper)

	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].Round)
}

func TestTrainer_ContextCancelledBetweenRounds(t *testing.T) {
	solver := &echoSolver{}
	trainer := runtime.NewTrainer(solver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	plan := newPlan([]float64{0.5, 1.0, 1.5, 2.0}, 10, 1)
	plan.Observer = func(round int, _ domain.DomainSpec, _ domain.TrainingResult) {
		if round == 2 {
			cancel()
		}
	}

	state, err := trainer.Run(ctx, plan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, solver.calls, 2)
	assert.Equal(t, 2, state.RoundIndex)
}

func TestTrainer_HooksAndStore(t *testing.T) {
	solver := &echoSolver{}
	store := memory.NewStore()

	var started, ended []int
	trainer := runtime.NewTrainer(solver,
		runtime.WithStore(store),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnRoundStart: func(_ context.Context, e *domain.RoundEvent) { started = append(started, e.Round) },
			OnRoundEnd: func(_ context.Context, e *domain.RoundEvent) {
				ended = append(ended, e.Round)
				assert.Equal(t, e.Budget, e.Iterations)
			},
		}),
	)

	state, err := trainer.Run(context.Background(), newPlan([]float64{1, 2}, 4, 1))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, started)
	assert.Equal(t, []int{1, 2}, ended)

	saved, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, state.Parameters, saved.Parameters)
	assert.Equal(t, 2, saved.RoundIndex)
	assert.Equal(t, 2, saved.IterationBudget)
}

func TestTrainer_RunFromResumes(t *testing.T) {
	first := &echoSolver{failAt: 3}
	store := memory.NewStore()
	plan := newPlan([]float64{0.5, 1.0, 1.5, 2.0}, 10, 2)

	_, err := runtime.NewTrainer(first, runtime.WithStore(store)).Run(context.Background(), plan)
	require.Error(t, err)

	saved, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, saved.RoundIndex)

	second := &echoSolver{}
	state, err := runtime.NewTrainer(second, runtime.WithStore(store)).RunFrom(context.Background(), plan, saved)
	require.NoError(t, err)

	require.Len(t, second.calls, 2)
	assert.Equal(t, 1.5, second.calls[0].upper)
	assert.Equal(t, saved.Parameters, second.calls[0].params)
	assert.Equal(t, 6, second.calls[0].budget)
	assert.Equal(t, 4, state.RoundIndex)
	assert.Len(t, state.History, 4)
}

func TestTrainer_RunFromRejectsExhaustedBudget(t *testing.T) {
	trainer := runtime.NewTrainer(&echoSolver{})
	saved := domain.NewTrainingState("run-1", []float64{1}, 0)

	_, err := trainer.RunFrom(context.Background(), newPlan([]float64{1}, 5, 1), saved)
	assert.ErrorIs(t, err, domain.ErrNonPositiveBudget)
}

func TestTrainer_Warmup(t *testing.T) {
	solver := &echoSolver{}
	trainer := runtime.NewTrainer(solver)
	plan := newPlan([]float64{1}, 5, 1)

	params, err := trainer.Warmup(context.Background(), plan, []float64{1, 2}, 7)
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 5}, params)
	require.Len(t, solver.calls, 1)
	assert.Equal(t, 2.0, solver.calls[0].upper)
	assert.Equal(t, 7, solver.calls[0].budget)

	_, err = trainer.Warmup(context.Background(), plan, nil, 0)
	assert.ErrorIs(t, err, domain.ErrNonPositiveBudget)
}
