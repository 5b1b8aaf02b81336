package curriculum_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/curriculum"
	"github.com/aretw0/curriculum/pkg/adapters/memory"
	"github.com/aretw0/curriculum/pkg/adapters/redis"
	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/pde"
	"github.com/aretw0/curriculum/pkg/schedule"
)

// shiftSolver adds 1 to every parameter and starts from [0, 0].
type shiftSolver struct {
	mu     sync.Mutex
	uppers []float64
	inputs [][]float64
	failAt int
}

func (s *shiftSolver) InitialParameters() []float64 { return []float64{0, 0} }

func (s *shiftSolver) Train(ctx context.Context, dom domain.DomainSpec, params []float64, n int) (domain.TrainingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uppers = append(s.uppers, dom.Time().Upper)
	s.inputs = append(s.inputs, append([]float64(nil), params...))
	if s.failAt > 0 && len(s.uppers) == s.failAt {
		return domain.TrainingResult{}, errors.New("exploded")
	}
	out := make([]float64, len(params))
	for i, p := range params {
		out[i] = p + 1
	}
	return domain.TrainingResult{Parameters: out, FinalLoss: 0.5, Iterations: n}, nil
}

func testPlan(checkpoints ...float64) curriculum.Plan {
	problem := pde.Diffusion2D()
	return curriculum.PlanFor("facade", problem, schedule.Schedule{
		Checkpoints:     checkpoints,
		TimeMax:         problem.TimeMax,
		InitialBudget:   20,
		BudgetDecrement: 5,
	})
}

func TestNew_Validation(t *testing.T) {
	_, err := curriculum.New(nil)
	assert.Error(t, err)

	_, err = curriculum.New(&shiftSolver{}, curriculum.WithWarmup(-1))
	assert.ErrorIs(t, err, domain.ErrNonPositiveBudget)

	client := backend.NewClient(&backend.Options{Addr: "localhost:0"})
	defer client.Close()
	_, err = curriculum.New(&shiftSolver{}, curriculum.WithLocker(redis.NewLocker(client, "")))
	assert.Error(t, err)
}

func TestRun_UsesSolverInitialParameters(t *testing.T) {
	solver := &shiftSolver{}
	trainer, err := curriculum.New(solver)
	require.NoError(t, err)

	state, err := trainer.Run(context.Background(), testPlan(1, 2))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0}, solver.inputs[0])
	assert.Equal(t, []float64{2, 2}, state.Parameters)
	assert.Equal(t, 10, state.IterationBudget)
}

func TestRun_Warmup(t *testing.T) {
	solver := &shiftSolver{}
	trainer, err := curriculum.New(solver, curriculum.WithWarmup(50))
	require.NoError(t, err)

	state, err := trainer.Run(context.Background(), testPlan(0.5, 1))
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 0.5, 1}, solver.uppers)
	assert.Equal(t, []float64{1, 1}, solver.inputs[1])
	assert.Equal(t, []float64{3, 3}, state.Parameters)
	assert.Equal(t, 2, state.RoundIndex)
}

func TestRun_EmptyScheduleSkipsWarmup(t *testing.T) {
	solver := &shiftSolver{}
	trainer, err := curriculum.New(solver, curriculum.WithWarmup(10))
	require.NoError(t, err)

	state, err := trainer.Run(context.Background(), testPlan())
	require.NoError(t, err)

	assert.Empty(t, solver.uppers, "no solver call, not even a warm-up")
	assert.Equal(t, []float64{0, 0}, state.Parameters)
	assert.Equal(t, 0, state.RoundIndex)
	assert.Equal(t, 20, state.IterationBudget)
}

func TestRun_ExplicitInitialParamsSkipWarmup(t *testing.T) {
	solver := &shiftSolver{}
	trainer, err := curriculum.New(solver, curriculum.WithWarmup(50))
	require.NoError(t, err)

	plan := testPlan(1)
	plan.InitialParams = []float64{10}

	state, err := trainer.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, solver.uppers)
	assert.Equal(t, []float64{11}, state.Parameters)
}

func TestRun_InvalidScheduleBeforeWarmup(t *testing.T) {
	solver := &shiftSolver{}
	trainer, err := curriculum.New(solver, curriculum.WithWarmup(50))
	require.NoError(t, err)

	state, err := trainer.Run(context.Background(), testPlan(0.5, 0.3))
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
	assert.Nil(t, state)
	assert.Empty(t, solver.uppers)
}

func TestResume(t *testing.T) {
	store := memory.NewStore()
	plan := testPlan(0.5, 1, 1.5, 2)

	failing := &shiftSolver{failAt: 3}
	trainer, err := curriculum.New(failing, curriculum.WithStore(store))
	require.NoError(t, err)

	state, err := trainer.Run(context.Background(), plan)
	require.ErrorIs(t, err, domain.ErrSolverFailure)
	assert.Equal(t, 2, state.RoundIndex)

	healthy := &shiftSolver{}
	trainer, err = curriculum.New(healthy, curriculum.WithStore(store))
	require.NoError(t, err)

	state, err = trainer.Resume(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []float64{1.5, 2}, healthy.uppers)
	assert.Equal(t, []float64{2, 2}, healthy.inputs[0])
	assert.Equal(t, 4, state.RoundIndex)
	assert.Equal(t, []float64{4, 4}, state.Parameters)

	saved, err := store.Load(context.Background(), "facade")
	require.NoError(t, err)
	assert.Equal(t, state.Parameters, saved.Parameters)
}

func TestResume_Errors(t *testing.T) {
	trainer, err := curriculum.New(&shiftSolver{})
	require.NoError(t, err)
	_, err = trainer.Resume(context.Background(), testPlan(1))
	assert.Error(t, err)

	trainer, err = curriculum.New(&shiftSolver{}, curriculum.WithStore(memory.NewStore()))
	require.NoError(t, err)
	_, err = trainer.Resume(context.Background(), testPlan(1))
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRun_DistributedLockIsHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lockKey := redis.DefaultPrefix + "lock:facade"
	var heldDuringRound bool
	solver := &shiftSolver{}
	observed := func(int, domain.DomainSpec, domain.TrainingResult) {
		heldDuringRound = mr.Exists(lockKey)
	}

	trainer, err := curriculum.New(solver,
		curriculum.WithStore(redis.NewFromClient(client)),
		curriculum.WithLocker(redis.NewLocker(client, redis.DefaultPrefix)),
		curriculum.WithLockTTL(time.Minute),
	)
	require.NoError(t, err)

	plan := testPlan(1)
	plan.Observer = observed
	_, err = trainer.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.True(t, heldDuringRound)
	assert.False(t, mr.Exists(lockKey))
}

// slowRoundSolver lets miniredis time run past the lock TTL several times
// while a single round is still training.
type slowRoundSolver struct {
	mr      *miniredis.Miniredis
	rival   *redis.Locker
	stolen  bool
	ctxDone bool
}

func (s *slowRoundSolver) Train(ctx context.Context, dom domain.DomainSpec, params []float64, n int) (domain.TrainingResult, error) {
	for i := 0; i < 6; i++ {
		s.mr.FastForward(200 * time.Millisecond)
		time.Sleep(250 * time.Millisecond)
	}

	tryCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	if unlock, err := s.rival.Lock(tryCtx, "facade", time.Minute); err == nil {
		s.stolen = true
		_ = unlock(context.Background())
	}
	s.ctxDone = ctx.Err() != nil

	return domain.TrainingResult{Parameters: append([]float64(nil), params...), Iterations: n}, nil
}

func TestRun_DistributedLockOutlivesItsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	solver := &slowRoundSolver{mr: mr, rival: redis.NewLocker(client, redis.DefaultPrefix)}
	trainer, err := curriculum.New(solver,
		curriculum.WithStore(redis.NewFromClient(client)),
		curriculum.WithLocker(redis.NewLocker(client, redis.DefaultPrefix)),
		curriculum.WithLockTTL(300*time.Millisecond),
	)
	require.NoError(t, err)

	plan := testPlan(1)
	plan.InitialParams = []float64{1}
	state, err := trainer.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.False(t, solver.stolen, "another owner acquired the run lock while the round was training")
	assert.False(t, solver.ctxDone)
	assert.Equal(t, 1, state.RoundIndex)
	assert.False(t, mr.Exists(redis.DefaultPrefix+"lock:facade"))
}
