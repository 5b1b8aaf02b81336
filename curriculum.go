package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/curriculum/internal/logging"
	"github.com/aretw0/curriculum/internal/runtime"
	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/pde"
	"github.com/aretw0/curriculum/pkg/ports"
	"github.com/aretw0/curriculum/pkg/schedule"
	"github.com/aretw0/curriculum/pkg/session"
)

// Plan describes one run: schedule, starting parameters, box, reference and observer.
type Plan = runtime.Plan

// PlanFor builds a plan for a registered problem.
func PlanFor(runID string, problem pde.Problem, sched schedule.Schedule) Plan {
	return Plan{
		RunID:     runID,
		Schedule:  sched,
		Space:     problem.Space,
		Reference: problem.Reference,
		Builder:   problem.Builder,
	}
}

// Trainer is the high-level entry point. It wraps the internal round loop with
// warm-up, locking and resume.
type Trainer struct {
	solver  ports.Solver
	runtime *runtime.Trainer
	manager *session.Manager

	store   ports.CheckpointStore
	locker  ports.DistributedLocker
	lockTTL time.Duration
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	warmup  int
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trainer) {
		t.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(t *Trainer) {
		t.hooks = hooks
	}
}

// WithStore checkpoints the state after every round and enables Resume.
func WithStore(store ports.CheckpointStore) Option {
	return func(t *Trainer) {
		t.store = store
	}
}

// WithLocker guards each run ID with a distributed lock. Requires WithStore.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(t *Trainer) {
		t.locker = locker
	}
}

// WithLockTTL sets the expiry of the distributed run lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(t *Trainer) {
		t.lockTTL = ttl
	}
}

// WithWarmup trains once over the full horizon for the given number of
// iterations when a plan has no InitialParams.
func WithWarmup(iterations int) Option {
	return func(t *Trainer) {
		t.warmup = iterations
	}
}

// New creates a Trainer around solver.
func New(solver ports.Solver, opts ...Option) (*Trainer, error) {
	if solver == nil {
		return nil, fmt.Errorf("solver is required")
	}
	t := &Trainer{solver: solver}
	for _, opt := range opts {
		opt(t)
	}

	if t.warmup < 0 {
		return nil, fmt.Errorf("%w: warm-up iterations %d", domain.ErrNonPositiveBudget, t.warmup)
	}
	if t.locker != nil && t.store == nil {
		return nil, fmt.Errorf("a distributed locker needs a checkpoint store")
	}
	if t.logger == nil {
		t.logger = logging.NewNop()
	}

	runtimeOpts := []runtime.TrainerOption{
		runtime.WithLogger(t.logger),
		runtime.WithLifecycleHooks(t.hooks),
	}
	if t.store != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithStore(t.store))
		t.manager = session.NewManager(t.store,
			session.WithLocker(t.locker),
			session.WithLockTTL(t.lockTTL),
			session.WithLogger(t.logger),
		)
	}
	t.runtime = runtime.NewTrainer(solver, runtimeOpts...)
	return t, nil
}

// Run executes every checkpoint of plan.
//
// Without plan.InitialParams the starting vector is the warm-up result when
// WithWarmup is set, else the solver's InitialParameters if it has any.
// An empty schedule makes no solver calls and returns the initial state.
// Schedule errors are returned before any solver call, with a nil state.
// On failure the returned state is the last completed round's.
func (t *Trainer) Run(ctx context.Context, plan Plan) (*domain.TrainingState, error) {
	if err := plan.Schedule.Validate(); err != nil {
		return nil, err
	}

	var state *domain.TrainingState
	err := t.withLock(ctx, plan.RunID, func(ctx context.Context) error {
		if plan.InitialParams == nil {
			params, err := t.initialParams(ctx, plan)
			if err != nil {
				return err
			}
			plan.InitialParams = params
		}

		var err error
		state, err = t.runtime.Run(ctx, plan)
		return err
	})
	return state, err
}

// Resume loads the saved state of plan.RunID and runs the checkpoints after
// its TimeUpper with the saved parameters and budget.
func (t *Trainer) Resume(ctx context.Context, plan Plan) (*domain.TrainingState, error) {
	if t.store == nil {
		return nil, fmt.Errorf("resume needs a checkpoint store")
	}

	var state *domain.TrainingState
	err := t.withLock(ctx, plan.RunID, func(ctx context.Context) error {
		saved, err := t.store.Load(ctx, plan.RunID)
		if err != nil {
			return fmt.Errorf("failed to load run %q: %w", plan.RunID, err)
		}
		t.logger.Info("resuming run", "run_id", plan.RunID, "completed_rounds", saved.RoundIndex, "t_upper", saved.TimeUpper)

		state, err = t.runtime.RunFrom(ctx, plan, saved)
		return err
	})
	return state, err
}

func (t *Trainer) initialParams(ctx context.Context, plan Plan) ([]float64, error) {
	var params []float64
	if init, ok := t.solver.(ports.Initializer); ok {
		params = init.InitialParameters()
	}
	// An empty schedule trains nothing, warm-up included.
	if t.warmup == 0 || len(plan.Schedule.Checkpoints) == 0 {
		return params, nil
	}
	return t.runtime.Warmup(ctx, plan, params, t.warmup)
}

func (t *Trainer) withLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	if t.manager == nil {
		return fn(ctx)
	}
	return t.manager.WithLock(ctx, runID, fn)
}
