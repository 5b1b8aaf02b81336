package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/curriculum/internal/logging"
	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/ports"
	"github.com/aretw0/curriculum/pkg/schedule"
)

// Plan is everything a run needs besides the solver.
type Plan struct {
	RunID         string
	Schedule      schedule.Schedule
	InitialParams []float64

	// Space is the fixed spatial box shared by every round.
	Space []domain.Interval

	// Reference and Builder produce the boundary conditions of every round.
	Reference domain.ReferenceFunc
	Builder   domain.BoundaryBuilder

	// Observer is called after every completed round. Optional.
	Observer domain.Observer
}

// Trainer drives curriculum training: one solver call per checkpoint, each
// over a wider time range and warm-started from the previous round.
type Trainer struct {
	solver ports.Solver
	store  ports.CheckpointStore
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) TrainerOption {
	return func(t *Trainer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) TrainerOption {
	return func(t *Trainer) {
		t.hooks = hooks
	}
}

// WithStore saves the training state after every completed round.
func WithStore(store ports.CheckpointStore) TrainerOption {
	return func(t *Trainer) {
		t.store = store
	}
}

// WithClock overrides the time source used for timestamps and durations.
func WithClock(now func() time.Time) TrainerOption {
	return func(t *Trainer) {
		t.now = now
	}
}

// NewTrainer creates a trainer around a solver.
func NewTrainer(solver ports.Solver, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		solver: solver,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run validates the plan and executes every checkpoint in order, starting from
// plan.InitialParams and plan.Schedule.InitialBudget.
//
// Schedule and budget errors are returned before any round runs, with a nil state.
// On a solver failure the returned state is the last completed round's state.
func (t *Trainer) Run(ctx context.Context, plan Plan) (*domain.TrainingState, error) {
	if err := t.validate(plan); err != nil {
		return nil, err
	}
	state := domain.NewTrainingState(plan.RunID, plan.InitialParams, plan.Schedule.InitialBudget)
	state.UpdatedAt = t.now()
	return t.execute(ctx, plan, plan.Schedule.Checkpoints, state)
}

// RunFrom continues a run from a previously saved state. Checkpoints at or
// below state.TimeUpper are considered done and skipped; the saved parameters,
// budget and round counter carry on.
func (t *Trainer) RunFrom(ctx context.Context, plan Plan, state *domain.TrainingState) (*domain.TrainingState, error) {
	if state == nil {
		return t.Run(ctx, plan)
	}
	if err := t.validate(plan); err != nil {
		return nil, err
	}
	if state.IterationBudget < domain.MinIterationBudget {
		return nil, fmt.Errorf("%w: saved budget %d", domain.ErrNonPositiveBudget, state.IterationBudget)
	}
	if state.TimeUpper > plan.Schedule.TimeMax {
		return nil, fmt.Errorf("%w: saved time %g exceeds time_max %g", domain.ErrInvalidSchedule, state.TimeUpper, plan.Schedule.TimeMax)
	}
	remaining := plan.Schedule.After(state.TimeUpper)
	return t.execute(ctx, plan, remaining.Checkpoints, state.Clone())
}

// Warmup trains once over the full horizon from params and returns the
// resulting vector, for use as plan.InitialParams.
func (t *Trainer) Warmup(ctx context.Context, plan Plan, params []float64, iterations int) ([]float64, error) {
	if iterations < domain.MinIterationBudget {
		return nil, fmt.Errorf("%w: warm-up iterations %d", domain.ErrNonPositiveBudget, iterations)
	}
	if err := t.validatePlanShape(plan); err != nil {
		return nil, err
	}

	spec, err := domain.NewDomainSpec(plan.Schedule.TimeMax, plan.Schedule.TimeMax, plan.Space, plan.Builder(plan.Space, plan.Reference))
	if err != nil {
		return nil, err
	}

	logger := t.logger.With("run_id", plan.RunID)
	logger.Info("warm-up started", "t_upper", plan.Schedule.TimeMax, "budget", iterations)

	result, err := t.solver.Train(ctx, spec, append([]float64(nil), params...), iterations)
	if err != nil {
		logger.Error("warm-up failed", "err", err)
		return nil, &domain.RoundError{Round: 0, TimeUpper: plan.Schedule.TimeMax, Err: err}
	}

	logger.Info("warm-up completed", "loss", result.FinalLoss, "iterations", result.Iterations)
	return append([]float64(nil), result.Parameters...), nil
}

func (t *Trainer) validate(plan Plan) error {
	if err := plan.Schedule.Validate(); err != nil {
		return err
	}
	return t.validatePlanShape(plan)
}

func (t *Trainer) validatePlanShape(plan Plan) error {
	if t.solver == nil {
		return fmt.Errorf("trainer has no solver")
	}
	if plan.Builder == nil || plan.Reference == nil {
		return fmt.Errorf("%w: plan needs a boundary builder and a reference", domain.ErrInvalidDomain)
	}
	return nil
}

func (t *Trainer) execute(ctx context.Context, plan Plan, checkpoints []float64, state *domain.TrainingState) (*domain.TrainingState, error) {
	logger := t.logger.With("run_id", state.RunID)
	decrement := plan.Schedule.BudgetDecrement

	for _, upper := range checkpoints {
		if err := ctx.Err(); err != nil {
			logger.Info("run interrupted", "completed_rounds", state.RoundIndex, "err", err)
			return state, err
		}

		round := state.RoundIndex + 1
		budget := state.IterationBudget

		// The builder sees the same box and reference every round; only the time bound moves.
		spec, err := domain.NewDomainSpec(upper, plan.Schedule.TimeMax, plan.Space, plan.Builder(plan.Space, plan.Reference))
		if err != nil {
			return state, err
		}

		event := &domain.RoundEvent{
			Timestamp: t.now(),
			RunID:     state.RunID,
			Round:     round,
			TimeUpper: upper,
			Budget:    budget,
		}
		if t.hooks.OnRoundStart != nil {
			t.hooks.OnRoundStart(ctx, event)
		}
		logger.Debug("round started", "round", round, "t_upper", upper, "budget", budget)

		started := t.now()
		result, err := t.solver.Train(ctx, spec, append([]float64(nil), state.Parameters...), budget)
		if err == nil && len(result.Parameters) == 0 {
			err = fmt.Errorf("solver returned an empty parameter vector")
		}
		if err != nil {
			rerr := &domain.RoundError{Round: round, TimeUpper: upper, Err: err}
			failed := *event
			failed.Timestamp = t.now()
			failed.Duration = failed.Timestamp.Sub(started)
			failed.Err = rerr
			if t.hooks.OnRoundFailed != nil {
				t.hooks.OnRoundFailed(ctx, &failed)
			}
			logger.Error("round failed", "round", round, "t_upper", upper, "err", err)
			return state, rerr
		}
		result.Domain = spec

		next := state.Clone()
		next.Parameters = append([]float64(nil), result.Parameters...)
		next.LastLoss = result.FinalLoss
		next.TimeUpper = upper
		next.RoundIndex = round
		next.IterationBudget = schedule.NextBudget(budget, decrement)
		next.History = append(next.History, domain.RoundRecord{
			Round:      round,
			TimeUpper:  upper,
			Budget:     budget,
			Iterations: result.Iterations,
			Loss:       result.FinalLoss,
		})
		next.UpdatedAt = t.now()
		state = next

		if t.store != nil {
			if err := t.store.Save(ctx, state.RunID, state); err != nil {
				return state, fmt.Errorf("failed to checkpoint round %d: %w", round, err)
			}
			logger.Debug("checkpoint saved", "round", round)
		}

		done := *event
		done.Timestamp = state.UpdatedAt
		done.Duration = done.Timestamp.Sub(started)
		done.Loss = result.FinalLoss
		done.Iterations = result.Iterations
		if t.hooks.OnRoundEnd != nil {
			t.hooks.OnRoundEnd(ctx, &done)
		}
		logger.Info("round completed",
			"round", round,
			"t_upper", upper,
			"budget", budget,
			"iterations", result.Iterations,
			"loss", result.FinalLoss,
		)

		if plan.Observer != nil {
			plan.Observer(round, spec, result)
		}
	}

	return state, nil
}
