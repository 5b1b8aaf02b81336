/*
Package curriculum trains PDE surrogates by progressive domain expansion.

Instead of fitting an approximation over the whole time horizon at once, a run
visits an increasing sequence of time checkpoints t_1 < t_2 < ... <= T. Round k
trains on (0, t_k) x Space, starting from the parameters produced by round k-1,
with an iteration budget that shrinks by a fixed decrement and never drops
below one.

# Concept

The numerical work lives behind ports.Solver. The trainer only threads an
explicit TrainingState from round to round: parameters, budget and round
counter. Every round gets a fresh, immutable domain.DomainSpec whose boundary
conditions come from the same builder and reference, so the spatial box and the
boundary semantics stay fixed while the time window grows.

# Key Features

  - Warm start: round k+1 always starts from round k's parameters.
  - Fail fast: schedules are validated before the first solver call.
  - Durable runs: checkpoints after every round and Resume picks up where a run stopped.
  - Observability: lifecycle hooks, Prometheus metrics and a per-round observer.

# Usage

	problem := pde.Diffusion2D()
	solver, err := spectral.New(problem, spectral.DefaultOptions())
	if err != nil {
		log.Fatal(err)
	}

	trainer, err := curriculum.New(solver, curriculum.WithWarmup(200))
	if err != nil {
		log.Fatal(err)
	}

	sched := schedule.Schedule{
		Checkpoints:     []float64{0.5, 1, 1.5, 2},
		TimeMax:         problem.TimeMax,
		InitialBudget:   400,
		BudgetDecrement: 50,
	}
	state, err := trainer.Run(ctx, curriculum.PlanFor("demo", problem, sched))
*/
package curriculum
