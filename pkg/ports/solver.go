package ports

import (
	"context"

	"github.com/aretw0/curriculum/pkg/domain"
)

// Solver wraps a trainable function approximator.
// It is the only call into the numerical stack and is treated as blocking.
type Solver interface {
	// Train fits the approximator over dom starting from params, taking at most
	// maxIterations optimizer steps. A non-nil error means the round failed and
	// the returned result must not be used.
	Train(ctx context.Context, dom domain.DomainSpec, params []float64, maxIterations int) (domain.TrainingResult, error)
}

// SolverFunc adapts a plain function to the Solver interface.
type SolverFunc func(ctx context.Context, dom domain.DomainSpec, params []float64, maxIterations int) (domain.TrainingResult, error)

// Train calls f.
func (f SolverFunc) Train(ctx context.Context, dom domain.DomainSpec, params []float64, maxIterations int) (domain.TrainingResult, error) {
	return f(ctx, dom, params, maxIterations)
}

// Initializer is implemented by solvers that can produce a starting parameter vector.
type Initializer interface {
	InitialParameters() []float64
}

// Evaluator evaluates the approximation described by params at a point.
type Evaluator interface {
	Evaluate(params []float64, p domain.Point) float64
}
