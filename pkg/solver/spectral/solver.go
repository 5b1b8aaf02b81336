// Package spectral is a reference solver: a linear combination of tensor-product
// Legendre polynomials fitted by full-batch gradient descent on the collocation
// residual of u_t = D * laplacian(u) plus the boundary mismatch.
//
// The polynomials are scaled to the problem's full box [0, TimeMax] x Space, so
// a parameter vector learned on a short time window is a valid starting point
// for a longer one.
package spectral

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/pde"
)

// ErrDiverged is returned when the loss stops being a finite number.
var ErrDiverged = errors.New("training diverged")

const (
	powerIterations = 30
	cancelEvery     = 64
)

// Solver fits one pde.Problem.
type Solver struct {
	problem pde.Problem
	opts    Options
	basis   *basis
}

// New builds a solver for problem.
func New(problem pde.Problem, opts Options) (*Solver, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	lower := []float64{0}
	width := []float64{problem.TimeMax}
	for _, iv := range problem.Space {
		lower = append(lower, iv.Lower)
		width = append(width, iv.Width())
	}

	return &Solver{
		problem: problem,
		opts:    opts,
		basis:   newBasis(opts.Degree, lower, width),
	}, nil
}

// NumParameters is the length of every parameter vector this solver accepts.
func (s *Solver) NumParameters() int {
	return s.basis.size()
}

// Options returns the settings the solver was built with.
func (s *Solver) Options() Options {
	return s.opts
}

// InitialParameters returns the zero function.
func (s *Solver) InitialParameters() []float64 {
	return make([]float64, s.basis.size())
}

// Evaluate returns the approximation described by params at p.
func (s *Solver) Evaluate(params []float64, p domain.Point) float64 {
	if len(params) != s.basis.size() || len(p) != s.basis.dims() {
		return math.NaN()
	}
	phi := make([]float64, s.basis.size())
	s.basis.values(p, phi)
	return floats.Dot(params, phi)
}

// Approximation binds params into a function of a point.
func (s *Solver) Approximation(params []float64) domain.Approximation {
	theta := append([]float64(nil), params...)
	return func(p domain.Point) float64 {
		return s.Evaluate(theta, p)
	}
}

// Train runs at most maxIterations gradient steps on dom starting from params.
// A nil params starts from zero.
func (s *Solver) Train(ctx context.Context, dom domain.DomainSpec, params []float64, maxIterations int) (domain.TrainingResult, error) {
	if maxIterations < domain.MinIterationBudget {
		return domain.TrainingResult{}, fmt.Errorf("%w: %d iterations", domain.ErrNonPositiveBudget, maxIterations)
	}
	if err := s.checkDomain(dom); err != nil {
		return domain.TrainingResult{}, err
	}

	n := s.basis.size()
	if params == nil {
		params = make([]float64, n)
	}
	if len(params) != n {
		return domain.TrainingResult{}, fmt.Errorf("expected %d parameters, got %d", n, len(params))
	}

	a, b := s.assemble(dom)
	m, _ := a.Dims()

	lambda := largestEigenvalue(a)
	if !(lambda > 0) {
		return domain.TrainingResult{}, fmt.Errorf("%w: degenerate collocation system", domain.ErrInvalidDomain)
	}
	// The loss gradient is (2/m) A^T r with Lipschitz constant (2/m) lambda, so a
	// step of rate/L reduces to rate/lambda on A^T r.
	step := s.opts.LearningRate / lambda

	theta := mat.NewVecDense(n, append([]float64(nil), params...))
	r := mat.NewVecDense(m, nil)
	grad := mat.NewVecDense(n, nil)

	loss := residual(a, b, theta, r)
	iterations := 0
	for iterations < maxIterations {
		if iterations%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return domain.TrainingResult{}, err
			}
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return domain.TrainingResult{}, fmt.Errorf("%w after %d iterations", ErrDiverged, iterations)
		}
		if loss <= s.opts.Tolerance {
			break
		}

		grad.MulVec(a.T(), r)
		theta.AddScaledVec(theta, -step, grad)
		iterations++
		loss = residual(a, b, theta, r)
	}
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return domain.TrainingResult{}, fmt.Errorf("%w after %d iterations", ErrDiverged, iterations)
	}

	return domain.TrainingResult{
		Parameters: append([]float64(nil), theta.RawVector().Data...),
		FinalLoss:  loss,
		Iterations: iterations,
		Domain:     dom,
	}, nil
}

// Loss returns the mean squared collocation residual of params on dom.
func (s *Solver) Loss(dom domain.DomainSpec, params []float64) (float64, error) {
	if err := s.checkDomain(dom); err != nil {
		return 0, err
	}
	if len(params) != s.basis.size() {
		return 0, fmt.Errorf("expected %d parameters, got %d", s.basis.size(), len(params))
	}
	a, b := s.assemble(dom)
	m, _ := a.Dims()
	return residual(a, b, mat.NewVecDense(len(params), append([]float64(nil), params...)), mat.NewVecDense(m, nil)), nil
}

func (s *Solver) checkDomain(dom domain.DomainSpec) error {
	if dom.Dims() != s.basis.dims() {
		return fmt.Errorf("%w: solver expects %d coordinates, domain has %d", domain.ErrInvalidDomain, s.basis.dims(), dom.Dims())
	}
	if dom.Time().Upper > s.problem.TimeMax {
		return fmt.Errorf("%w: time %g beyond solver horizon %g", domain.ErrInvalidDomain, dom.Time().Upper, s.problem.TimeMax)
	}
	for i, iv := range dom.Space() {
		want := s.problem.Space[i]
		if iv.Lower < want.Lower || iv.Upper > want.Upper {
			return fmt.Errorf("%w: axis %q [%g, %g] outside [%g, %g]", domain.ErrInvalidDomain, iv.Name, iv.Lower, iv.Upper, want.Lower, want.Upper)
		}
	}
	return nil
}

// assemble builds the least-squares system A theta = b: one row per interior
// collocation point (PDE residual, target 0) and one per boundary sample.
func (s *Solver) assemble(dom domain.DomainSpec) (*mat.Dense, *mat.VecDense) {
	n := s.basis.size()
	dims := dom.Dims()

	var rows [][]float64
	var targets []float64

	axes := make([][]float64, dims)
	for a := 0; a < dims; a++ {
		axes[a] = interiorNodes(dom.Axis(a), s.opts.Points)
	}
	eachPoint(axes, func(p domain.Point) {
		row := make([]float64, n)
		s.basis.residual(p, s.problem.Diffusivity, row)
		rows = append(rows, row)
		targets = append(targets, 0)
	})

	w := s.opts.BoundaryWeight
	for _, id := range dom.ConditionIDs() {
		cond, _ := dom.Condition(id)
		face := make([][]float64, dims)
		for a := 0; a < dims; a++ {
			if a == cond.Axis {
				face[a] = []float64{0}
				continue
			}
			face[a] = faceNodes(dom.Axis(a), s.opts.BoundaryPoints)
		}
		eachPoint(face, func(p domain.Point) {
			q := pde.Pin(p, cond.Axis, dom.Axis(cond.Axis), cond.AtUpper)
			row := make([]float64, n)
			s.basis.values(q, row)
			floats.Scale(w, row)
			rows = append(rows, row)
			targets = append(targets, w*cond.Value(q))
		})
	}

	a := mat.NewDense(len(rows), n, nil)
	for i, row := range rows {
		a.SetRow(i, row)
	}
	return a, mat.NewVecDense(len(targets), targets)
}

// residual writes A theta - b into r and returns the mean squared residual.
func residual(a *mat.Dense, b, theta, r *mat.VecDense) float64 {
	r.MulVec(a, theta)
	r.SubVec(r, b)
	m := r.Len()
	return mat.Dot(r, r) / float64(m)
}

// largestEigenvalue estimates the top eigenvalue of A^T A by power iteration.
func largestEigenvalue(a *mat.Dense) float64 {
	m, n := a.Dims()
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, 1/math.Sqrt(float64(n)))
	}
	av := mat.NewVecDense(m, nil)
	w := mat.NewVecDense(n, nil)

	lambda := 0.0
	for i := 0; i < powerIterations; i++ {
		av.MulVec(a, v)
		w.MulVec(a.T(), av)
		lambda = mat.Norm(w, 2)
		if lambda == 0 {
			return 0
		}
		v.ScaleVec(1/lambda, w)
	}
	return lambda
}

func interiorNodes(iv domain.Interval, count int) []float64 {
	out := make([]float64, count)
	h := iv.Width() / float64(count)
	for j := range out {
		out[j] = iv.Lower + (float64(j)+0.5)*h
	}
	return out
}

func faceNodes(iv domain.Interval, count int) []float64 {
	out := make([]float64, count)
	h := iv.Width() / float64(count-1)
	for j := range out {
		out[j] = iv.Lower + float64(j)*h
	}
	out[count-1] = iv.Upper
	return out
}

// eachPoint calls fn for every point of the Cartesian product of axes.
func eachPoint(axes [][]float64, fn func(domain.Point)) {
	idx := make([]int, len(axes))
	for {
		p := make(domain.Point, len(axes))
		for a, i := range idx {
			p[a] = axes[a][i]
		}
		fn(p)

		a := len(axes) - 1
		for a >= 0 {
			idx[a]++
			if idx[a] < len(axes[a]) {
				break
			}
			idx[a] = 0
			a--
		}
		if a < 0 {
			return
		}
	}
}
