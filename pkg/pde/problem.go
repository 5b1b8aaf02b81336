package pde

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/aretw0/curriculum/pkg/domain"
)

// Problem is a diffusion equation u_t = D * sum(u_xx) on a fixed box with a known solution.
type Problem struct {
	Name        string
	Description string
	Space       []domain.Interval
	TimeMax     float64
	Diffusivity float64
	Reference   domain.ReferenceFunc
	Builder     domain.BoundaryBuilder
}

// Conditions returns the boundary conditions of the problem.
func (p Problem) Conditions() map[string]domain.BoundaryCondition {
	return p.Builder(p.Space, p.Reference)
}

// Validate checks that the problem is complete.
func (p Problem) Validate() error {
	if p.Reference == nil || p.Builder == nil {
		return fmt.Errorf("%w: problem %q needs a reference and a boundary builder", domain.ErrInvalidDomain, p.Name)
	}
	if len(p.Space) == 0 {
		return fmt.Errorf("%w: problem %q has no space axes", domain.ErrInvalidDomain, p.Name)
	}
	for _, iv := range p.Space {
		if err := iv.Validate(); err != nil {
			return err
		}
	}
	if !(p.TimeMax > 0) {
		return fmt.Errorf("%w: problem %q has time_max %g", domain.ErrInvalidDomain, p.Name, p.TimeMax)
	}
	if !(p.Diffusivity > 0) {
		return fmt.Errorf("%w: problem %q has diffusivity %g", domain.ErrInvalidDomain, p.Name, p.Diffusivity)
	}
	return nil
}

// Diffusion2D is u_t = u_xx + u_yy on x, y in [0, 2], t in [0, 2] with
// u(t, x, y) = exp(x+y) * cos(x+y+4t).
func Diffusion2D() Problem {
	return Problem{
		Name:        "diffusion2d",
		Description: "u_t = u_xx + u_yy, u = exp(x+y)cos(x+y+4t)",
		Space: []domain.Interval{
			{Name: "x", Lower: 0, Upper: 2},
			{Name: "y", Lower: 0, Upper: 2},
		},
		TimeMax:     2,
		Diffusivity: 1,
		Reference: func(p domain.Point) float64 {
			s := p[1] + p[2]
			return math.Exp(s) * math.Cos(s+4*p[0])
		},
		Builder: Dirichlet,
	}
}

// Heat1D is u_t = u_xx on x in [0, 1], t in [0, 1] with u = exp(-pi^2 t) sin(pi x).
func Heat1D() Problem {
	return Problem{
		Name:        "heat1d",
		Description: "u_t = u_xx, u = exp(-pi^2 t)sin(pi x)",
		Space: []domain.Interval{
			{Name: "x", Lower: 0, Upper: 1},
		},
		TimeMax:     1,
		Diffusivity: 1,
		Reference: func(p domain.Point) float64 {
			return math.Exp(-math.Pi*math.Pi*p[0]) * math.Sin(math.Pi*p[1])
		},
		Builder: Dirichlet,
	}
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Problem{
		"diffusion2d": Diffusion2D,
		"heat1d":      Heat1D,
	}
)

// Register makes a problem constructor available by name.
func Register(name string, fn func() Problem) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Lookup returns the problem registered under name.
func Lookup(name string) (Problem, error) {
	registryMu.RLock()
	fn, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return Problem{}, fmt.Errorf("unknown problem %q (available: %v)", name, Names())
	}
	return fn(), nil
}

// Names returns the registered problem names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
