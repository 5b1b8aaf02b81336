package domain

import (
	"fmt"
	"math"
	"sort"
)

// Interval is a closed range [Lower, Upper] along one named coordinate.
type Interval struct {
	Name  string  `json:"name" yaml:"name" mapstructure:"name"`
	Lower float64 `json:"lower" yaml:"lower" mapstructure:"lower"`
	Upper float64 `json:"upper" yaml:"upper" mapstructure:"upper"`
}

// Width returns Upper - Lower.
func (i Interval) Width() float64 {
	return i.Upper - i.Lower
}

// Contains reports whether v lies inside the closed interval.
func (i Interval) Contains(v float64) bool {
	return v >= i.Lower && v <= i.Upper
}

// Validate checks that the interval is finite and non-degenerate.
func (i Interval) Validate() error {
	if math.IsNaN(i.Lower) || math.IsNaN(i.Upper) || math.IsInf(i.Lower, 0) || math.IsInf(i.Upper, 0) {
		return fmt.Errorf("%w: interval %q is not finite", ErrInvalidDomain, i.Name)
	}
	if i.Upper <= i.Lower {
		return fmt.Errorf("%w: interval %q has upper %g <= lower %g", ErrInvalidDomain, i.Name, i.Upper, i.Lower)
	}
	return nil
}

// Point is a space-time coordinate. Index 0 is time, followed by the space
// coordinates in the order of DomainSpec.Space.
type Point []float64

// Approximation evaluates a candidate solution at a point.
type Approximation func(p Point) float64

// ReferenceFunc is an analytic reference solution u(t, x...).
type ReferenceFunc func(p Point) float64

// BoundaryCondition constrains the solution on one face of the region.
// Axis is the pinned coordinate (0 is time) and AtUpper selects which end of it.
type BoundaryCondition struct {
	ID      string
	Axis    int
	AtUpper bool

	// Value is the prescribed solution on the face.
	Value ReferenceFunc
}

// Residual returns how far the approximation is from the prescribed value at p.
func (c BoundaryCondition) Residual(u Approximation, p Point) float64 {
	return u(p) - c.Value(p)
}

// BoundaryBuilder produces the boundary conditions of a fixed spatial box
// from an analytic reference.
type BoundaryBuilder func(space []Interval, ref ReferenceFunc) map[string]BoundaryCondition

// DomainSpec is the region and boundary conditions used by one training round.
// It is immutable once built; accessors return copies.
type DomainSpec struct {
	time       Interval
	timeMax    float64
	space      []Interval
	conditions map[string]BoundaryCondition
}

// NewDomainSpec builds the region (0, timeUpper) x space.
// timeUpper must lie in (0, timeMax] and every condition must target an existing axis.
func NewDomainSpec(timeUpper, timeMax float64, space []Interval, conditions map[string]BoundaryCondition) (DomainSpec, error) {
	if !(timeUpper > 0) || timeUpper > timeMax || math.IsInf(timeMax, 0) {
		return DomainSpec{}, fmt.Errorf("%w: time upper %g outside (0, %g]", ErrInvalidDomain, timeUpper, timeMax)
	}
	for _, iv := range space {
		if err := iv.Validate(); err != nil {
			return DomainSpec{}, err
		}
	}

	conds := make(map[string]BoundaryCondition, len(conditions))
	for id, c := range conditions {
		if c.Axis < 0 || c.Axis > len(space) {
			return DomainSpec{}, fmt.Errorf("%w: condition %q targets axis %d of %d", ErrInvalidDomain, id, c.Axis, len(space)+1)
		}
		if c.Value == nil {
			return DomainSpec{}, fmt.Errorf("%w: condition %q has no value function", ErrInvalidDomain, id)
		}
		if c.ID == "" {
			c.ID = id
		}
		conds[id] = c
	}

	return DomainSpec{
		time:       Interval{Name: TimeAxis, Lower: 0, Upper: timeUpper},
		timeMax:    timeMax,
		space:      append([]Interval(nil), space...),
		conditions: conds,
	}, nil
}

// Time returns the temporal interval of this round. Lower is always 0.
func (d DomainSpec) Time() Interval {
	return d.time
}

// TimeMax returns the final time horizon of the whole schedule.
func (d DomainSpec) TimeMax() float64 {
	return d.timeMax
}

// Space returns a copy of the spatial intervals.
func (d DomainSpec) Space() []Interval {
	return append([]Interval(nil), d.space...)
}

// Dims returns the number of coordinates of a Point in this domain.
func (d DomainSpec) Dims() int {
	return len(d.space) + 1
}

// Axis returns the interval of coordinate i (0 is time).
func (d DomainSpec) Axis(i int) Interval {
	if i == 0 {
		return d.time
	}
	return d.space[i-1]
}

// Condition returns the boundary condition with the given identifier.
func (d DomainSpec) Condition(id string) (BoundaryCondition, bool) {
	c, ok := d.conditions[id]
	return c, ok
}

// ConditionIDs returns the boundary identifiers in sorted order.
func (d DomainSpec) ConditionIDs() []string {
	ids := make([]string, 0, len(d.conditions))
	for id := range d.conditions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Contains reports whether p lies inside the closed region.
func (d DomainSpec) Contains(p Point) bool {
	if len(p) != d.Dims() {
		return false
	}
	for i, v := range p {
		if !d.Axis(i).Contains(v) {
			return false
		}
	}
	return true
}
