package pde

import "github.com/aretw0/curriculum/pkg/domain"

// Dirichlet builds value conditions from ref for the initial time slice and for
// both faces of every spatial axis. It satisfies domain.BoundaryBuilder.
func Dirichlet(space []domain.Interval, ref domain.ReferenceFunc) map[string]domain.BoundaryCondition {
	conds := make(map[string]domain.BoundaryCondition, 1+2*len(space))

	conds[domain.ConditionInitial] = domain.BoundaryCondition{
		ID:    domain.ConditionInitial,
		Axis:  0,
		Value: ref,
	}

	for i, iv := range space {
		for _, upper := range []bool{false, true} {
			id := domain.FaceID(iv.Name, upper)
			conds[id] = domain.BoundaryCondition{
				ID:      id,
				Axis:    i + 1,
				AtUpper: upper,
				Value:   ref,
			}
		}
	}

	return conds
}

// Pin returns the point p with coordinate axis moved onto the face of iv.
func Pin(p domain.Point, axis int, iv domain.Interval, upper bool) domain.Point {
	q := append(domain.Point(nil), p...)
	if upper {
		q[axis] = iv.Upper
	} else {
		q[axis] = iv.Lower
	}
	return q
}
