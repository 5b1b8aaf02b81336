package domain

// Boundary identifiers produced by the standard Dirichlet builder.
// Space faces are named "<axis>_min" and "<axis>_max".
const (
	// TimeAxis is the name of coordinate 0 of every Point.
	TimeAxis = "t"

	// ConditionInitial pins the solution at t = 0.
	ConditionInitial = "t_min"
)

// MinIterationBudget is the smallest iteration count ever passed to a solver.
const MinIterationBudget = 1

// FaceID returns the boundary identifier of the lower or upper face of an axis.
func FaceID(axis string, upper bool) string {
	if upper {
		return axis + "_max"
	}
	return axis + "_min"
}
