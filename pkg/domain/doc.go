/*
Package domain contains the core domain models of the curriculum trainer.

It defines the space-time region a training round works on, the state carried
between rounds, and the per-round result produced by a solver. The package is
kept pure and free of I/O, persistence and numerics so that adapters (stores,
solvers, reporters) can depend on it without pulling each other in.

# Key Entities

  - Interval: a closed range along one coordinate (time or a space axis).
  - DomainSpec: the immutable region and boundary conditions for one round.
  - BoundaryCondition: a residual-defining constraint on one face of the region.
  - TrainingState: the warm-start parameters, iteration budget and round counter.
  - TrainingResult: what a solver returns after one round.
*/
package domain
