/*
Package ports defines the driven ports (interfaces) of the curriculum trainer.

These interfaces decouple the training loop from the numerics that fit a
surrogate and from the places checkpoints are kept, so the same loop can drive
any solver and persist to memory, disk or Redis.

# Key Interfaces

  - Solver: trains the approximator over one DomainSpec from a warm start.
  - Evaluator: evaluates a trained parameter vector at a point (used by reporters).
  - CheckpointStore: persists the TrainingState of a run between rounds.
  - DistributedLocker: provides distributed locking so one run is driven by one process.
*/
package ports
