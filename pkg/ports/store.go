package ports

import (
	"context"

	"github.com/aretw0/curriculum/pkg/domain"
)

// CheckpointStore defines the interface for persisting training state.
// This allows a run to be stopped after any round and resumed later.
type CheckpointStore interface {
	// Save persists the state for a given run ID.
	Save(ctx context.Context, runID string, state *domain.TrainingState) error

	// Load retrieves the state for a given run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.TrainingState, error)

	// Delete removes the state for a given run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all stored runs.
	List(ctx context.Context) ([]string, error)
}
