package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a CheckpointStore
// implementation adheres to the defined interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewTrainingState(runID, []float64{0.25, -1.5, 3}, 80)
		state.RoundIndex = 2
		state.TimeUpper = 0.3
		state.LastLoss = 0.0125
		state.History = []domain.RoundRecord{
			{Round: 1, TimeUpper: 0.1, Budget: 100, Iterations: 100, Loss: 0.5},
			{Round: 2, TimeUpper: 0.3, Budget: 90, Iterations: 90, Loss: 0.0125},
		}

		err := store.Save(ctx, runID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.RunID, loaded.RunID)
		assert.Equal(t, state.Parameters, loaded.Parameters)
		assert.Equal(t, state.IterationBudget, loaded.IterationBudget)
		assert.Equal(t, state.RoundIndex, loaded.RoundIndex)
		assert.Equal(t, state.TimeUpper, loaded.TimeUpper)
		assert.Equal(t, state.LastLoss, loaded.LastLoss)
		assert.Equal(t, state.History, loaded.History)
	})

	t.Run("Loaded State Is Isolated", func(t *testing.T) {
		state := domain.NewTrainingState(runID, []float64{1, 2}, 5)
		require.NoError(t, store.Save(ctx, runID, state))

		state.Parameters[0] = 100

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, 1.0, loaded.Parameters[0], "mutating the saved value must not reach the store")

		loaded.Parameters[1] = 200
		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, 2.0, again.Parameters[1], "mutating a loaded value must not reach the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, runID, domain.NewTrainingState(runID, nil, 1))
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, id1, domain.NewTrainingState(id1, nil, 1))
		_ = store.Save(ctx, id2, domain.NewTrainingState(id2, nil, 1))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
