package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/curriculum/pkg/adapters/memory"
	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/persistence/middleware"
	"github.com/aretw0/curriculum/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sampleState() *domain.TrainingState {
	s := domain.NewTrainingState("enc", []float64{0.25, -1.5, 3}, 80)
	s.RoundIndex = 2
	s.TimeUpper = 0.6
	s.LastLoss = 0.125
	s.History = []domain.RoundRecord{
		{Round: 1, TimeUpper: 0.3, Budget: 100, Iterations: 100, Loss: 0.5},
		{Round: 2, TimeUpper: 0.6, Budget: 90, Iterations: 12, Loss: 0.125},
	}
	return s
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(memory.NewStore())
	ports.RunCheckpointStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)

	original := sampleState()
	require.NoError(t, secure.Save(ctx, "enc", original))

	stored, err := underlying.Load(ctx, "enc")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Sealed)
	assert.Empty(t, stored.Parameters, "parameters must not be stored in the clear")
	assert.Empty(t, stored.History)
	assert.Equal(t, 2, stored.RoundIndex, "progress counters stay readable")
	assert.Equal(t, 0.6, stored.TimeUpper)
	assert.Equal(t, 80, stored.IterationBudget)

	loaded, err := secure.Load(ctx, "enc")
	require.NoError(t, err)
	assert.Equal(t, original.Parameters, loaded.Parameters)
	assert.Equal(t, original.History, loaded.History)
	assert.Equal(t, original.LastLoss, loaded.LastLoss)
	assert.Empty(t, loaded.Sealed)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, oldStore.Save(ctx, "rot", sampleState()))

	newStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := newStore.Load(ctx, "rot")
	require.NoError(t, err, "fallback key should open the old checkpoint")
	assert.Equal(t, []float64{0.25, -1.5, 3}, loaded.Parameters)

	// Re-saving seals with the new key; the old key alone can no longer read it.
	require.NoError(t, newStore.Save(ctx, "rot", loaded))
	_, err = oldStore.Load(ctx, "rot")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_PlainCheckpoint(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(ctx, "plain", sampleState()))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}

func TestDecodeKey(t *testing.T) {
	key := generateKey(t)
	decoded, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, decoded)

	_, err = middleware.DecodeKey("not base64!")
	assert.Error(t, err)

	_, err = middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}
