package ports

import (
	"context"
	"errors"
	"time"
)

// ErrLockLost is returned by Extend when the caller no longer owns the lock,
// either because it expired or because another owner took it over.
var ErrLockLost = errors.New("distributed lock lost")

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for distributed concurrency control.
// It lets the run manager guarantee that a single process owns a run's state.
type DistributedLocker interface {
	// Lock attempts to acquire a distributed lock for the given key (e.g., run ID).
	// It blocks until the lock is acquired or the context is canceled.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)

	// Extend resets the expiry of a lock this locker holds for key to ttl.
	// It returns ErrLockLost when the lock is no longer ours.
	Extend(ctx context.Context, key string, ttl time.Duration) error
}
