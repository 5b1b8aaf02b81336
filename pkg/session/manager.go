package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/curriculum/internal/logging"
	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed owner can keep a run locked.
const DefaultLockTTL = 30 * time.Second

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager guards run checkpoints against concurrent writers.
// Unused per-run mutexes are dropped by reference counting.
type Manager struct {
	store ports.CheckpointStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over store.
func NewManager(store ports.CheckpointStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) acquire(runID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[runID]
	if !ok {
		entry = &lockEntry{}
		m.locks[runID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[runID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runID)
	}
}

// Load returns the saved state of a run.
func (m *Manager) Load(ctx context.Context, runID string) (*domain.TrainingState, error) {
	var state *domain.TrainingState
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, runID)
		return err
	})
	return state, err
}

// Peek reads the saved state of a run without taking any lock. It is meant
// for read-only callers that must not wait for a run in progress; the state
// may be one round behind the run's owner.
func (m *Manager) Peek(ctx context.Context, runID string) (*domain.TrainingState, error) {
	return m.store.Load(ctx, runID)
}

// LoadOrInit returns the saved state of a run, or saves and returns a fresh one
// built from params and budget when none exists.
func (m *Manager) LoadOrInit(ctx context.Context, runID string, params []float64, budget int) (*domain.TrainingState, error) {
	var state *domain.TrainingState
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, runID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrRunNotFound) {
			return fmt.Errorf("failed to check run existence: %w", err)
		}

		state = domain.NewTrainingState(runID, params, budget)
		if err := m.store.Save(ctx, runID, state); err != nil {
			return fmt.Errorf("failed to initialize run: %w", err)
		}
		return nil
	})
	return state, err
}

// Save persists state under runID.
func (m *Manager) Save(ctx context.Context, runID string, state *domain.TrainingState) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Save(ctx, runID, state)
	})
}

// Delete removes a run's checkpoint.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Delete(ctx, runID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying checkpoint store.
func (m *Manager) Store() ports.CheckpointStore {
	return m.store
}

// WithLock runs fn while holding the run's lock. fn must not call back into
// the Manager for the same run ID.
//
// A distributed lock is extended every third of its TTL for as long as fn
// runs. If it is lost, fn's context is cancelled and WithLock returns an
// error wrapping ports.ErrLockLost.
func (m *Manager) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := m.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runID)
	}()

	if m.locker == nil {
		return fn(ctx)
	}

	unlock, err := m.locker.Lock(ctx, runID, m.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire distributed lock: %w", err)
	}
	defer func() {
		// The caller's ctx may already be cancelled; unlock must still reach the backend.
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			m.logger.Warn("failed to release distributed lock, it will expire via TTL",
				"run_id", runID,
				"err", err,
			)
		}
	}()

	fnCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		m.keepAlive(fnCtx, runID, done, cancel)
	}()
	defer func() {
		close(done)
		<-stopped
	}()

	err = fn(fnCtx)
	if cause := context.Cause(fnCtx); errors.Is(cause, ports.ErrLockLost) {
		return cause
	}
	return err
}

// keepAlive extends the distributed lock every renewInterval until done is
// closed. Losing the lock cancels the work running under it.
func (m *Manager) keepAlive(ctx context.Context, runID string, done <-chan struct{}, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(m.renewInterval())
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := m.locker.Extend(ctx, runID, m.lockTTL)
		switch {
		case err == nil:
		case errors.Is(err, ports.ErrLockLost):
			m.logger.Error("distributed lock lost, stopping", "run_id", runID, "err", err)
			cancel(err)
			return
		default:
			// Transient backend errors are retried on the next tick while the lease lasts.
			m.logger.Warn("failed to extend distributed lock", "run_id", runID, "err", err)
		}
	}
}

func (m *Manager) renewInterval() time.Duration {
	if d := m.lockTTL / 3; d > 0 {
		return d
	}
	return time.Millisecond
}
