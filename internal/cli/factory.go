package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/curriculum"
	"github.com/aretw0/curriculum/internal/adapters/file"
	"github.com/aretw0/curriculum/internal/config"
	"github.com/aretw0/curriculum/pkg/adapters/memory"
	"github.com/aretw0/curriculum/pkg/adapters/redis"
	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/pde"
	"github.com/aretw0/curriculum/pkg/persistence/middleware"
	"github.com/aretw0/curriculum/pkg/ports"
	"github.com/aretw0/curriculum/pkg/solver/spectral"
)

// Persistence bundles the configured checkpoint backend.
type Persistence struct {
	Store  ports.CheckpointStore
	Locker ports.DistributedLocker
	Close  func() error
}

// OpenStore builds the checkpoint store described by cfg. The "none" backend
// returns a nil Store.
func OpenStore(cfg config.StoreConfig) (*Persistence, error) {
	p := &Persistence{Close: func() error { return nil }}

	switch cfg.Type {
	case config.StoreNone, "":
	case config.StoreMemory:
		p.Store = memory.NewStore()
	case config.StoreFile:
		p.Store = file.New(cfg.Path)
	case config.StoreRedis:
		ttl, err := cfg.TTLDuration()
		if err != nil {
			return nil, fmt.Errorf("invalid store ttl: %w", err)
		}
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		store := redis.New(cfg.Address, cfg.Password, cfg.DB, redis.WithPrefix(prefix), redis.WithTTL(ttl))
		p.Store = store
		p.Locker = redis.NewLocker(store.Client(), prefix)
		p.Close = store.Close
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}

	if p.Store == nil {
		return p, nil
	}
	var mws []middleware.Middleware
	if cfg.HistoryLimit > 0 {
		mws = append(mws, middleware.NewHistoryLimitMiddleware(cfg.HistoryLimit))
	}
	if cfg.EncryptionKey != "" {
		key, err := middleware.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid store encryption key: %w", err)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	p.Store = middleware.Chain(p.Store, mws...)
	return p, nil
}

// newSolver builds the reference solver for problem from the run file's solver section.
func newSolver(cfg *config.Config, problem pde.Problem) (*spectral.Solver, error) {
	opts, err := cfg.SolverOptions()
	if err != nil {
		return nil, err
	}
	return spectral.New(problem, opts)
}

// newTrainer wires the facade with the CLI conventions: logger always, debug
// hooks only with --debug.
func newTrainer(cfg *config.Config, solver ports.Solver, p *Persistence, hooks domain.LifecycleHooks, logger *slog.Logger) (*curriculum.Trainer, error) {
	opts := []curriculum.Option{
		curriculum.WithLogger(logger),
		curriculum.WithLifecycleHooks(hooks),
		curriculum.WithWarmup(cfg.WarmupIterations),
	}
	if p.Store != nil {
		opts = append(opts, curriculum.WithStore(p.Store))
	}
	if p.Locker != nil {
		opts = append(opts, curriculum.WithLocker(p.Locker))
	}
	trainer, err := curriculum.New(solver, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing trainer: %w", err)
	}
	return trainer, nil
}
