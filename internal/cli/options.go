package cli

import (
	"fmt"
	"os"

	"github.com/aretw0/curriculum/internal/config"
)

// StoreKeyEnv overrides store.encryption_key so keys stay out of run files.
const StoreKeyEnv = "CURRICULUM_STORE_KEY"

// Options are the flags shared by every command.
type Options struct {
	ConfigPath string
	RunID      string
	Store      string
	StorePath  string
	RedisAddr  string
	Debug      bool
	LogFormat  string
}

// LoadConfig reads the run file (or the defaults) and applies flag overrides.
func LoadConfig(opts Options) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.RunID != "" {
		cfg.RunID = opts.RunID
	}
	if opts.RedisAddr != "" {
		cfg.Store.Type = config.StoreRedis
		cfg.Store.Address = opts.RedisAddr
	}
	if opts.Store != "" {
		cfg.Store.Type = opts.Store
	}
	if opts.StorePath != "" {
		cfg.Store.Path = opts.StorePath
	}
	if key := os.Getenv(StoreKeyEnv); key != "" {
		cfg.Store.EncryptionKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
