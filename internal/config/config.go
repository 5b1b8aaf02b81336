// Package config loads run files.
//
// A run file is YAML (or JSON, chosen by extension) describing the problem,
// the checkpoint schedule, the iteration budget and where checkpoints and
// reports go. Fields missing from the file keep the values of Default.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/curriculum/pkg/pde"
	"github.com/aretw0/curriculum/pkg/persistence/middleware"
	"github.com/aretw0/curriculum/pkg/schedule"
	"github.com/aretw0/curriculum/pkg/solver/spectral"
)

// Store backends.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is a parsed run file.
type Config struct {
	RunID            string         `yaml:"run_id" json:"run_id"`
	Problem          string         `yaml:"problem" json:"problem"`
	Schedule         ScheduleConfig `yaml:"schedule" json:"schedule"`
	Budget           BudgetConfig   `yaml:"budget" json:"budget"`
	WarmupIterations int            `yaml:"warmup_iterations" json:"warmup_iterations"`
	Solver           map[string]any `yaml:"solver" json:"solver"`
	Report           ReportConfig   `yaml:"report" json:"report"`
	Store            StoreConfig    `yaml:"store" json:"store"`
}

// ScheduleConfig lists checkpoints explicitly or generates them from start and step.
type ScheduleConfig struct {
	Checkpoints []float64 `yaml:"checkpoints,omitempty" json:"checkpoints,omitempty"`
	Start       float64   `yaml:"start,omitempty" json:"start,omitempty"`
	Step        float64   `yaml:"step,omitempty" json:"step,omitempty"`
	IncludeMax  bool      `yaml:"include_max" json:"include_max"`
}

type BudgetConfig struct {
	Initial   int `yaml:"initial" json:"initial"`
	Decrement int `yaml:"decrement" json:"decrement"`
}

type ReportConfig struct {
	Dir    string `yaml:"dir" json:"dir"`
	Grid   int    `yaml:"grid" json:"grid"`
	Frames int    `yaml:"frames" json:"frames"`
}

// StoreConfig selects the checkpoint backend.
type StoreConfig struct {
	Type     string `yaml:"type" json:"type"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	Address  string `yaml:"address,omitempty" json:"address,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	TTL      string `yaml:"ttl,omitempty" json:"ttl,omitempty"`

	// EncryptionKey is a base64 AES-256 key. When set, checkpoints are sealed.
	EncryptionKey string `yaml:"encryption_key,omitempty" json:"encryption_key,omitempty"`

	// HistoryLimit caps the round records kept in a checkpoint. 0 keeps all.
	HistoryLimit int `yaml:"history_limit,omitempty" json:"history_limit,omitempty"`
}

// TTLDuration parses TTL. An empty TTL is zero (no expiry).
func (s StoreConfig) TTLDuration() (time.Duration, error) {
	if s.TTL == "" {
		return 0, nil
	}
	return time.ParseDuration(s.TTL)
}

// Default returns the configuration used when no run file is given:
// the 2D diffusion problem on checkpoints 0.1, 0.3, ..., 1.9, 2.0.
func Default() *Config {
	return &Config{
		RunID:   "default",
		Problem: "diffusion2d",
		Schedule: ScheduleConfig{
			Start:      0.1,
			Step:       0.2,
			IncludeMax: true,
		},
		Budget: BudgetConfig{
			Initial:   500,
			Decrement: 25,
		},
		Report: ReportConfig{
			Grid:   11,
			Frames: 3,
		},
		Store: StoreConfig{
			Type: StoreFile,
		},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	cfg := Default()
	// The generated range is a default only for files that list no checkpoints.
	defaults := cfg.Schedule
	cfg.Schedule.Start, cfg.Schedule.Step = 0, 0
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if len(cfg.Schedule.Checkpoints) == 0 {
		if cfg.Schedule.Start == 0 {
			cfg.Schedule.Start = defaults.Start
		}
		if cfg.Schedule.Step == 0 {
			cfg.Schedule.Step = defaults.Step
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(key, reason string, value any) {
		errs = append(errs, &ValidationError{Key: key, Reason: reason, Value: value})
	}

	if c.RunID == "" {
		add("run_id", "must not be empty", nil)
	} else if strings.ContainsAny(c.RunID, `/\`) {
		add("run_id", "must not contain path separators", c.RunID)
	}

	problem, err := pde.Lookup(c.Problem)
	if err != nil {
		add("problem", fmt.Sprintf("must be one of %s", strings.Join(pde.Names(), ", ")), c.Problem)
	} else if _, err := c.scheduleFor(problem); err != nil {
		add("schedule", err.Error(), nil)
	}

	if len(c.Schedule.Checkpoints) > 0 && (c.Schedule.Start != 0 || c.Schedule.Step != 0) {
		add("schedule", "set either checkpoints or start/step, not both", nil)
	}
	if c.Budget.Initial < 1 {
		add("budget.initial", "must be at least 1", c.Budget.Initial)
	}
	if c.Budget.Decrement < 0 {
		add("budget.decrement", "must not be negative", c.Budget.Decrement)
	}
	if c.WarmupIterations < 0 {
		add("warmup_iterations", "must not be negative", c.WarmupIterations)
	}
	if _, err := spectral.DecodeOptions(c.Solver); err != nil {
		add("solver", err.Error(), nil)
	}
	if c.Report.Grid < 2 {
		add("report.grid", "must be at least 2", c.Report.Grid)
	}
	if c.Report.Frames < 1 {
		add("report.frames", "must be at least 1", c.Report.Frames)
	}

	switch c.Store.Type {
	case StoreNone, StoreMemory, StoreFile:
	case StoreRedis:
		if c.Store.Address == "" {
			add("store.address", "is required for redis", nil)
		}
	default:
		add("store.type", "must be none, memory, file or redis", c.Store.Type)
	}
	if _, err := c.Store.TTLDuration(); err != nil {
		add("store.ttl", "must be a duration such as 24h", c.Store.TTL)
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.DecodeKey(c.Store.EncryptionKey); err != nil {
			add("store.encryption_key", err.Error(), nil)
		}
	}
	if c.Store.HistoryLimit < 0 {
		add("store.history_limit", "must not be negative", c.Store.HistoryLimit)
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// ProblemDef resolves the problem name.
func (c *Config) ProblemDef() (pde.Problem, error) {
	return pde.Lookup(c.Problem)
}

// BuildSchedule resolves the checkpoints and budget against the problem horizon.
func (c *Config) BuildSchedule() (schedule.Schedule, error) {
	problem, err := c.ProblemDef()
	if err != nil {
		return schedule.Schedule{}, err
	}
	return c.scheduleFor(problem)
}

func (c *Config) scheduleFor(problem pde.Problem) (schedule.Schedule, error) {
	checkpoints := c.Schedule.Checkpoints
	if len(checkpoints) == 0 {
		if c.Schedule.Step == 0 {
			return schedule.Schedule{}, errors.New("needs checkpoints or a positive step")
		}
		var err error
		checkpoints, err = schedule.Range(c.Schedule.Start, c.Schedule.Step, problem.TimeMax, c.Schedule.IncludeMax)
		if err != nil {
			return schedule.Schedule{}, err
		}
	}

	s := schedule.Schedule{
		Checkpoints:     append([]float64(nil), checkpoints...),
		TimeMax:         problem.TimeMax,
		InitialBudget:   c.Budget.Initial,
		BudgetDecrement: c.Budget.Decrement,
	}
	if err := schedule.ValidateCheckpoints(s.Checkpoints, s.TimeMax); err != nil {
		return schedule.Schedule{}, err
	}
	return s, nil
}

// SolverOptions decodes the free-form solver section.
func (c *Config) SolverOptions() (spectral.Options, error) {
	return spectral.DecodeOptions(c.Solver)
}
