package spectral

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Options tunes the collocation solver.
type Options struct {
	// Degree is the highest Legendre order on every axis.
	Degree int `mapstructure:"degree" yaml:"degree"`

	// Points is the number of interior collocation points per axis.
	Points int `mapstructure:"points" yaml:"points"`

	// BoundaryPoints is the number of points per free axis on each boundary face.
	BoundaryPoints int `mapstructure:"boundary_points" yaml:"boundary_points"`

	// LearningRate scales the step 1/L, where L bounds the gradient's Lipschitz constant.
	LearningRate float64 `mapstructure:"learning_rate" yaml:"learning_rate"`

	// Tolerance stops a round early once the loss falls to or below it.
	Tolerance float64 `mapstructure:"tolerance" yaml:"tolerance"`

	BoundaryWeight float64 `mapstructure:"boundary_weight" yaml:"boundary_weight"`
}

// DefaultOptions returns the settings used when a run file leaves the solver section empty.
func DefaultOptions() Options {
	return Options{
		Degree:         4,
		Points:         8,
		BoundaryPoints: 8,
		LearningRate:   0.9,
		Tolerance:      1e-10,
		BoundaryWeight: 1,
	}
}

// Validate checks that every option is usable.
func (o Options) Validate() error {
	switch {
	case o.Degree < 1:
		return fmt.Errorf("degree must be at least 1, got %d", o.Degree)
	case o.Points < 1:
		return fmt.Errorf("points must be at least 1, got %d", o.Points)
	case o.BoundaryPoints < 2:
		return fmt.Errorf("boundary_points must be at least 2, got %d", o.BoundaryPoints)
	case !(o.LearningRate > 0):
		return fmt.Errorf("learning_rate must be positive, got %g", o.LearningRate)
	case o.Tolerance < 0:
		return fmt.Errorf("tolerance must not be negative, got %g", o.Tolerance)
	case !(o.BoundaryWeight > 0):
		return fmt.Errorf("boundary_weight must be positive, got %g", o.BoundaryWeight)
	}
	return nil
}

// DecodeOptions overlays a loosely typed map (as read from YAML or JSON) onto
// DefaultOptions. Unknown keys are rejected.
func DecodeOptions(raw map[string]any) (Options, error) {
	opts := DefaultOptions()
	if len(raw) == 0 {
		return opts, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(raw); err != nil {
		return opts, fmt.Errorf("invalid solver options: %w", err)
	}
	return opts, opts.Validate()
}
