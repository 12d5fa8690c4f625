package solver

import "github.com/go-playground/validator/v10"

var configValidator = validator.New()

// RouterConfig tunes one pipeline run, loaded from YAML by cmd/pcbroute
// and validated the same way netlist.SimpleRouteJson validates its own
// struct tags.
type RouterConfig struct {
	// RetryBudget is how many times a failed net's pathing attempt is
	// retried (dead-end pruning or unraveling) before the whole pipeline
	// fails with capacity exhaustion, per spec.md §7's "retry runs ONCE".
	RetryBudget int `yaml:"retryBudget" validate:"gte=0"`
	// MaxIterations bounds the total number of Pipeline.Step calls a Run
	// will make before failing with FailureIterationCap.
	MaxIterations int `yaml:"maxIterations" validate:"gt=0"`
	// ShuffleSeed feeds portpoint's optimizer restarts, kept explicit so
	// a run is reproducible.
	ShuffleSeed uint64 `yaml:"shuffleSeed"`
	// HighDensityResolution is the grid resolution IntraNodeRoute solves
	// shared cells at.
	HighDensityResolution int `yaml:"highDensityResolution" validate:"gte=4"`
	// MinAllowedBoardScore floors the port-point optimizer's acceptance
	// threshold for a face packing.
	MinAllowedBoardScore float64 `yaml:"minAllowedBoardScore"`
}

// DefaultRouterConfig returns the configuration cmd/pcbroute falls back to
// when no YAML file overrides a field.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RetryBudget:           1,
		MaxIterations:         10000,
		ShuffleSeed:           1,
		HighDensityResolution: 24,
		MinAllowedBoardScore:  -1e9,
	}
}

// Validate checks RouterConfig's struct tags.
func (c RouterConfig) Validate() error {
	return configValidator.Struct(c)
}
