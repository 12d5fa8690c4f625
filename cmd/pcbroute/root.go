package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/pcbroute/pcbroute/netlist"
	"github.com/pcbroute/pcbroute/solver"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configPath  string
	pipelineArg string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "pcbroute",
	Short: "Autorouting pipelines over a SimpleRouteJson board",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "RouterConfig YAML file (defaults to solver.DefaultRouterConfig())")
	rootCmd.PersistentFlags().StringVar(&pipelineArg, "pipeline", "port-point", "pipeline variant: unravel | port-point | assignable | assignable-unravel")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug | info | warn | error")

	rootCmd.AddCommand(routeCmd, validateCmd, visualizeDumpCmd)
}

// newLogger builds the *slog.Logger every pipeline constructor accepts,
// per spec.md §4.8's logging discipline.
func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads --config if set, falling back to
// solver.DefaultRouterConfig(), and validates the result either way.
func loadConfig() (solver.RouterConfig, error) {
	cfg := solver.DefaultRouterConfig()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadSRJ reads and JSON-decodes a SimpleRouteJson board file. Structural
// validation happens inside the pipeline's own setup phase, not here, so a
// malformed board still surfaces as a FailureInvalidInput rather than a
// bare decode error.
func loadSRJ(path string) (*netlist.SimpleRouteJson, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board: %w", err)
	}
	var srj netlist.SimpleRouteJson
	if err := json.Unmarshal(data, &srj); err != nil {
		return nil, fmt.Errorf("parse board: %w", err)
	}

	return &srj, nil
}

// buildPipeline selects one of the four named pipeline constructors by
// the --pipeline flag's value.
func buildPipeline(srj *netlist.SimpleRouteJson, cfg solver.RouterConfig, logger *slog.Logger) (*solver.Pipeline, error) {
	switch pipelineArg {
	case "unravel":
		return solver.AutoroutingPipeline1_OriginalUnravel(srj, cfg, logger), nil
	case "port-point":
		return solver.AutoroutingPipelineSolver2_PortPointPathing(srj, cfg, logger), nil
	case "assignable":
		return solver.AssignableAutoroutingPipeline(srj, cfg, logger), nil
	case "assignable-unravel":
		return solver.AssignableAutoroutingPipeline2(srj, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown pipeline %q", pipelineArg)
	}
}
