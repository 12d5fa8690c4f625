package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pcbroute/pcbroute/netlist"
	"github.com/pcbroute/pcbroute/offboard"
	"github.com/pcbroute/pcbroute/solver"
	"github.com/spf13/cobra"
)

var routeOutPath string

var routeCmd = &cobra.Command{
	Use:   "route <board.json>",
	Short: "Run a pipeline to completion and write the resulting traces",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeOutPath, "out", "", "write result JSON here instead of stdout")
}

// routeResult is the CLI's own output envelope: the traces a caller wants
// plus enough of the run's outcome to tell a clean miss from a fatal one
// without re-deriving it from exit status alone.
type routeResult struct {
	RunID          string                       `json:"runId"`
	Solved         bool                         `json:"solved"`
	Failed         bool                         `json:"failed"`
	FailureKind    string                       `json:"failureKind,omitempty"`
	FailureError   string                       `json:"failureError,omitempty"`
	Traces         []netlist.SimplifiedPcbTrace `json:"traces"`
	FailedSolvers  []string                     `json:"failedSolvers,omitempty"`
	NewConnections []offboard.Pair              `json:"newConnections,omitempty"`
}

func runRoute(cmd *cobra.Command, args []string) error {
	srj, err := loadSRJ(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	pl, err := buildPipeline(srj, cfg, logger)
	if err != nil {
		return err
	}

	runErr := pl.Run()

	result := routeResult{
		RunID:          uuid.NewString(),
		Solved:         pl.Solved(),
		Failed:         pl.Failed(),
		Traces:         pl.Traces(),
		FailedSolvers:  pl.FailedSolvers(),
		NewConnections: pl.NewConnections(),
	}
	if f := pl.FailureDetail(); f != nil {
		result.FailureKind = f.Kind.String()
		result.FailureError = f.Error()
	}

	out := os.Stdout
	if routeOutPath != "" {
		f, err := os.Create(routeOutPath)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	// A pipeline-fatal failure is still a clean run of the tool itself —
	// its outcome is in the JSON above — except when Run itself returned
	// something unexpected beyond the tagged Failure it already recorded.
	if runErr != nil && pl.FailureDetail() == nil {
		return runErr
	}
	if pl.Failed() {
		os.Exit(1)
	}

	return nil
}
