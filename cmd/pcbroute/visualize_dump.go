package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var visualizeDumpCmd = &cobra.Command{
	Use:   "visualize-dump <board.json>",
	Short: "Step a pipeline one unit at a time, writing a GraphicsObject per step",
	Long: `visualize-dump runs the same pipeline "route" would, but calls Step
individually and writes each step's GraphicsObject as its own JSON line —
a time-lapse of the board per spec.md's visualize() contract, suitable for
a frame-by-frame viewer.`,
	Args: cobra.ExactArgs(1),
	RunE: runVisualizeDump,
}

func runVisualizeDump(cmd *cobra.Command, args []string) error {
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

	enc := json.NewEncoder(os.Stdout)
	for !pl.Solved() && !pl.Failed() {
		_ = pl.Step()
		if err := enc.Encode(pl.Visualize()); err != nil {
			return err
		}
	}

	if pl.Failed() {
		os.Exit(1)
	}

	return nil
}
