// Package solver also hosts the pipeline orchestrator and its four named
// configurations from spec.md §6: AutoroutingPipeline1_OriginalUnravel
// (legacy, unravel-based retry), AutoroutingPipelineSolver2_PortPointPathing
// (default, plain MST net ordering with dead-end-prune retry),
// AssignableAutoroutingPipeline and AssignableAutoroutingPipeline2 (both
// substitute off-board equivalents before pathing).
package solver

import (
	"fmt"
	"log/slog"

	"github.com/pcbroute/pcbroute/auxiliary"
	"github.com/pcbroute/pcbroute/netlist"
	"github.com/pcbroute/pcbroute/offboard"
)

// Variant selects among spec.md §6's named pipelines: whether net
// ordering expands off-board equivalence classes first, and whether a
// capacity-exhaustion retry unravels the contested section or prunes
// dead ends.
type Variant int

const (
	VariantOriginalUnravel Variant = iota
	VariantPortPointPathing
	VariantAssignable
	VariantAssignable2
)

// Pipeline composes the five-phase autorouting pipeline (setup, pathing,
// geometry, keepout, smoothing) and is itself a Solver, per spec.md
// §4.1's "pipelines ... forward steps to the active phase". Each call to
// Step advances exactly the current phase by one unit, and moves to the
// next phase once it reports Solved.
type Pipeline struct {
	board   *boardState
	variant Variant

	phases   []Solver
	phaseIdx int

	totalSteps int
	failure    *Failure
}

var _ Solver = (*Pipeline)(nil)

func newPipeline(srj *netlist.SimpleRouteJson, cfg RouterConfig, variant Variant, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	board := &boardState{srj: srj, cfg: cfg, logger: logger}

	return &Pipeline{
		board:   board,
		variant: variant,
		phases: []Solver{
			&setupPhase{board: board},
			newPathingPhase(board, variant),
			&geometryPhase{board: board},
			&keepoutPhase{board: board},
			&smoothPhase{board: board, opts: auxiliary.DefaultSmoothOptions()},
		},
	}
}

// AutoroutingPipeline1_OriginalUnravel is the legacy pipeline variant:
// plain MST net ordering, and a capacity-exhaustion retry that unravels
// the contested section (tsp.ThreeOpt local search) rather than pruning
// dead ends.
func AutoroutingPipeline1_OriginalUnravel(srj *netlist.SimpleRouteJson, cfg RouterConfig, logger *slog.Logger) *Pipeline {
	return newPipeline(srj, cfg, VariantOriginalUnravel, logger)
}

// AutoroutingPipelineSolver2_PortPointPathing is the default pipeline:
// plain MST net ordering, dead-end-prune retry, full port-point
// optimizer (spec.md §4.4).
func AutoroutingPipelineSolver2_PortPointPathing(srj *netlist.SimpleRouteJson, cfg RouterConfig, logger *slog.Logger) *Pipeline {
	return newPipeline(srj, cfg, VariantPortPointPathing, logger)
}

// AssignableAutoroutingPipeline substitutes off-board equivalents into
// every net before pathing (spec.md §4's assignable-via rewrite), with a
// dead-end-prune capacity retry.
func AssignableAutoroutingPipeline(srj *netlist.SimpleRouteJson, cfg RouterConfig, logger *slog.Logger) *Pipeline {
	return newPipeline(srj, cfg, VariantAssignable, logger)
}

// AssignableAutoroutingPipeline2 is AssignableAutoroutingPipeline with the
// legacy unravel-based capacity retry instead of dead-end pruning.
func AssignableAutoroutingPipeline2(srj *netlist.SimpleRouteJson, cfg RouterConfig, logger *slog.Logger) *Pipeline {
	return newPipeline(srj, cfg, VariantAssignable2, logger)
}

// Step advances the current phase by one unit, per spec.md §7's
// propagation rule: a phase failure bubbles straight up as the
// pipeline's own failure; MaxIterations bounds total Step calls across
// every phase combined.
func (pl *Pipeline) Step() error {
	if pl.Solved() || pl.Failed() {
		return nil
	}

	pl.totalSteps++
	if pl.board.cfg.MaxIterations > 0 && pl.totalSteps > pl.board.cfg.MaxIterations {
		pl.failure = &Failure{Kind: FailureIterationCap, Err: fmt.Errorf("exceeded %d iterations", pl.board.cfg.MaxIterations)}

		return pl.failure
	}

	cur := pl.phases[pl.phaseIdx]
	_ = cur.Step()

	if cur.Failed() {
		pl.failure = cur.FailureDetail()

		return pl.failure
	}
	if cur.Solved() {
		pl.phaseIdx++
	}

	return nil
}

func (pl *Pipeline) Solved() bool { return pl.phaseIdx >= len(pl.phases) && pl.failure == nil }
func (pl *Pipeline) Failed() bool { return pl.failure != nil }
func (pl *Pipeline) FailureDetail() *Failure { return pl.failure }
func (pl *Pipeline) Iterations() int { return pl.totalSteps }

func (pl *Pipeline) Visualize() GraphicsObject {
	if pl.phaseIdx < len(pl.phases) {
		return pl.phases[pl.phaseIdx].Visualize()
	}
	if len(pl.phases) > 0 {
		return pl.phases[len(pl.phases)-1].Visualize()
	}

	return GraphicsObject{Step: pl.totalSteps}
}

// Run steps the pipeline to completion — Solved or Failed — bounded by
// RouterConfig.MaxIterations.
func (pl *Pipeline) Run() error {
	for !pl.Solved() && !pl.Failed() {
		if err := pl.Step(); err != nil {
			return err
		}
	}

	return nil
}

// Traces returns the final stitched, keepout-swept, smoothed traces once
// the pipeline has finished.
func (pl *Pipeline) Traces() []netlist.SimplifiedPcbTrace { return pl.board.traces }

// FailedSolvers lists the connection names that could not be routed
// without failing the whole pipeline (spec.md §7 class 2).
func (pl *Pipeline) FailedSolvers() []string { return pl.board.failedSolvers }

// NewConnections lists the off-board substitutions the assignable
// variants made, for callers that want to render the rewritten netlist.
func (pl *Pipeline) NewConnections() []offboard.Pair { return pl.board.newConnections }
