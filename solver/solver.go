// Package solver implements the generic iterative-solver harness and
// pipeline orchestrator from spec.md §4.1/§10: every phase of the
// autorouting pipeline is a Solver — it advances one discrete step at a
// time, reports solved/failed, and exposes a pure visualize() snapshot —
// composed by a Pipeline that forwards steps to the active phase and
// bubbles failure per spec.md §7's propagation rules.
package solver

import (
	"fmt"

	"github.com/pcbroute/pcbroute/geom"
)

// FailureKind classifies why a solver failed, mapping onto spec.md §7's
// five-way error taxonomy.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureInvalidInput
	FailureUnsolvableSubproblem
	FailureCapacityExhaustion
	FailureIterationCap
	FailureInvariantViolation
)

func (k FailureKind) String() string {
	switch k {
	case FailureInvalidInput:
		return "invalid_input"
	case FailureUnsolvableSubproblem:
		return "unsolvable_subproblem"
	case FailureCapacityExhaustion:
		return "capacity_exhaustion"
	case FailureIterationCap:
		return "iteration_cap"
	case FailureInvariantViolation:
		return "invariant_violation"
	default:
		return "none"
	}
}

// Failure is a solver's terminal error, tagged with its taxonomy kind so
// a parent pipeline can decide whether to retry, downgrade, or escalate
// (spec.md §7's propagation rule).
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}

	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Circle is a visualize() primitive not covered by geom's rect/segment
// types (via pads render as circles).
type Circle struct {
	Center geom.Point
	Radius float64
}

// GraphicsObject is a pure snapshot of a solver's current state, tagged
// with the step index it was taken at, per spec.md §4.1's
// "visualize() → GraphicsObject: a pure function of current state ...
// for time-lapse". Solvers populate only the fields relevant to their
// phase.
type GraphicsObject struct {
	Step    int
	Lines   []geom.Segment
	Points  []geom.Point
	Rects   []geom.Rect
	Circles []Circle
}

// Solver is the tagged-interface every phase and sub-solver implements,
// per spec.md §9's REDESIGN FLAG replacing runtime polymorphism with a
// shared trait: { step, solved, failed, visualize }.
type Solver interface {
	// Step advances at most one unit of progress. Calling Step after
	// Solved or Failed is a no-op.
	Step() error
	Solved() bool
	Failed() bool
	// FailureDetail returns the terminal Failure, or nil if not failed.
	FailureDetail() *Failure
	Iterations() int
	Visualize() GraphicsObject
}
