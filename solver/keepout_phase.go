package solver

import (
	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/keepout"
)

// keepoutPhase implements spec.md §4.6's keepout enforcement and
// trace-width assignment: a single Step sweeps every obstacle against
// every stitched trace, nudging violations clear, then assigns final
// widths. Both operate over the whole board's trace set at once (a
// nudge on one trace can change what counts as a violation for its
// neighbor), so there is no meaningful per-trace step here either.
type keepoutPhase struct {
	board   *boardState
	done    bool
	failure *Failure
}

var _ Solver = (*keepoutPhase)(nil)

func (p *keepoutPhase) obstacleRects() []geom.Rect {
	rects := make([]geom.Rect, 0, len(p.board.srj.Obstacles))
	for _, o := range p.board.srj.Obstacles {
		rects = append(rects, geom.Rect{
			Center: geom.Point{X: o.Center.X, Y: o.Center.Y},
			Width:  o.Width,
			Height: o.Height,
		})
	}

	return rects
}

func (p *keepoutPhase) Step() error {
	if p.done {
		return nil
	}
	p.done = true

	obstacles := p.obstacleRects()
	opts := keepout.DefaultOptions(p.board.srj.MinTraceWidth, p.board.srj.DefaultObstacleMargin)

	swept, err := keepout.Sweep(p.board.traces, obstacles, opts)
	if err != nil {
		// A jumper-invariant violation is a hard invariant-violation
		// failure (spec.md §7 class 5); anything else here is also
		// treated as fatal since keepout runs once, globally, with no
		// retry path the pipeline can take.
		p.failure = &Failure{Kind: FailureInvariantViolation, Err: err}

		return p.failure
	}

	p.board.traces = keepout.AssignWidths(swept, obstacles, p.board.srj.MinTraceWidth, p.board.srj.EffectiveNominalTraceWidth())

	return nil
}

func (p *keepoutPhase) Solved() bool        { return p.done && p.failure == nil }
func (p *keepoutPhase) Failed() bool        { return p.failure != nil }
func (p *keepoutPhase) FailureDetail() *Failure { return p.failure }

func (p *keepoutPhase) Iterations() int {
	if p.done {
		return 1
	}

	return 0
}

func (p *keepoutPhase) Visualize() GraphicsObject {
	g := GraphicsObject{Step: p.Iterations()}
	for _, r := range p.obstacleRects() {
		g.Rects = append(g.Rects, r)
	}

	return g
}
