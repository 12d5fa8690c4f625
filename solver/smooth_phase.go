package solver

import (
	"github.com/pcbroute/pcbroute/auxiliary"
	"github.com/pcbroute/pcbroute/geom"
)

// smoothPhase implements spec.md §4.7's post-stitch polyline smoothing:
// one trace per Step, since each trace's SegmentOptimizer run is
// independent of every other trace's.
type smoothPhase struct {
	board *boardState
	opts  auxiliary.SmoothOptions
	idx   int
}

var _ Solver = (*smoothPhase)(nil)

func (p *smoothPhase) Step() error {
	if p.idx >= len(p.board.traces) {
		return nil
	}

	p.board.traces[p.idx] = auxiliary.SegmentOptimizer(p.board.traces[p.idx], p.opts)
	p.idx++

	return nil
}

func (p *smoothPhase) Solved() bool           { return p.idx >= len(p.board.traces) }
func (p *smoothPhase) Failed() bool           { return false }
func (p *smoothPhase) FailureDetail() *Failure { return nil }
func (p *smoothPhase) Iterations() int         { return p.idx }

func (p *smoothPhase) Visualize() GraphicsObject {
	g := GraphicsObject{Step: p.idx}
	for _, tr := range p.board.traces {
		for _, seg := range tr.Route {
			if seg.Wire != nil {
				g.Points = append(g.Points, geom.Point{X: seg.Wire.X, Y: seg.Wire.Y})
			}
		}
	}

	return g
}
