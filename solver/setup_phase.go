package solver

import (
	"fmt"

	"github.com/pcbroute/pcbroute/connectivity"
	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/mesh"
	"github.com/pcbroute/pcbroute/meshgraph"
)

// setupPhase builds the capacity mesh, its core.Graph view, and the
// connectivity map. Per spec.md §5 these are produced once and read
// thereafter, so there is no finer step granularity worth exposing — one
// Step does the whole phase.
type setupPhase struct {
	board   *boardState
	done    bool
	failure *Failure
}

var _ Solver = (*setupPhase)(nil)

func (p *setupPhase) Step() error {
	if p.done {
		return nil
	}
	p.done = true

	if err := p.board.srj.Validate(); err != nil {
		p.failure = &Failure{Kind: FailureInvalidInput, Err: err}

		return p.failure
	}

	layers, err := geom.NewLayers(p.board.srj.LayerCount)
	if err != nil {
		p.failure = &Failure{Kind: FailureInvalidInput, Err: err}

		return p.failure
	}
	p.board.layers = layers

	m, err := mesh.Build(p.board.srj, layers, mesh.DefaultOptions(p.board.srj))
	if err != nil {
		p.failure = &Failure{Kind: FailureInvalidInput, Err: fmt.Errorf("mesh build: %w", err)}

		return p.failure
	}

	obstacleOffBoard := make(map[string][]string, len(p.board.srj.Obstacles))
	for _, o := range p.board.srj.Obstacles {
		if len(o.OffBoardConnectsTo) > 0 {
			obstacleOffBoard[o.ObstacleID] = o.OffBoardConnectsTo
		}
	}
	m.ApplyOffboardEdges(m.OffboardNetsByObstacle(obstacleOffBoard))
	p.board.mesh = m

	g, err := meshgraph.ToCoreGraph(m)
	if err != nil {
		p.failure = &Failure{Kind: FailureInvalidInput, Err: fmt.Errorf("mesh graph: %w", err)}

		return p.failure
	}
	p.board.graph = g

	cmap, err := connectivity.Build(p.board.srj, layers)
	if err != nil {
		p.failure = &Failure{Kind: FailureInvalidInput, Err: fmt.Errorf("connectivity: %w", err)}

		return p.failure
	}
	p.board.connectivity = cmap

	p.board.logger.Debug("setup complete", "nodes", len(m.Nodes), "edges", len(m.Edges))

	return nil
}

func (p *setupPhase) Solved() bool       { return p.done && p.failure == nil }
func (p *setupPhase) Failed() bool       { return p.failure != nil }
func (p *setupPhase) FailureDetail() *Failure { return p.failure }

func (p *setupPhase) Iterations() int {
	if p.done {
		return 1
	}

	return 0
}

func (p *setupPhase) Visualize() GraphicsObject {
	g := GraphicsObject{Step: p.Iterations()}
	if p.board.mesh != nil {
		for _, n := range p.board.mesh.Nodes {
			g.Rects = append(g.Rects, n.Rect)
		}
	}

	return g
}
