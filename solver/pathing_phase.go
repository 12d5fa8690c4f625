package solver

import (
	"fmt"

	"github.com/pcbroute/pcbroute/auxiliary"
	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/mesh"
	"github.com/pcbroute/pcbroute/meshgraph"
	"github.com/pcbroute/pcbroute/netlist"
	"github.com/pcbroute/pcbroute/offboard"
	"github.com/pcbroute/pcbroute/pathing"
)

// pointRef is one endpoint of a pair pathing must connect, carrying
// enough of the original PointToConnect to resolve a mesh node.
type pointRef struct {
	point  geom.Point
	layers []string
}

// pathingPhase steps net by net: CapacityPathingSolver (spec.md §4.3) for
// every connection, ordering multi-point nets via a minimum spanning tree
// and — for the assignable-via variants — substituting off-board
// equivalents in first (spec.md §4's off-board optimality).
type pathingPhase struct {
	board   *boardState
	variant Variant

	nets []netlist.Connection
	idx  int

	solved, failed bool
	failure        *Failure
}

var _ Solver = (*pathingPhase)(nil)

func newPathingPhase(board *boardState, variant Variant) *pathingPhase {
	p := &pathingPhase{board: board, variant: variant}
	for _, c := range board.srj.Connections {
		if c.IsOffBoard || len(c.PointsToConnect) < 2 {
			continue
		}
		p.nets = append(p.nets, c)
	}

	return p
}

func (p *pathingPhase) usesOffboardSubstitution() bool {
	return p.variant == VariantAssignable || p.variant == VariantAssignable2
}

// Step routes one net's full set of MST pairs per call: spec.md §4.1
// leaves the unit of "one step" to the solver, and a net's pairs are
// committed together so a mid-net partial failure cannot leave the mesh
// with only some of a net's pairs assigned.
func (p *pathingPhase) Step() error {
	if p.solved || p.failed {
		return nil
	}
	if p.idx >= len(p.nets) {
		p.solved = true

		return nil
	}

	conn := p.nets[p.idx]
	p.idx++

	pairs, err := p.netPairs(conn)
	if err != nil {
		// Bad net geometry (an endpoint resolves to no mesh node, or the
		// MST builder rejects the input) is this net's own problem, not
		// the whole board's — mark it unrouted and move on.
		p.board.failedSolvers = append(p.board.failedSolvers, conn.Name)
		p.board.logger.Warn("net unsolvable", "connection", conn.Name, "error", err)

		return nil
	}

	for _, pr := range pairs {
		if err := p.routePair(conn.Name, pr); err != nil {
			p.failed = true
			p.failure = &Failure{Kind: FailureCapacityExhaustion, Err: fmt.Errorf("connection %q: %w", conn.Name, err)}

			return p.failure
		}
	}

	return nil
}

// netPairs resolves conn into the ordered list of point pairs pathing
// must connect, expanding off-board equivalence classes first when the
// pipeline variant calls for it.
func (p *pathingPhase) netPairs(conn netlist.Connection) ([][2]pointRef, error) {
	if p.usesOffboardSubstitution() {
		pairs, err := offboard.SubstituteNet(p.board.srj, conn.Name)
		if err != nil {
			return nil, err
		}

		out := make([][2]pointRef, 0, len(pairs))
		for _, pr := range pairs {
			out = append(out, [2]pointRef{
				{point: pr.A.Point, layers: p.board.pointLayers(pr.A.ConnectionName, pr.A.Index)},
				{point: pr.B.Point, layers: p.board.pointLayers(pr.B.ConnectionName, pr.B.Index)},
			})
		}
		p.board.newConnections = append(p.board.newConnections, pairs...)

		return out, nil
	}

	refs := make([]pointRef, len(conn.PointsToConnect))
	nodeIDs := make([]mesh.NodeID, len(conn.PointsToConnect))
	for i, pt := range conn.PointsToConnect {
		refs[i] = pointRef{point: geom.Point{X: pt.X, Y: pt.Y}, layers: pt.LayerNames()}
		id, ok := p.board.nodeAt(refs[i].point, refs[i].layers)
		if !ok {
			return nil, fmt.Errorf("point %d resolves to no mesh node", i)
		}
		nodeIDs[i] = id
	}

	if len(refs) == 2 {
		return [][2]pointRef{{refs[0], refs[1]}}, nil
	}

	order, err := pathing.OrderNetPoints(p.board.mesh, nodeIDs)
	if err != nil {
		return nil, err
	}

	out := make([][2]pointRef, 0, len(order))
	for _, e := range order {
		out = append(out, [2]pointRef{refs[e[0]], refs[e[1]]})
	}

	return out, nil
}

// routePair finds, and on capacity failure retries once (dead-end pruning
// or contested-section unraveling, per variant) before committing one
// endpoint pair's path, per spec.md §7's class-3 error handling.
func (p *pathingPhase) routePair(connName string, pr [2]pointRef) error {
	a, ok := p.board.nodeAt(pr[0].point, pr[0].layers)
	if !ok {
		return fmt.Errorf("source point resolves to no mesh node")
	}
	b, ok := p.board.nodeAt(pr[1].point, pr[1].layers)
	if !ok {
		return fmt.Errorf("target point resolves to no mesh node")
	}
	if a == b {
		p.board.routes = append(p.board.routes, netRoute{
			connectionName: connName, path: []mesh.NodeID{a},
			source: pr[0].point, goal: pr[1].point,
			sourceLayers: pr[0].layers, goalLayers: pr[1].layers,
		})

		return nil
	}

	path, _, err := pathing.FindPath(p.board.mesh, p.board.graph, a, b, nil)
	if err != nil && p.board.cfg.RetryBudget > 0 {
		required := p.board.requiredNodeIDs()
		required = append(required, a, b)

		if _, pruneErr := auxiliary.PruneDeadEnds(p.board.mesh, required); pruneErr == nil {
			if g2, gerr := meshgraph.ToCoreGraph(p.board.mesh); gerr == nil {
				p.board.graph = g2
				path, _, err = pathing.FindPath(p.board.mesh, p.board.graph, a, b, nil)
			}
		}
	}
	if err != nil {
		return err
	}

	if p.variant == VariantOriginalUnravel && len(path) >= 4 {
		path, _ = auxiliary.UnravelSection(p.board.mesh, path)
	}

	pathing.CommitPath(p.board.mesh, path)
	if g2, gerr := meshgraph.ToCoreGraph(p.board.mesh); gerr == nil {
		// Rebuild so subsequent nets see fresh capacity-penalty weights;
		// hard capacity blocking already works off live Remaining() calls
		// regardless, per meshgraph's staleness note.
		p.board.graph = g2
	}

	p.board.routes = append(p.board.routes, netRoute{
		connectionName: connName, path: path,
		source: pr[0].point, goal: pr[1].point,
		sourceLayers: pr[0].layers, goalLayers: pr[1].layers,
	})

	return nil
}

func (p *pathingPhase) Solved() bool           { return p.solved }
func (p *pathingPhase) Failed() bool           { return p.failed }
func (p *pathingPhase) FailureDetail() *Failure { return p.failure }
func (p *pathingPhase) Iterations() int         { return p.idx }

func (p *pathingPhase) Visualize() GraphicsObject {
	g := GraphicsObject{Step: p.idx}
	for _, r := range p.board.routes {
		for _, id := range r.path {
			g.Points = append(g.Points, p.board.mesh.Nodes[id].Rect.Center)
		}
	}

	return g
}
