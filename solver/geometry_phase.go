package solver

import (
	"fmt"
	"math"

	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/highdensity"
	"github.com/pcbroute/pcbroute/mesh"
	"github.com/pcbroute/pcbroute/netlist"
	"github.com/pcbroute/pcbroute/portpoint"
	"github.com/pcbroute/pcbroute/stitch"
)

// geometryPhase implements spec.md §4.4's edge-crossing/port-point
// pathing and §4.5's intra-node high-density routing, then stitches each
// net's polylines into a final SimplifiedPcbTrace (§4.6). A single Step
// handles the whole board: every sub-step (packing a face, solving a
// cell) is cheap relative to per-net pathing and nothing here depends on
// another net's geometry decision, so there is nothing gained from
// exposing finer granularity.
type geometryPhase struct {
	board   *boardState
	done    bool
	failure *Failure
}

var _ Solver = (*geometryPhase)(nil)

func (p *geometryPhase) findEdge(u, v mesh.NodeID) (*mesh.Edge, bool) {
	for _, eid := range p.board.mesh.Adjacent(u) {
		e := &p.board.mesh.Edges[eid]
		if e.Other(u) == v {
			return e, true
		}
	}

	return nil, false
}

func (p *geometryPhase) nodeLayerName(id mesh.NodeID) string {
	n := &p.board.mesh.Nodes[id]
	if len(n.Layers) == 0 {
		return "top"
	}
	name, err := p.board.layers.ZToName(n.Layers[0])
	if err != nil {
		return "top"
	}

	return name
}

func (p *geometryPhase) edgeLayerName(e *mesh.Edge) string {
	if len(e.CommonLayers) == 0 {
		return "top"
	}
	name, err := p.board.layers.ZToName(e.CommonLayers[0])
	if err != nil {
		return "top"
	}

	return name
}

// layersForNode lists the board layer names usable at a node, home layer
// (n.Layers[0]) first, so highdensity.Options.Layers can offer via
// layer-changes wherever the underlying mesh cell actually spans more
// than one layer.
func (p *geometryPhase) layersForNode(n *mesh.Node) []string {
	if len(n.Layers) == 0 {
		return []string{"top"}
	}
	names := make([]string, 0, len(n.Layers))
	for _, z := range n.Layers {
		name, err := p.board.layers.ZToName(z)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return []string{"top"}
	}

	return names
}

// viaDiameterCells converts the board's minimum via diameter into a grid
// cell radius at the given node's cell size, per spec.md §4.5's
// requirement that a via's own footprint act as an obstacle to later
// nets.
func (p *geometryPhase) viaDiameterCells(rect geom.Rect, resolution int) int {
	if resolution <= 0 || p.board.srj.MinViaDiameter <= 0 {
		return 1
	}
	cellSize := rect.Width / float64(resolution)
	if h := rect.Height / float64(resolution); h < cellSize {
		cellSize = h
	}
	if cellSize <= 0 {
		return 1
	}
	cells := int(math.Ceil((p.board.srj.MinViaDiameter / 2) / cellSize))
	if cells < 1 {
		cells = 1
	}

	return cells
}

func cellCenter(rect geom.Rect, x, y, resolution int) geom.Point {
	fx := (float64(x) + 0.5) / float64(resolution)
	fy := (float64(y) + 0.5) / float64(resolution)

	return geom.Point{X: rect.MinX() + fx*rect.Width, Y: rect.MinY() + fy*rect.Height}
}

// edgeCrossing pairs an edge with its shared-face geometry, computed once
// per crossed edge.
type edgeCrossing struct {
	edge *mesh.Edge
	face geom.Segment
}

// nodeEntryExit is one net's board-space entry and exit point within a
// single mesh node, computed from its neighboring edge crossings (or the
// net's own pad, at a path endpoint).
type nodeEntryExit struct {
	entry, exit geom.Point
}

// legPoints is one layer-homogeneous run of a net's intra-node polyline,
// in board-space.
type legPoints struct {
	layer  string
	points []geom.Point
}

// nodeLegDetail carries a net's full intra-node solve for one shared
// cell: a sequence of single-layer legs joined by vias or jumpers, per
// spec.md §4.5.
type nodeLegDetail struct {
	legs        []legPoints
	transitions []highdensity.Transition
}

func (p *geometryPhase) Step() error {
	if p.done {
		return nil
	}
	p.done = true

	resolution := p.board.cfg.HighDensityResolution
	if resolution <= 0 {
		resolution = highdensity.DefaultOptions().Resolution
	}
	hp := portpoint.DefaultHyperparameters()
	hp.ShuffleSeed = p.board.cfg.ShuffleSeed
	hp.MinAllowedBoardScore = p.board.cfg.MinAllowedBoardScore

	// Pass 1: gather every net's edge crossings, per edge.
	edgeCrossings := make(map[mesh.EdgeID][]portpoint.Crossing)
	edges := make(map[mesh.EdgeID]edgeCrossing)

	for _, r := range p.board.routes {
		for i := 0; i+1 < len(r.path); i++ {
			e, ok := p.findEdge(r.path[i], r.path[i+1])
			if !ok || e.IsOffboardEdge {
				continue
			}
			if _, seen := edges[e.ID]; !seen {
				a, b := p.board.mesh.Nodes[e.NodeIDs[0]].Rect, p.board.mesh.Nodes[e.NodeIDs[1]].Rect
				face, ok := a.SharedFace(b)
				if !ok {
					continue
				}
				edges[e.ID] = edgeCrossing{edge: e, face: face}
			}
			edgeCrossings[e.ID] = append(edgeCrossings[e.ID], portpoint.Crossing{ConnectionName: r.connectionName, InsertionOrder: i})
		}
	}

	// Pass 2: pack each crossed face into concrete port points.
	edgePoint := make(map[mesh.EdgeID]map[string]geom.Point)
	clearance := p.board.srj.MinTraceWidth + p.board.srj.DefaultObstacleMargin
	for eid, crossings := range edgeCrossings {
		ec := edges[eid]
		layerZ := 0
		if len(ec.edge.CommonLayers) > 0 {
			layerZ = ec.edge.CommonLayers[0]
		}
		points, _ := portpoint.OptimizeFace(ec.face, layerZ, crossings, clearance, hp)
		byName := make(map[string]geom.Point, len(points))
		for _, pt := range points {
			byName[pt.ConnectionName] = pt.Point.To2D()
		}
		edgePoint[eid] = byName
	}

	// Pass 3: derive each net's per-node entry/exit point, and group by
	// node so shared cells can be routed with mutual clearance.
	nodeNets := make(map[mesh.NodeID]map[string][2]geom.Point)
	perNetNodeRange := make(map[string]map[mesh.NodeID]nodeEntryExit)

	for _, r := range p.board.routes {
		if len(r.path) < 2 {
			continue
		}
		nodeRange := make(map[mesh.NodeID]nodeEntryExit, len(r.path))
		for k, nodeID := range r.path {
			var entry, exit geom.Point
			if k == 0 {
				entry = r.source
			} else if e, ok := p.findEdge(r.path[k-1], nodeID); ok && !e.IsOffboardEdge {
				entry = edgePoint[e.ID][r.connectionName]
			} else {
				entry = p.board.mesh.Nodes[nodeID].Rect.Center
			}
			if k == len(r.path)-1 {
				exit = r.goal
			} else if e, ok := p.findEdge(nodeID, r.path[k+1]); ok && !e.IsOffboardEdge {
				exit = edgePoint[e.ID][r.connectionName]
			} else {
				exit = p.board.mesh.Nodes[nodeID].Rect.Center
			}
			nodeRange[nodeID] = nodeEntryExit{entry: entry, exit: exit}

			if nodeNets[nodeID] == nil {
				nodeNets[nodeID] = make(map[string][2]geom.Point)
			}
			nodeNets[nodeID][r.connectionName] = [2]geom.Point{entry, exit}
		}
		perNetNodeRange[r.connectionName] = nodeRange
	}

	// Pass 4: for every cell shared by two or more nets, solve mutual
	// clearance with the intra-node high-density solver, including any
	// via layer-changes or jumper bridges the cell's geometry forces.
	nodeDetail := make(map[mesh.NodeID]map[string]nodeLegDetail)
	for nodeID, nets := range nodeNets {
		if len(nets) < 2 {
			continue
		}
		node := &p.board.mesh.Nodes[nodeID]
		rect := node.Rect
		opts := highdensity.Options{
			Resolution:       resolution,
			Layers:           p.layersForNode(node),
			AllowJumpers:     p.board.srj.AllowJumpers,
			ViaDiameterCells: p.viaDiameterCells(rect, resolution),
		}
		traces, err := highdensity.IntraNodeRoute(rect, nets, opts)
		if err != nil {
			// Per spec.md §7 class 2, an unsolvable intra-node cell is
			// recoverable: the affected nets fall back to straight
			// entry-exit hops and are marked unrouted for this cell, not
			// the whole pipeline.
			p.board.logger.Warn("intra-node route failed, falling back to straight hop", "node", nodeID, "error", err)

			continue
		}
		detail := make(map[string]nodeLegDetail, len(traces))
		for _, tr := range traces {
			legs := make([]legPoints, len(tr.Legs))
			for i, leg := range tr.Legs {
				pts := make([]geom.Point, len(leg.Cells))
				for j, c := range leg.Cells {
					pts[j] = cellCenter(rect, c[0], c[1], resolution)
				}
				legs[i] = legPoints{layer: leg.Layer, points: pts}
			}
			detail[tr.ConnectionName] = nodeLegDetail{legs: legs, transitions: tr.Transitions}
		}
		nodeDetail[nodeID] = detail
	}

	// Pass 5: stitch each net's final polyline, splitting at off-board
	// jumps into independent runs joined by a pair of via segments.
	width := p.board.srj.EffectiveNominalTraceWidth()
	for _, r := range p.board.routes {
		trace, err := p.buildTrace(r, perNetNodeRange[r.connectionName], nodeDetail, width)
		if err != nil {
			p.board.failedSolvers = append(p.board.failedSolvers, r.connectionName)
			p.board.logger.Warn("stitch failed", "connection", r.connectionName, "error", err)

			continue
		}
		p.board.traces = append(p.board.traces, trace)
	}

	return nil
}

// jumperFootprint maps a jumper span's footprint name (highdensity's
// grid-cell-count estimate) to a board-space pad size; spec.md §4.5
// names 0603/1206 as the two SMT bridge sizes a jumper insertion may use.
func jumperFootprint(name string) string {
	if name == "" {
		return "0603"
	}

	return name
}

func (p *geometryPhase) buildTrace(r netRoute, nodeRange map[mesh.NodeID]nodeEntryExit, nodeDetail map[mesh.NodeID]map[string]nodeLegDetail, width float64) (netlist.SimplifiedPcbTrace, error) {
	if len(r.path) == 1 {
		srcLayer := "top"
		if len(r.sourceLayers) > 0 {
			srcLayer = r.sourceLayers[0]
		}

		return stitch.Stitch(r.connectionName, []stitch.Section{{Layer: srcLayer, Points: []geom.Point{r.source, r.goal}}}, width)
	}

	var route []netlist.RouteSegment
	var run []stitch.Section

	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		sub, err := stitch.Stitch(r.connectionName, run, width)
		if err != nil {
			return err
		}
		route = append(route, sub.Route...)
		run = nil

		return nil
	}

	for k, nodeID := range r.path {
		rng := nodeRange[nodeID]
		detail, hasDetail := nodeDetail[nodeID][r.connectionName]

		if !hasDetail || len(detail.legs) == 0 {
			pts := []geom.Point{rng.entry, rng.exit}
			run = append(run, stitch.Section{Layer: p.nodeLayerName(nodeID), Points: pts})
		} else {
			// A multi-leg intra-node solve: layer-differing adjacent legs
			// are left for stitch.Stitch to join with an automatic via
			// (their cells are geometrically contiguous at the switch
			// point); a jumper transition is not contiguous by design, so
			// it is flushed and manually spliced, mirroring the off-board
			// via-break below.
			for i, leg := range detail.legs {
				run = append(run, stitch.Section{Layer: leg.layer, Points: leg.points})

				if i < len(detail.transitions) && detail.transitions[i].Kind == "jumper" {
					if err := flush(); err != nil {
						return netlist.SimplifiedPcbTrace{}, err
					}
					start := leg.points[len(leg.points)-1]
					end := detail.legs[i+1].points[0]
					route = append(route, netlist.RouteSegment{
						Kind: "jumper",
						Jumper: &netlist.Jumper{
							Start:     netlist.XY{X: start.X, Y: start.Y},
							End:       netlist.XY{X: end.X, Y: end.Y},
							Footprint: jumperFootprint(detail.transitions[i].Footprint),
							Layer:     leg.layer,
						},
					})
				}
			}
		}

		if k+1 < len(r.path) {
			if e, ok := p.findEdge(nodeID, r.path[k+1]); ok && e.IsOffboardEdge {
				if err := flush(); err != nil {
					return netlist.SimplifiedPcbTrace{}, err
				}
				layer := p.nodeLayerName(nodeID)
				if hasDetail && len(detail.legs) > 0 {
					layer = detail.legs[len(detail.legs)-1].layer
				}
				route = append(route, netlist.RouteSegment{Kind: "via", Via: &netlist.Via{X: rng.exit.X, Y: rng.exit.Y, FromLayer: layer, ToLayer: layer}})
				nextLayer := p.nodeLayerName(r.path[k+1])
				nextEntry := nodeRange[r.path[k+1]].entry
				route = append(route, netlist.RouteSegment{Kind: "via", Via: &netlist.Via{X: nextEntry.X, Y: nextEntry.Y, FromLayer: nextLayer, ToLayer: nextLayer}})
			}
		}
	}
	if err := flush(); err != nil {
		return netlist.SimplifiedPcbTrace{}, err
	}
	if len(route) == 0 {
		return netlist.SimplifiedPcbTrace{}, fmt.Errorf("geometry: connection %q produced no route", r.connectionName)
	}

	return netlist.SimplifiedPcbTrace{PcbTraceID: r.connectionName + ":trace", ConnectionName: r.connectionName, Route: route}, nil
}

func (p *geometryPhase) Solved() bool        { return p.done && p.failure == nil }
func (p *geometryPhase) Failed() bool        { return p.failure != nil }
func (p *geometryPhase) FailureDetail() *Failure { return p.failure }

func (p *geometryPhase) Iterations() int {
	if p.done {
		return 1
	}

	return 0
}

func (p *geometryPhase) Visualize() GraphicsObject {
	g := GraphicsObject{Step: p.Iterations()}
	for _, tr := range p.board.traces {
		for _, seg := range tr.Route {
			if seg.Wire != nil {
				g.Points = append(g.Points, geom.Point{X: seg.Wire.X, Y: seg.Wire.Y})
			}
		}
	}

	return g
}
