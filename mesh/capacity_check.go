package mesh

import (
	"fmt"

	"github.com/pcbroute/pcbroute/core"
	"github.com/pcbroute/pcbroute/flow"
)

// Assignment records that a net's pathing solver has claimed one unit of
// capacity at a node, per spec.md §4.3 ("Once a node is assigned to a net,
// its remaining capacity decrements").
type Assignment struct {
	Net  string
	Node NodeID
}

// VerifyCapacity checks that assignments can be realized without
// double-booking any node beyond its TotalCapacity. It is a consistency
// check run after pathing, not a substitute for Mesh.Decrement's live
// bookkeeping during pathing itself: the latter is what the capacity
// pathing solver consults to avoid routing into a full node in the first
// place, while VerifyCapacity catches any bookkeeping drift (e.g. two
// pipeline stages assigning the same node concurrently) by recomputing
// feasibility from scratch as a max-flow problem.
//
// Each assignment becomes its own vertex with a capacity-1 edge from a
// synthetic source (one unit of flow per assignment) and a capacity-1 edge
// into its target node's vertex; every node vertex drains into a synthetic
// sink through an edge capped at that node's TotalCapacity. Assignments fit
// within capacity iff the max flow equals len(assignments).
func VerifyCapacity(m *Mesh, assignments []Assignment) (bool, error) {
	if len(assignments) == 0 {
		return true, nil
	}

	g := core.NewGraph(core.WithDirected(true), core.WithWeighted())

	const source = "__source__"
	const sink = "__sink__"
	if err := g.AddVertex(source); err != nil {
		return false, fmt.Errorf("mesh: capacity check: %w", err)
	}
	if err := g.AddVertex(sink); err != nil {
		return false, fmt.Errorf("mesh: capacity check: %w", err)
	}

	nodeVertex := func(id NodeID) string { return fmt.Sprintf("node:%d", id) }
	seenNode := make(map[NodeID]bool)
	for _, a := range assignments {
		if a.Node < 0 || int(a.Node) >= len(m.Nodes) {
			return false, fmt.Errorf("mesh: capacity check: assignment references unknown node %d", a.Node)
		}
		if !seenNode[a.Node] {
			seenNode[a.Node] = true
			if err := g.AddVertex(nodeVertex(a.Node)); err != nil {
				return false, fmt.Errorf("mesh: capacity check: %w", err)
			}
			cap := int64(m.Nodes[a.Node].TotalCapacity)
			if _, err := g.AddEdge(nodeVertex(a.Node), sink, cap); err != nil {
				return false, fmt.Errorf("mesh: capacity check: %w", err)
			}
		}
	}

	for i, a := range assignments {
		av := fmt.Sprintf("assign:%d:%s", i, a.Net)
		if err := g.AddVertex(av); err != nil {
			return false, fmt.Errorf("mesh: capacity check: %w", err)
		}
		if _, err := g.AddEdge(source, av, 1); err != nil {
			return false, fmt.Errorf("mesh: capacity check: %w", err)
		}
		if _, err := g.AddEdge(av, nodeVertex(a.Node), 1); err != nil {
			return false, fmt.Errorf("mesh: capacity check: %w", err)
		}
	}

	maxFlow, _, err := flow.Dinic(g, source, sink, flow.FlowOptions{})
	if err != nil {
		return false, fmt.Errorf("mesh: capacity check: %w", err)
	}

	return int(maxFlow) == len(assignments), nil
}
