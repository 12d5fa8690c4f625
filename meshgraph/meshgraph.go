// Package meshgraph adapts between mesh.Mesh's arena-indexed capacity
// mesh and core.Graph's generic weighted-graph API.
//
// The capacity mesh is the router's canonical representation: a flat
// arena of Node/Edge values addressed by integer NodeID/EdgeID, per the
// REDESIGN FLAG in spec.md §9 that replaced the original's
// pointer-cross-referenced mesh graph. pathing's A* and the off-board
// substitution search, though, want plain weighted-graph adjacency and
// neighbor queries, not mesh-specific bookkeeping — so this package
// materializes a core.Graph view of a mesh once per pathing run, the way
// the teacher's own empty converters stub promised two-way adapters
// between its internal graph type and external graph representations,
// generalized here to a single, concrete, in-repo adapter instead of N
// speculative ones.
package meshgraph

import (
	"fmt"
	"strconv"

	"github.com/pcbroute/pcbroute/core"
	"github.com/pcbroute/pcbroute/mesh"
)

// VertexID formats a mesh.NodeID as the core.Graph vertex ID this package
// uses consistently in both directions.
func VertexID(id mesh.NodeID) string {
	return strconv.Itoa(int(id))
}

// NodeID parses a core.Graph vertex ID back into a mesh.NodeID.
func NodeID(vertex string) (mesh.NodeID, error) {
	n, err := strconv.Atoi(vertex)
	if err != nil {
		return 0, fmt.Errorf("meshgraph: not a node vertex: %q: %w", vertex, err)
	}

	return mesh.NodeID(n), nil
}

// EdgeWeight scores traversing e: free (unassigned) nodes at both ends
// cost 1 per unit of mesh granularity, off-board edges cost 0 (they are
// a "teleport" between two electrically tied obstacles, not a physical
// trace run), and nodes with less remaining capacity are penalized so
// the pathing solver's A* naturally avoids near-saturated cells before
// they actually refuse a new assignment. This is the adapter's only
// domain-specific policy; pathing may override it per pipeline.
func EdgeWeight(m *mesh.Mesh, e mesh.Edge) int64 {
	if e.IsOffboardEdge {
		return 0
	}

	a, b := m.Nodes[e.NodeIDs[0]], m.Nodes[e.NodeIDs[1]]
	weight := int64(1)
	for _, n := range [2]mesh.Node{a, b} {
		if n.TotalCapacity > 0 && n.Remaining() <= 1 {
			weight += 4
		}
	}

	return weight
}

// ToCoreGraph materializes m as a directed, weighted core.Graph: every
// mesh node becomes a vertex, and every mesh edge becomes a pair of
// opposing directed edges (the capacity mesh is itself undirected, but
// core.Graph's A*/Dijkstra-style consumers expect directed adjacency so
// that asymmetric per-direction weighting is possible later without
// changing this adapter's shape).
func ToCoreGraph(m *mesh.Mesh) (*core.Graph, error) {
	g := core.NewGraph(core.WithDirected(true), core.WithWeighted())

	for _, n := range m.Nodes {
		if err := g.AddVertex(VertexID(n.ID)); err != nil {
			return nil, fmt.Errorf("meshgraph: %w", err)
		}
	}

	for _, e := range m.Edges {
		w := EdgeWeight(m, e)
		a, b := VertexID(e.NodeIDs[0]), VertexID(e.NodeIDs[1])
		if _, err := g.AddEdge(a, b, w); err != nil {
			return nil, fmt.Errorf("meshgraph: %w", err)
		}
		if _, err := g.AddEdge(b, a, w); err != nil {
			return nil, fmt.Errorf("meshgraph: %w", err)
		}
	}

	return g, nil
}
