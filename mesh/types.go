// Package mesh builds the capacity mesh described in spec.md §3/§4.2: a
// recursive, axis-aligned subdivision of the board into rectangular cells,
// each tagged with the layers it is valid on and how many traces/vias it
// can accept.
//
// Per the REDESIGN FLAG in spec.md §9 ("mutable cross-referenced mesh
// graph" → "back the mesh with arenas ... use integer indices for
// cross-references"), Mesh owns flat Node/Edge slices and every reference
// between them is an integer index, not a pointer — the same
// arena-of-values-plus-integer-adjacency shape the teacher's gridgraph uses
// for its CellValues/neighborOffsets, generalized from a fixed grid to a
// recursive quadtree-like partition.
package mesh

import "github.com/pcbroute/pcbroute/geom"

// NodeID indexes into Mesh.Nodes.
type NodeID int

// EdgeID indexes into Mesh.Edges.
type EdgeID int

// Node is one leaf cell of the capacity mesh.
type Node struct {
	ID            NodeID
	Rect          geom.Rect
	Layers        []int // z-indices this cell is valid on
	TotalCapacity int
	// AssignedNet is set when this cell's footprint lies wholly inside a
	// single obstacle; it is the obstacle's connected net representative
	// (empty string = unassigned/free cell).
	AssignedNet string
	// AssignableVia marks a cell whose obstacle had NetIsAssignable set:
	// its net is chosen later by the pathing solver, not fixed here.
	AssignableVia bool
	// ObstacleID names the obstacle this node was carved from, when
	// AssignedNet != "" (empty otherwise).
	ObstacleID string
	// remaining tracks live capacity during pathing; it starts equal to
	// TotalCapacity and is decremented as nets are assigned (spec.md §4.3:
	// "Once a node is assigned to a net, its remaining capacity decrements").
	remaining int
}

// Remaining returns this node's currently unassigned capacity.
func (n *Node) Remaining() int { return n.remaining }

// HasLayer reports whether z is among this node's valid layers.
func (n *Node) HasLayer(z int) bool {
	for _, l := range n.Layers {
		if l == z {
			return true
		}
	}

	return false
}

// Edge connects two face-adjacent nodes on at least one common layer.
type Edge struct {
	ID              EdgeID
	NodeIDs         [2]NodeID
	CommonLayers    []int
	IsOffboardEdge  bool
	OffboardNetName string
}

// Mesh is the complete capacity mesh for one board: an arena of Nodes and
// Edges plus an adjacency index from node to incident edge IDs.
type Mesh struct {
	Nodes     []Node
	Edges     []Edge
	adjacency map[NodeID][]EdgeID
}

// newMesh returns an empty Mesh ready for incremental construction.
func newMesh() *Mesh {
	return &Mesh{adjacency: make(map[NodeID][]EdgeID)}
}

// addNode appends a node and returns its assigned ID.
func (m *Mesh) addNode(n Node) NodeID {
	id := NodeID(len(m.Nodes))
	n.ID = id
	n.remaining = n.TotalCapacity
	m.Nodes = append(m.Nodes, n)

	return id
}

// AddEdge appends a symmetric edge between a and b and indexes it in both
// nodes' adjacency lists, preserving the invariant in spec.md §3
// ("edge ∈ adj(a) ⇔ edge ∈ adj(b)").
func (m *Mesh) AddEdge(a, b NodeID, commonLayers []int) EdgeID {
	id := EdgeID(len(m.Edges))
	m.Edges = append(m.Edges, Edge{ID: id, NodeIDs: [2]NodeID{a, b}, CommonLayers: commonLayers})
	m.adjacency[a] = append(m.adjacency[a], id)
	m.adjacency[b] = append(m.adjacency[b], id)

	return id
}

// AddOffboardEdge appends a zero-length off-board edge between a and b,
// tagged with the shared net name (spec.md §4.2's OffboardCapacityNodeSolver).
func (m *Mesh) AddOffboardEdge(a, b NodeID, netName string) EdgeID {
	id := EdgeID(len(m.Edges))
	m.Edges = append(m.Edges, Edge{
		ID:              id,
		NodeIDs:         [2]NodeID{a, b},
		IsOffboardEdge:  true,
		OffboardNetName: netName,
	})
	m.adjacency[a] = append(m.adjacency[a], id)
	m.adjacency[b] = append(m.adjacency[b], id)

	return id
}

// Adjacent returns the edge IDs incident to node id.
func (m *Mesh) Adjacent(id NodeID) []EdgeID { return m.adjacency[id] }

// Other returns the node at the far end of edge e from node id.
func (e Edge) Other(id NodeID) NodeID {
	if e.NodeIDs[0] == id {
		return e.NodeIDs[1]
	}

	return e.NodeIDs[0]
}

// Decrement reduces a node's remaining capacity by one (one trace or via
// assigned). It is a no-op error for callers to call this past zero; the
// pathing solver is responsible for treating Remaining()<=0 as "full" before
// ever assigning further.
func (m *Mesh) Decrement(id NodeID) {
	m.Nodes[id].remaining--
}

// ResetRemaining restores every node's remaining capacity to its
// TotalCapacity, used when a pipeline retries pathing with perturbed
// hyperparameters after a capacity-exhaustion failure (spec.md §4.3).
func (m *Mesh) ResetRemaining() {
	for i := range m.Nodes {
		m.Nodes[i].remaining = m.Nodes[i].TotalCapacity
	}
}
