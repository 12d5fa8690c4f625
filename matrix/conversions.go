// Package matrix provides converters from core.Graph
// to simple matrix and edge-list representations.
package matrix

import "github.com/pcbroute/pcbroute/core"

// EdgeListItem is a flat representation of a single edge.
type EdgeListItem struct {
	FromID, ToID string
	Weight       int64
}

// ToEdgeList returns all edges in g as a slice of EdgeListItem.
// For undirected graphs, each edge appears twice (once per direction).
//
// Time Complexity: O(E)
func ToEdgeList(g *core.Graph) []EdgeListItem {
	var out []EdgeListItem
	for _, e := range g.Edges() {
		out = append(out, EdgeListItem{
			FromID: e.From,
			ToID:   e.To,
			Weight: e.Weight,
		})
		if !e.Directed && e.From != e.To {
			out = append(out, EdgeListItem{FromID: e.To, ToID: e.From, Weight: e.Weight})
		}
	}

	return out
}

// GraphMatrix is a lightweight adjacency-matrix representation of a
// core.Graph, distinct from the Matrix interface used by the dense
// linear-algebra routines elsewhere in this package: it is keyed by
// vertex ID rather than row/column position, and holds integer edge
// weights rather than float64 cells.
//
// Index maps vertex ID → matrix row/column index.
// Data[i][j] holds the weight of the edge i→j or zero if absent.
type GraphMatrix struct {
	Index map[string]int
	Data  [][]int64
}

// ToMatrix constructs a GraphMatrix from g. If multiple edges exist
// between the same pair, the last one encountered sets the weight.
//
// Time Complexity: O(V + E)
// Memory: O(V²)
func ToMatrix(g *core.Graph) *GraphMatrix {
	verts := g.Vertices()
	n := len(verts)
	idx := make(map[string]int, n)
	for i, id := range verts {
		idx[id] = i
	}

	data := make([][]int64, n)
	for i := range data {
		data[i] = make([]int64, n)
	}
	for _, e := range g.Edges() {
		i, j := idx[e.From], idx[e.To]
		data[i][j] = e.Weight
		if !e.Directed {
			data[j][i] = e.Weight
		}
	}

	return &GraphMatrix{Index: idx, Data: data}
}
