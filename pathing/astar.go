// Package pathing implements the capacity-mesh pathing solver from
// spec.md §4.3: given a CapacityPathingSolver input (a net's ordered
// endpoints, plus the capacity mesh), find a node-disjoint-where-possible
// path through the mesh that connects them without exceeding any node's
// remaining capacity, and commit the winning path's capacity usage.
//
// Astar is dijkstra's algorithm generalized with a straight-line
// heuristic and an explicit target, styled after dijkstra.Dijkstra's
// structure (container/heap priority queue, lazy decrease-key, sentinel
// errors) but stopping as soon as the target is popped rather than
// exploring the whole graph — the capacity mesh can have thousands of
// nodes and most pathing calls only need one corner-to-corner route.
package pathing

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/pcbroute/pcbroute/core"
	"github.com/pcbroute/pcbroute/mesh"
	"github.com/pcbroute/pcbroute/meshgraph"
)

// ErrNoPath indicates the target is unreachable from the source within
// the mesh's current capacity and adjacency.
var ErrNoPath = errors.New("pathing: no path found")

// Heuristic estimates the remaining cost from a to goal; the caller
// supplies one grounded in board geometry (see StraightLineHeuristic).
type Heuristic func(m *mesh.Mesh, a, goal mesh.NodeID) float64

// StraightLineHeuristic is the admissible heuristic this router defaults
// to: Euclidean distance between node rect centers, which never
// overestimates the true mesh-edge-weight cost because every edge
// weight is at least 1.
func StraightLineHeuristic(m *mesh.Mesh, a, goal mesh.NodeID) float64 {
	ca, cb := m.Nodes[a].Rect.Center, m.Nodes[goal].Rect.Center
	dx, dy := ca.X-cb.X, ca.Y-cb.Y

	return math.Sqrt(dx*dx + dy*dy)
}

type pqItem struct {
	node     mesh.NodeID
	priority float64
	index    int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i]; pq[i].index, pq[j].index = i, j }
func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]

	return item
}

// FindPath runs A* from source to goal over m's capacity-weighted
// adjacency, skipping any intermediate node whose Remaining() is zero
// (source and goal themselves are never skipped — a net endpoint sitting
// on a saturated assignable-via node is a pipeline bug, not something
// pathing should silently route around). g must be the core.Graph view
// of m produced by meshgraph.ToCoreGraph.
func FindPath(m *mesh.Mesh, g *core.Graph, source, goal mesh.NodeID, h Heuristic) ([]mesh.NodeID, int64, error) {
	if h == nil {
		h = StraightLineHeuristic
	}

	dist := map[mesh.NodeID]int64{source: 0}
	prev := map[mesh.NodeID]mesh.NodeID{}
	visited := map[mesh.NodeID]bool{}

	pq := &priorityQueue{{node: source, priority: h(m, source, goal)}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem).node
		if visited[cur] {
			continue
		}
		visited[cur] = true

		if cur == goal {
			return reconstruct(prev, source, goal), dist[goal], nil
		}

		edges, err := g.Neighbors(meshgraph.VertexID(cur))
		if err != nil {
			return nil, 0, fmt.Errorf("pathing: %w", err)
		}

		for _, e := range edges {
			next, err := meshgraph.NodeID(e.To)
			if err != nil {
				return nil, 0, fmt.Errorf("pathing: %w", err)
			}
			if next != goal && next != source && m.Nodes[next].TotalCapacity > 0 && m.Nodes[next].Remaining() <= 0 {
				continue
			}

			nd := dist[cur] + e.Weight
			if existing, ok := dist[next]; !ok || nd < existing {
				dist[next] = nd
				prev[next] = cur
				heap.Push(pq, &pqItem{node: next, priority: float64(nd) + h(m, next, goal)})
			}
		}
	}

	return nil, 0, ErrNoPath
}

func reconstruct(prev map[mesh.NodeID]mesh.NodeID, source, goal mesh.NodeID) []mesh.NodeID {
	path := []mesh.NodeID{goal}
	cur := goal
	for cur != source {
		p, ok := prev[cur]
		if !ok {
			break
		}
		path = append([]mesh.NodeID{p}, path...)
		cur = p
	}

	return path
}

// CommitPath decrements the remaining capacity of every capacity-bearing
// node the path passes through (source and goal included, matching
// spec.md §4.3: "Once a node is assigned to a net, its remaining
// capacity decrements").
func CommitPath(m *mesh.Mesh, path []mesh.NodeID) {
	for _, id := range path {
		if m.Nodes[id].TotalCapacity > 0 {
			m.Decrement(id)
		}
	}
}
