// Package auxiliary implements the auxiliary solvers from spec.md §4.7:
// dead-end pruning, contested-section unraveling, and post-stitch
// polyline smoothing.
package auxiliary

import (
	"github.com/pcbroute/pcbroute/bfs"
	"github.com/pcbroute/pcbroute/mesh"
	"github.com/pcbroute/pcbroute/meshgraph"
)

// PruneDeadEnds implements DeadEndSolver: repeatedly removes mesh nodes
// that are (a) not one of required's required endpoints, (b) unreachable
// from every required endpoint, and (c) leaves (at most one live neighbor)
// in the not-yet-pruned graph, until no more can be removed. It tolerates
// neighbors that were already pruned in an earlier round by simply not
// counting them toward a node's remaining degree — per spec.md §4.7's
// "must tolerate neighbors already removed".
//
// Reachability from required is computed once via bfs.BFS over the
// mesh's core.Graph projection (meshgraph.ToCoreGraph). A node reachable
// from a required endpoint is never removed, whatever its degree.
func PruneDeadEnds(m *mesh.Mesh, required []mesh.NodeID) ([]mesh.NodeID, error) {
	g, err := meshgraph.ToCoreGraph(m)
	if err != nil {
		return nil, err
	}

	reachable := make(map[mesh.NodeID]bool)
	for _, r := range required {
		reachable[r] = true
		res, err := bfs.BFS(g, meshgraph.VertexID(r))
		if err != nil {
			continue
		}
		for _, v := range res.Order {
			id, err := meshgraph.NodeID(v)
			if err == nil {
				reachable[id] = true
			}
		}
	}

	requiredSet := make(map[mesh.NodeID]bool, len(required))
	for _, r := range required {
		requiredSet[r] = true
	}

	removed := make(map[mesh.NodeID]bool)
	for {
		progressed := false
		for i := range m.Nodes {
			id := mesh.NodeID(i)
			if removed[id] || requiredSet[id] {
				continue
			}
			if reachable[id] {
				continue
			}

			liveDegree := 0
			for _, eid := range m.Adjacent(id) {
				other := m.Edges[eid].Other(id)
				if !removed[other] {
					liveDegree++
				}
			}
			if liveDegree <= 1 {
				removed[id] = true
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	out := make([]mesh.NodeID, 0, len(removed))
	for id := range removed {
		out = append(out, id)
	}

	return out, nil
}
