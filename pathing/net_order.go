package pathing

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pcbroute/pcbroute/core"
	"github.com/pcbroute/pcbroute/mesh"
	"github.com/pcbroute/pcbroute/prim_kruskal"
)

// OrderNetPoints decides the sequence in which a multi-point net's
// endpoints should be connected, per spec.md §4.3's note that nets with
// more than two PointToConnect entries need a deterministic visiting
// order before pairwise pathing. It builds a complete graph over the
// endpoints weighted by straight-line mesh distance, runs Kruskal's MST
// (grounded on prim_kruskal.Kruskal, the same algorithm the teacher uses
// for generic spanning trees), and returns the MST edges as
// (fromIndex, toIndex) pairs in a stable order: pathing connects each
// pair in turn, so the resulting route set is always a tree spanning
// every endpoint rather than an arbitrary chain.
func OrderNetPoints(m *mesh.Mesh, points []mesh.NodeID) ([][2]int, error) {
	if len(points) < 2 {
		return nil, nil
	}

	g := core.NewGraph(core.WithWeighted())
	for i := range points {
		if err := g.AddVertex(strconv.Itoa(i)); err != nil {
			return nil, fmt.Errorf("pathing: net order: %w", err)
		}
	}
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			w := int64(StraightLineHeuristic(m, points[i], points[j])*1000) + 1
			if _, err := g.AddEdge(strconv.Itoa(i), strconv.Itoa(j), w); err != nil {
				return nil, fmt.Errorf("pathing: net order: %w", err)
			}
		}
	}

	mstEdges, _, err := prim_kruskal.Kruskal(g)
	if err != nil {
		return nil, fmt.Errorf("pathing: net order: %w", err)
	}

	out := make([][2]int, 0, len(mstEdges))
	for _, e := range mstEdges {
		a, errA := strconv.Atoi(e.From)
		b, errB := strconv.Atoi(e.To)
		if errA != nil || errB != nil {
			return nil, fmt.Errorf("pathing: net order: malformed MST vertex IDs %q/%q", e.From, e.To)
		}
		out = append(out, [2]int{a, b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})

	return out, nil
}
