package solver

import (
	"log/slog"

	"github.com/pcbroute/pcbroute/connectivity"
	"github.com/pcbroute/pcbroute/core"
	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/mesh"
	"github.com/pcbroute/pcbroute/netlist"
	"github.com/pcbroute/pcbroute/offboard"
)

// netRoute is one net's committed mesh-node path, held until the geometry
// phase turns it into copper. source/goal keep the original board-space
// endpoints (and their declared layers) since those are the true pad
// locations a mesh node's rect only approximates.
type netRoute struct {
	connectionName string
	path           []mesh.NodeID
	source, goal   geom.Point
	sourceLayers   []string
	goalLayers     []string
}

// boardState is the mutable state threaded through every phase of one
// pipeline run. Phases never reach into each other directly; they only
// read and append to the board the owning Pipeline constructs once and
// passes to each phase in turn.
type boardState struct {
	srj    *netlist.SimpleRouteJson
	layers geom.Layers
	cfg    RouterConfig
	logger *slog.Logger

	mesh         *mesh.Mesh
	graph        *core.Graph
	connectivity *connectivity.Map

	routes         []netRoute
	failedSolvers  []string
	newConnections []offboard.Pair

	traces []netlist.SimplifiedPcbTrace
}

// nodeAt returns the mesh node whose rect contains p on any of layerNames,
// or false if no such node exists. Resolution is a linear scan of the
// mesh's nodes, acceptable at the per-net call volume pathing makes.
func (b *boardState) nodeAt(p geom.Point, layerNames []string) (mesh.NodeID, bool) {
	for _, name := range layerNames {
		z, err := b.layers.NameToZ(name)
		if err != nil {
			continue
		}
		for i := range b.mesh.Nodes {
			n := &b.mesh.Nodes[i]
			if n.HasLayer(z) && n.Rect.Contains(p) {
				return n.ID, true
			}
		}
	}

	return 0, false
}

// pointLayers looks up the declared layer names for one point of one
// connection, for callers that only have the (connection, index) pair an
// offboard.Candidate carries.
func (b *boardState) pointLayers(connName string, idx int) []string {
	for _, c := range b.srj.Connections {
		if c.Name != connName {
			continue
		}
		if idx >= 0 && idx < len(c.PointsToConnect) {
			return c.PointsToConnect[idx].LayerNames()
		}
	}

	return nil
}

// requiredNodeIDs returns every mesh node already committed to a route,
// the "must stay reachable" set PruneDeadEnds needs when a later net's
// pathing attempt fails and the pipeline retries after pruning.
func (b *boardState) requiredNodeIDs() []mesh.NodeID {
	seen := make(map[mesh.NodeID]bool)
	var out []mesh.NodeID
	for _, r := range b.routes {
		for _, id := range r.path {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}

	return out
}
