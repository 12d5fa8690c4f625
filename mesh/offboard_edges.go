package mesh

// ApplyOffboardEdges implements the OffboardCapacityNodeSolver from
// spec.md §4.2: it groups every assignable-via node whose assigned
// obstacle's offBoardConnectsTo list intersects a common net name, and
// inserts a zero-length IsOffboardEdge between every pair in that group,
// tagged with the shared net name. This lets the capacity pathing solver
// "tunnel" across the board between obstacles that are electrically tied
// together off-board (spec.md §4.3).
//
// offBoardNets maps each assignable-via node's ID to its obstacle's
// declared offBoardConnectsTo names (the mesh builder does not itself
// retain obstacle metadata beyond class/assignable/ID, so the caller — the
// pipeline orchestrator, which still has the original SimpleRouteJson —
// supplies this lookup).
func (m *Mesh) ApplyOffboardEdges(offBoardNets map[NodeID][]string) {
	netToNodes := make(map[string][]NodeID)
	for id, nets := range offBoardNets {
		for _, net := range nets {
			netToNodes[net] = append(netToNodes[net], id)
		}
	}

	for net, nodes := range netToNodes {
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				m.AddOffboardEdge(nodes[i], nodes[j], net)
			}
		}
	}
}

// OffboardNetsByObstacle is a convenience the pipeline orchestrator uses to
// build the offBoardNets argument to ApplyOffboardEdges: it maps each
// node's ObstacleID to the caller-supplied per-obstacle offBoardConnectsTo
// list, for every assignable-via node in the mesh.
func (m *Mesh) OffboardNetsByObstacle(obstacleOffBoard map[string][]string) map[NodeID][]string {
	out := make(map[NodeID][]string)
	for _, n := range m.Nodes {
		if !n.AssignableVia {
			continue
		}
		if nets, ok := obstacleOffBoard[n.ObstacleID]; ok && len(nets) > 0 {
			out[n.ID] = nets
		}
	}

	return out
}
