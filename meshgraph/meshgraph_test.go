package meshgraph_test

import (
	"testing"

	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/mesh"
	"github.com/pcbroute/pcbroute/meshgraph"
	"github.com/pcbroute/pcbroute/netlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCoreGraphRoundTripsVertexIDs(t *testing.T) {
	srj := &netlist.SimpleRouteJson{
		LayerCount:    1,
		MinTraceWidth: 0.1,
		Bounds:        netlist.Bounds{MinX: -5, MaxX: 5, MinY: -5, MaxY: 5},
	}
	layers, err := geom.NewLayers(srj.LayerCount)
	require.NoError(t, err)

	m, err := mesh.Build(srj, layers, mesh.DefaultOptions(srj))
	require.NoError(t, err)
	require.NotEmpty(t, m.Nodes)

	g, err := meshgraph.ToCoreGraph(m)
	require.NoError(t, err)

	for _, n := range m.Nodes {
		assert.True(t, g.HasVertex(meshgraph.VertexID(n.ID)))
		id, err := meshgraph.NodeID(meshgraph.VertexID(n.ID))
		require.NoError(t, err)
		assert.Equal(t, n.ID, id)
	}
}

func TestEdgeWeightPenalizesNearCapacity(t *testing.T) {
	n := mesh.Node{TotalCapacity: 2}
	m := &mesh.Mesh{Nodes: []mesh.Node{n, n}}
	m.Nodes[0].ID, m.Nodes[1].ID = 0, 1
	m.ResetRemaining()

	free := meshgraph.EdgeWeight(m, mesh.Edge{NodeIDs: [2]mesh.NodeID{0, 1}})
	assert.Equal(t, int64(1), free)
}
