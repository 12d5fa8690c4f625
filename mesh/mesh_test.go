package mesh_test

import (
	"testing"

	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/mesh"
	"github.com/pcbroute/pcbroute/netlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleSRJ() *netlist.SimpleRouteJson {
	return &netlist.SimpleRouteJson{
		LayerCount:    2,
		MinTraceWidth: 0.1,
		Bounds:        netlist.Bounds{MinX: -5, MaxX: 5, MinY: -5, MaxY: 5},
		Obstacles: []netlist.Obstacle{
			{
				ObstacleID:  "padA",
				Type:        "pcb_smtpad",
				Layers:      []string{"top"},
				Center:      netlist.XY{X: -3, Y: 0},
				Width:       1,
				Height:      1,
				ConnectedTo: []string{"net1"},
			},
		},
	}
}

func TestBuildProducesAssignedAndFreeNodes(t *testing.T) {
	srj := simpleSRJ()
	layers, err := geom.NewLayers(srj.LayerCount)
	require.NoError(t, err)

	m, err := mesh.Build(srj, layers, mesh.DefaultOptions(srj))
	require.NoError(t, err)
	require.NotEmpty(t, m.Nodes)

	var sawAssigned, sawFree bool
	for _, n := range m.Nodes {
		if n.AssignedNet == "net:net1" {
			sawAssigned = true
		}
		if n.AssignedNet == "" {
			sawFree = true
		}
	}
	assert.True(t, sawAssigned, "expected a node carved out for padA's net")
	assert.True(t, sawFree, "expected remaining free board area")
}

func TestBuildConnectsAdjacentNodes(t *testing.T) {
	srj := simpleSRJ()
	layers, err := geom.NewLayers(srj.LayerCount)
	require.NoError(t, err)

	m, err := mesh.Build(srj, layers, mesh.DefaultOptions(srj))
	require.NoError(t, err)

	for _, n := range m.Nodes {
		assert.NotEmpty(t, m.Adjacent(n.ID), "every node should border at least one neighbor")
	}
}

func TestDecrementAndResetRemaining(t *testing.T) {
	srj := simpleSRJ()
	layers, err := geom.NewLayers(srj.LayerCount)
	require.NoError(t, err)

	m, err := mesh.Build(srj, layers, mesh.DefaultOptions(srj))
	require.NoError(t, err)
	require.NotEmpty(t, m.Nodes)

	id := m.Nodes[0].ID
	before := m.Nodes[id].Remaining()
	m.Decrement(id)
	assert.Equal(t, before-1, m.Nodes[id].Remaining())

	m.ResetRemaining()
	assert.Equal(t, m.Nodes[id].TotalCapacity, m.Nodes[id].Remaining())
}
