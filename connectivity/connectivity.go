// Package connectivity builds the connectivity map described in spec.md §3:
// a union-find over net names, point IDs, and obstacle IDs, plus a
// coordinate hash so geometrically coincident points collapse into one
// equivalence class even if the input never named them the same.
package connectivity

import (
	"fmt"
	"math"

	"github.com/pcbroute/pcbroute/dsu"
	"github.com/pcbroute/pcbroute/netlist"
)

// Map is the connectivity map: a read-only view over a DSU built once from
// a SimpleRouteJson, per spec.md §3's lifecycle ("Input SimpleRouteJson is
// immutable; each solver appends to derived structures").
type Map struct {
	d *dsu.DSU
	// pointKey remembers the DSU key used for each (connectionName, pointIndex)
	// pair so callers can look up a specific point's equivalence class.
	pointKey map[pointRef]string
}

type pointRef struct {
	connection string
	index      int
}

// CoordKey hashes a point's rounded coordinate and layer set into a string,
// per spec.md §3: "round(x*100),round(y*100):z1-z2-…". Points that hash
// equal are electrically coincident regardless of declared net names.
func CoordKey(x, y float64, zLayers []int) string {
	rx := math.Round(x * 100)
	ry := math.Round(y * 100)
	key := fmt.Sprintf("%g,%g:", rx, ry)
	for i, z := range zLayers {
		if i > 0 {
			key += "-"
		}
		key += fmt.Sprintf("%d", z)
	}

	return key
}

// Build constructs the connectivity map for srj, equating:
//   - every pointsToConnect endpoint with its owning connection name;
//   - every obstacle with its connectedTo list;
//   - rootConnectionName and mergedConnectionNames aliases;
//   - geometrically coincident points (same CoordKey), via layers which
//     resolves each point's declared layer name(s) to z-indices.
func Build(srj *netlist.SimpleRouteJson, layers interface {
	NameToZ(string) (int, error)
}) (*Map, error) {
	d := dsu.New()
	m := &Map{d: d, pointKey: make(map[pointRef]string)}

	for _, conn := range srj.Connections {
		d.MakeSet(conn.Name)
		if conn.RootConnectionName != "" {
			d.Union(conn.Name, conn.RootConnectionName)
		}
		for _, merged := range conn.MergedConnectionNames {
			d.Union(conn.Name, merged)
		}

		for i, pt := range conn.PointsToConnect {
			key := pointDSUKey(conn.Name, i, pt)
			m.pointKey[pointRef{connection: conn.Name, index: i}] = key
			d.Union(key, conn.Name)

			if pt.PointID != "" {
				d.Union(key, "point:"+pt.PointID)
			}

			zLayers, err := resolveZLayers(layers, pt.LayerNames())
			if err != nil {
				return nil, fmt.Errorf("connectivity: %w", err)
			}
			d.Union(key, CoordKey(pt.X, pt.Y, zLayers))
		}
	}

	for _, obs := range srj.Obstacles {
		if len(obs.ConnectedTo) == 0 {
			continue
		}
		root := "obstacle:" + obstacleKey(obs)
		d.MakeSet(root)
		for _, id := range obs.ConnectedTo {
			d.Union(root, id)
			d.Union(root, "point:"+id)
		}
	}

	// Obstacles whose offBoardConnectsTo lists share a net name are tied
	// together by external (off-board) wiring: every point connected to
	// one is electrically equivalent to every point connected to the
	// other, per spec.md §4's "equivalent (under the connectivity map
	// plus offBoardConnectsTo)". Grouping by net name first keeps this
	// O(obstacles + nets) instead of the O(obstacles²) a naive pairwise
	// scan would need.
	netToObstacleRoots := make(map[string][]string)
	for _, obs := range srj.Obstacles {
		root := "obstacle:" + obstacleKey(obs)
		for _, net := range obs.OffBoardConnectsTo {
			netToObstacleRoots[net] = append(netToObstacleRoots[net], root)
		}
	}
	for _, roots := range netToObstacleRoots {
		for i := 1; i < len(roots); i++ {
			d.Union(roots[0], roots[i])
		}
	}

	return m, nil
}

func pointDSUKey(connName string, index int, pt netlist.PointToConnect) string {
	if pt.PointID != "" {
		return "point:" + pt.PointID
	}
	if pt.PCBPortID != "" {
		return "port:" + pt.PCBPortID
	}

	return fmt.Sprintf("anon:%s:%d", connName, index)
}

func obstacleKey(o netlist.Obstacle) string {
	if o.ObstacleID != "" {
		return o.ObstacleID
	}

	return fmt.Sprintf("%g,%g,%g,%g", o.Center.X, o.Center.Y, o.Width, o.Height)
}

func resolveZLayers(layers interface {
	NameToZ(string) (int, error)
}, names []string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, n := range names {
		z, err := layers.NameToZ(n)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}

	return out, nil
}

// Connected reports whether two point references (by connection name and
// point index) are in the same electrical equivalence class.
func (m *Map) Connected(connA string, idxA int, connB string, idxB int) bool {
	keyA, okA := m.pointKey[pointRef{connection: connA, index: idxA}]
	keyB, okB := m.pointKey[pointRef{connection: connB, index: idxB}]
	if !okA || !okB {
		return false
	}

	return m.d.Connected(keyA, keyB)
}

// ConnectedIDs reports whether two arbitrary DSU keys (net names, "point:id",
// "obstacle:id", or coordinate hashes) are in the same class.
func (m *Map) ConnectedIDs(a, b string) bool {
	return m.d.Connected(a, b)
}

// ClassOf returns the DSU key for a given point reference, for callers that
// need to feed it back into ConnectedIDs or DSU.Class.
func (m *Map) ClassOf(connName string, index int) (string, bool) {
	key, ok := m.pointKey[pointRef{connection: connName, index: index}]

	return key, ok
}

// DSU exposes the underlying union-find for packages (offboard) that need
// full class enumeration rather than pairwise queries.
func (m *Map) DSU() *dsu.DSU { return m.d }
