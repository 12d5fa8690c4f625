// Package offboard implements the off-board substitution / assignable-via
// rewrite from spec.md §4 (component C11): before pathing, every net's
// endpoints are expanded to their full off-board equivalence class, and
// the globally cheapest cross-product pair is substituted in, subject to
// a strict-improvement check.
//
// Off-board equivalence here is narrower than connectivity.Map's: that
// package unions every point in a Connection with the connection's own
// name, since for wiring-connectivity purposes all of a net's points are
// already "the same electrically". Substitution instead needs each
// individual endpoint's personal equivalence pool — the other points
// tied to it only via a shared PointID, coincident coordinates, or a
// common off-board net on the obstacles behind them — without that
// pool silently absorbing the rest of its own net. So this package
// builds its own dsu.DSU, grounded the same way connectivity.Build is,
// but omitting the net-membership union.
package offboard

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/pcbroute/pcbroute/core"
	"github.com/pcbroute/pcbroute/dsu"
	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/matrix"
	"github.com/pcbroute/pcbroute/netlist"
	"github.com/pcbroute/pcbroute/prim_kruskal"
)

// Candidate is one point belonging to an off-board equivalence class,
// tagged with where it came from in the original netlist.
type Candidate struct {
	ConnectionName string
	Index          int
	PointID        string
	Point          geom.Point
}

// Pair is a substituted two-point connection: the net's new endpoints
// after cross-product scoring, per spec.md §4's off-board optimality
// property.
type Pair struct {
	ConnectionName string
	A, B           Candidate
	Substituted    bool
	Distance       float64
}

// equivalence builds the narrow per-endpoint DSU described in the
// package doc: points sharing a PointID, coincident coordinates, or an
// obstacle-pair tied together by a common off-board net are unioned;
// net membership is not.
type equivalence struct {
	d        *dsu.DSU
	pointKey map[pointRef]string
	byRoot   map[string][]Candidate
}

type pointRef struct {
	conn string
	idx  int
}

func buildEquivalence(srj *netlist.SimpleRouteJson) *equivalence {
	d := dsu.New()
	e := &equivalence{d: d, pointKey: make(map[pointRef]string)}

	obstacleRoot := func(o netlist.Obstacle) string {
		if o.ObstacleID != "" {
			return "obstacle:" + o.ObstacleID
		}

		return fmt.Sprintf("obstacle:%g,%g,%g,%g", o.Center.X, o.Center.Y, o.Width, o.Height)
	}

	for _, o := range srj.Obstacles {
		if len(o.ConnectedTo) == 0 {
			continue
		}
		root := obstacleRoot(o)
		for _, id := range o.ConnectedTo {
			d.Union(root, "point:"+id)
		}
	}

	netToRoots := make(map[string][]string)
	for _, o := range srj.Obstacles {
		root := obstacleRoot(o)
		for _, net := range o.OffBoardConnectsTo {
			netToRoots[net] = append(netToRoots[net], root)
		}
	}
	for _, roots := range netToRoots {
		for i := 1; i < len(roots); i++ {
			d.Union(roots[0], roots[i])
		}
	}

	for _, conn := range srj.Connections {
		for i, pt := range conn.PointsToConnect {
			var key string
			if pt.PointID != "" {
				key = "point:" + pt.PointID
			} else {
				key = fmt.Sprintf("anon:%s:%d", conn.Name, i)
			}
			e.pointKey[pointRef{conn: conn.Name, idx: i}] = key
			d.Union(key, coordKey(pt.X, pt.Y))
		}
	}

	e.byRoot = make(map[string][]Candidate)
	for _, conn := range srj.Connections {
		for i, pt := range conn.PointsToConnect {
			key := e.pointKey[pointRef{conn: conn.Name, idx: i}]
			root := d.Find(key)
			e.byRoot[root] = append(e.byRoot[root], Candidate{
				ConnectionName: conn.Name,
				Index:          i,
				PointID:        pt.PointID,
				Point:          geom.Point{X: pt.X, Y: pt.Y},
			})
		}
	}

	return e
}

func coordKey(x, y float64) string {
	return fmt.Sprintf("coord:%g,%g", math.Round(x*100), math.Round(y*100))
}

func (e *equivalence) rootOf(conn string, idx int) string {
	return e.d.Find(e.pointKey[pointRef{conn: conn, idx: idx}])
}

func (e *equivalence) classOf(conn string, idx int) []Candidate {
	return e.byRoot[e.rootOf(conn, idx)]
}

// bestPair picks the minimum-distance pair across the cross product of
// two equivalence classes, per spec.md §4's "considers all cross-products
// (source × target equivalence classes) and picks the globally cheapest".
// The cross-product distances are materialized into a matrix.Dense cost
// table (rows = classA, cols = classB) rather than scored inline, so the
// equivalence-class scoring step is expressed the same dense-table way
// portpoint's crossingCostMatrix and auxiliary's section-distance table
// are. Ties are broken by (connection name, index) for determinism.
func bestPair(classA, classB []Candidate) (Candidate, Candidate, float64) {
	if len(classA) == 0 || len(classB) == 0 {
		return Candidate{}, Candidate{}, -1
	}

	costs, err := matrix.NewDense(len(classA), len(classB))
	if err != nil {
		return Candidate{}, Candidate{}, -1
	}
	for i, a := range classA {
		for j, b := range classB {
			_ = costs.Set(i, j, geom.Dist(a.Point, b.Point))
		}
	}

	var bestA, bestB Candidate
	best := -1.0
	for i, a := range classA {
		for j, b := range classB {
			d, err := costs.At(i, j)
			if err != nil {
				continue
			}
			if best < 0 || d < best || (d == best && less(a, b, bestA, bestB)) {
				best, bestA, bestB = d, a, b
			}
		}
	}

	return bestA, bestB, best
}

func less(a, b, bestA, bestB Candidate) bool {
	if a.ConnectionName != bestA.ConnectionName {
		return a.ConnectionName < bestA.ConnectionName
	}
	if a.Index != bestA.Index {
		return a.Index < bestA.Index
	}
	if b.ConnectionName != bestB.ConnectionName {
		return b.ConnectionName < bestB.ConnectionName
	}

	return b.Index < bestB.Index
}

// SubstituteNet implements off-board substitution for one connection:
// for a two-point net, it expands both endpoints to their full
// equivalence classes and keeps the cheapest cross-product pair,
// rejecting the substitution if it is not strictly better than the
// original pair (the "no-better-path" property). For a multi-point net,
// it first orders the original points into a minimum-spanning tree,
// weighted by each pair's best achievable distance once off-board
// equivalents are considered, and substitutes independently along each
// MST edge — matching spec.md §4's "net {A,B,C} with B off-board to B'"
// example, which yields two resulting connections sharing B's
// substitute.
func SubstituteNet(srj *netlist.SimpleRouteJson, connectionName string) ([]Pair, error) {
	var conn *netlist.Connection
	for i := range srj.Connections {
		if srj.Connections[i].Name == connectionName {
			conn = &srj.Connections[i]

			break
		}
	}
	if conn == nil {
		return nil, fmt.Errorf("offboard: connection %q not found", connectionName)
	}
	if len(conn.PointsToConnect) < 2 {
		return nil, nil
	}

	eq := buildEquivalence(srj)
	n := len(conn.PointsToConnect)

	effectiveDist := func(i, j int) float64 {
		origDist := geom.Dist(netPoint(conn, i).Point, netPoint(conn, j).Point)
		rootI, rootJ := eq.rootOf(connectionName, i), eq.rootOf(connectionName, j)
		if rootI == rootJ {
			return 0
		}
		_, _, best := bestPair(eq.classOf(connectionName, i), eq.classOf(connectionName, j))
		if best >= 0 && best < origDist {
			return best
		}

		return origDist
	}

	edges := mstEdges(n, effectiveDist)

	pairs := make([]Pair, 0, len(edges))
	for _, e := range edges {
		origA := netPoint(conn, e[0])
		origB := netPoint(conn, e[1])
		origDist := geom.Dist(origA.Point, origB.Point)

		rootA, rootB := eq.rootOf(connectionName, e[0]), eq.rootOf(connectionName, e[1])
		if rootA == rootB {
			// Both endpoints are already in the same electrical class —
			// nothing to substitute; they are logically one node.
			pairs = append(pairs, Pair{ConnectionName: connectionName, A: origA, B: origB, Distance: 0})

			continue
		}

		candA, candB, best := bestPair(eq.classOf(connectionName, e[0]), eq.classOf(connectionName, e[1]))
		if best >= 0 && best < origDist {
			pairs = append(pairs, Pair{ConnectionName: connectionName, A: candA, B: candB, Substituted: true, Distance: best})
		} else {
			pairs = append(pairs, Pair{ConnectionName: connectionName, A: origA, B: origB, Distance: origDist})
		}
	}

	return pairs, nil
}

func netPoint(conn *netlist.Connection, idx int) Candidate {
	pt := conn.PointsToConnect[idx]

	return Candidate{ConnectionName: conn.Name, Index: idx, PointID: pt.PointID, Point: geom.Point{X: pt.X, Y: pt.Y}}
}

// mstEdges returns the minimum-spanning-tree edges (as index pairs) over
// n points, weighted by dist(i,j) — the same complete-graph-then-Kruskal
// shape pathing.OrderNetPoints uses for multi-point nets, grounded on
// prim_kruskal.Kruskal.
func mstEdges(n int, dist func(i, j int) float64) [][2]int {
	if n <= 1 {
		return nil
	}
	if n == 2 {
		return [][2]int{{0, 1}}
	}

	g := core.NewGraph(core.WithWeighted())
	for i := 0; i < n; i++ {
		if err := g.AddVertex(strconv.Itoa(i)); err != nil {
			return nil
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := dist(i, j)
			if _, err := g.AddEdge(strconv.Itoa(i), strconv.Itoa(j), int64(d*1000)+1); err != nil {
				return nil
			}
		}
	}

	mst, _, err := prim_kruskal.Kruskal(g)
	if err != nil {
		return nil
	}

	edges := make([][2]int, 0, len(mst))
	for _, e := range mst {
		a, errA := strconv.Atoi(e.From)
		b, errB := strconv.Atoi(e.To)
		if errA != nil || errB != nil {
			continue
		}
		edges = append(edges, [2]int{a, b})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}

		return edges[i][1] < edges[j][1]
	})

	return edges
}
