// Package portpoint implements the edge-crossing / port-point pathing
// solver from spec.md §4.4: once coarse capacity-mesh paths exist, every
// shared cell face that carries one or more traces needs concrete
// crossing coordinates, ordered along the face, and a local optimizer
// that re-draws contested sections when the naive uniform placement
// scores poorly.
package portpoint

import (
	"sort"

	"github.com/pcbroute/pcbroute/geom"
)

// Crossing is one net's desired crossing of a shared mesh-cell face,
// before a concrete coordinate has been assigned.
type Crossing struct {
	ConnectionName string
	// InsertionOrder preserves the order traces arrived at this face
	// from the incoming coarse geometry, per spec.md §4.4 step 2
	// ("order-preserving assignment minimizes crossings on the
	// neighboring side").
	InsertionOrder int
}

// PortPoint is a concrete crossing coordinate assigned to one net on one
// face.
type PortPoint struct {
	ConnectionName string
	Point          geom.Point3D
}

// DistributeUniform places len(crossings) points evenly spaced along
// face, in InsertionOrder, per spec.md §4.4 step 2.
func DistributeUniform(face geom.Segment, layer int, crossings []Crossing) []PortPoint {
	ordered := append([]Crossing(nil), crossings...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].InsertionOrder < ordered[j].InsertionOrder })

	n := len(ordered)
	out := make([]PortPoint, n)
	for i, c := range ordered {
		var t float64
		if n == 1 {
			t = 0.5
		} else {
			t = float64(i) / float64(n-1)
		}
		p := face.PointAt(t)
		out[i] = PortPoint{ConnectionName: c.ConnectionName, Point: geom.Point3D{X: p.X, Y: p.Y, Z: layer}}
	}

	return out
}

// BoardScore computes spec.md §4.4 step 3's scalar figure of merit:
// higher is better. minClearance is minTraceWidth+spacing; any pair of
// adjacent port points on the same face closer than that is an overlap
// and is penalized, on top of a small distance-from-center penalty that
// discourages points crowding toward one end of the face.
func BoardScore(face geom.Segment, points []PortPoint, minClearance float64) float64 {
	score := 0.0
	mid := face.PointAt(0.5)

	for i, p := range points {
		score -= geom.Dist(p.Point.To2D(), mid) * 0.01
		if i > 0 {
			d := geom.Dist(points[i-1].Point.To2D(), p.Point.To2D())
			if d < minClearance {
				score -= (minClearance - d) * 10
			}
		}
	}

	return score
}
