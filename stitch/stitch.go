// Package stitch implements the MultipleHighDensityRouteStitchSolver from
// spec.md §4.6: concatenate the per-cell polylines a capacity-mesh path
// produced, merge collinear runs, and turn layer changes into via
// segments, producing one continuous ordered polyline per net.
package stitch

import (
	"errors"
	"fmt"

	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/netlist"
)

// ErrDiscontinuous indicates two adjacent sections do not share an
// endpoint, which spec.md §7 classifies as an invariant violation: a
// fatal error a caller cannot route around by retrying with different
// hyperparameters.
var ErrDiscontinuous = errors.New("stitch: sections are not contiguous")

// JoinEpsilon is the maximum distance between a section's end point and
// the next section's start point still considered "the same point",
// absorbing floating-point drift accumulated across solver phases.
const JoinEpsilon = 1e-6

// Section is one cell's contribution to a net's route: an ordered
// polyline on a single layer, as produced by highdensity.IntraNodeRoute
// (converted back to board coordinates) or a direct edge crossing.
type Section struct {
	Layer  string
	Points []geom.Point
}

// Stitch concatenates sections in order into one ordered RouteSegment
// list for connectionName, inserting a Via wherever consecutive points
// change layer and merging runs of collinear same-layer points into a
// single wire segment, per spec.md §4.6's "merges collinear segments".
// Sections must already be ordered net-traversal-wise; adjacent sections
// whose endpoints don't coincide within JoinEpsilon are a hard error.
func Stitch(connectionName string, sections []Section, width float64) (netlist.SimplifiedPcbTrace, error) {
	if len(sections) == 0 {
		return netlist.SimplifiedPcbTrace{}, fmt.Errorf("stitch: connection %q has no sections", connectionName)
	}

	type tagged struct {
		p     geom.Point
		layer string
	}
	var chain []tagged
	for i, sec := range sections {
		if len(sec.Points) == 0 {
			return netlist.SimplifiedPcbTrace{}, fmt.Errorf("stitch: connection %q section %d is empty", connectionName, i)
		}
		if i > 0 {
			prev := chain[len(chain)-1]
			if geom.Dist(prev.p, sec.Points[0]) > JoinEpsilon {
				return netlist.SimplifiedPcbTrace{}, fmt.Errorf("%w: connection %q section %d starts at (%.4f,%.4f), previous ended at (%.4f,%.4f)",
					ErrDiscontinuous, connectionName, i, sec.Points[0].X, sec.Points[0].Y, prev.p.X, prev.p.Y)
			}
			// The shared endpoint was already emitted by the previous
			// section; skip it here so it is not duplicated.
			for _, p := range sec.Points[1:] {
				chain = append(chain, tagged{p: p, layer: sec.Layer})
			}

			continue
		}
		for _, p := range sec.Points {
			chain = append(chain, tagged{p: p, layer: sec.Layer})
		}
	}

	merged := mergeCollinear(chain)

	route := make([]netlist.RouteSegment, 0, len(merged))
	for i, pt := range merged {
		if i > 0 && pt.layer != merged[i-1].layer {
			route = append(route, netlist.RouteSegment{
				Kind: "via",
				Via: &netlist.Via{
					X: pt.p.X, Y: pt.p.Y,
					FromLayer: merged[i-1].layer,
					ToLayer:   pt.layer,
				},
			})
		}
		route = append(route, netlist.RouteSegment{
			Kind: "wire",
			Wire: &netlist.Wire{X: pt.p.X, Y: pt.p.Y, Width: width, Layer: pt.layer},
		})
	}

	return netlist.SimplifiedPcbTrace{
		PcbTraceID:     connectionName + ":trace",
		ConnectionName: connectionName,
		Route:          route,
	}, nil
}

type taggedPoint = struct {
	p     geom.Point
	layer string
}

// mergeCollinear drops interior points that lie on the straight line
// between their neighbors on the same layer, per spec.md §4.6.
func mergeCollinear(chain []taggedPoint) []taggedPoint {
	if len(chain) < 3 {
		return chain
	}

	out := []taggedPoint{chain[0]}
	for i := 1; i < len(chain)-1; i++ {
		prev, cur, next := out[len(out)-1], chain[i], chain[i+1]
		if cur.layer == prev.layer && cur.layer == next.layer && isCollinear(prev.p, cur.p, next.p) {
			continue
		}
		out = append(out, cur)
	}
	out = append(out, chain[len(chain)-1])

	return out
}

func isCollinear(a, b, c geom.Point) bool {
	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	const eps = 1e-9

	return cross > -eps && cross < eps
}
