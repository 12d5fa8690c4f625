package keepout

import (
	"math"

	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/netlist"
)

// AssignWidths implements TraceWidthSolver: for every wire segment, picks
// the largest width in [minTraceWidth, nominalTraceWidth] that still
// keeps the segment at least width/2+minTraceWidth/2 away from every
// other net's nearest wire point on the same layer and from every
// obstacle, per spec.md §4.6 ("width may vary per segment").
func AssignWidths(traces []netlist.SimplifiedPcbTrace, obstacles []geom.Rect, minTraceWidth, nominalTraceWidth float64) []netlist.SimplifiedPcbTrace {
	if nominalTraceWidth < minTraceWidth {
		nominalTraceWidth = minTraceWidth
	}

	out := make([]netlist.SimplifiedPcbTrace, len(traces))
	for i, tr := range traces {
		out[i] = netlist.SimplifiedPcbTrace{
			PcbTraceID:     tr.PcbTraceID,
			ConnectionName: tr.ConnectionName,
			Route:          append([]netlist.RouteSegment(nil), tr.Route...),
		}
	}

	obstacleIndex := geom.NewSpatialIndex(nominalTraceWidth * 8)
	for _, o := range obstacles {
		obstacleIndex.Insert(o)
	}

	for ti := range out {
		for ri, seg := range out[ti].Route {
			if seg.Kind != "wire" {
				continue
			}
			p := geom.Point{X: seg.Wire.X, Y: seg.Wire.Y}
			clearSpace := nearestClearance(out, ti, ri, p, seg.Wire.Layer, obstacleIndex, nominalTraceWidth)

			width := clearSpace - minTraceWidth
			if width < minTraceWidth {
				width = minTraceWidth
			}
			if width > nominalTraceWidth {
				width = nominalTraceWidth
			}
			out[ti].Route[ri].Wire.Width = width
		}
	}

	return out
}

// nearestClearance returns twice the distance from p to the nearest
// other-net wire point (same layer) or obstacle edge, searched within a
// window sized by searchRadius — the largest symmetric width p could
// carry before touching that neighbor.
func nearestClearance(traces []netlist.SimplifiedPcbTrace, traceIdx, routeIdx int, p geom.Point, layer string, obstacles *geom.SpatialIndex, searchRadius float64) float64 {
	best := searchRadius * 2

	probe := geom.Rect{Center: p, Width: searchRadius * 4, Height: searchRadius * 4}
	for _, idx := range obstacles.QueryOverlapping(probe) {
		o := obstacles.Item(idx)
		dx := math.Max(math.Max(o.MinX()-p.X, 0), p.X-o.MaxX())
		dy := math.Max(math.Max(o.MinY()-p.Y, 0), p.Y-o.MaxY())
		d := math.Hypot(dx, dy)
		if 2*d < best {
			best = 2 * d
		}
	}

	for ti := range traces {
		if traces[ti].ConnectionName == traces[traceIdx].ConnectionName {
			continue
		}
		for ri, seg := range traces[ti].Route {
			if ti == traceIdx && ri == routeIdx {
				continue
			}
			if seg.Kind != "wire" || seg.Wire.Layer != layer {
				continue
			}
			d := geom.Dist(p, geom.Point{X: seg.Wire.X, Y: seg.Wire.Y})
			if 2*d < best {
				best = 2 * d
			}
		}
	}

	return best
}
