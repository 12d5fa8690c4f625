package auxiliary

import (
	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/netlist"
)

// SmoothOptions tunes SegmentOptimizer.
type SmoothOptions struct {
	// MaxDeviation bounds how far a smoothed point may move from its
	// original position, so smoothing cannot pull a trace into an
	// obstacle the keepout sweep already cleared it from.
	MaxDeviation float64
	// Iterations is the number of smoothing passes to run.
	Iterations int
}

// DefaultSmoothOptions returns conservative smoothing bounds.
func DefaultSmoothOptions() SmoothOptions {
	return SmoothOptions{MaxDeviation: 0.05, Iterations: 1}
}

// SegmentOptimizer implements the post-stitch polyline smoother from
// spec.md §4.7: each interior wire point on a single-layer run is pulled
// toward the midpoint of its same-layer neighbors, clamped to
// MaxDeviation from its pre-smoothing position, which removes small
// jitter left by stitching without reopening clearance violations
// keepout.Sweep already resolved.
func SegmentOptimizer(trace netlist.SimplifiedPcbTrace, opts SmoothOptions) netlist.SimplifiedPcbTrace {
	if opts.Iterations <= 0 {
		opts.Iterations = 1
	}

	route := append([]netlist.RouteSegment(nil), trace.Route...)

	for iter := 0; iter < opts.Iterations; iter++ {
		next := append([]netlist.RouteSegment(nil), route...)
		for i := 1; i < len(route)-1; i++ {
			cur := route[i]
			if cur.Kind != "wire" {
				continue
			}
			prev, next2 := route[i-1], route[i+1]
			if prev.Kind != "wire" || next2.Kind != "wire" {
				continue
			}
			if prev.Wire.Layer != cur.Wire.Layer || next2.Wire.Layer != cur.Wire.Layer {
				continue
			}

			base := trace.Route[i].Wire
			orig := geom.Point{X: base.X, Y: base.Y}
			mid := geom.Point{
				X: (prev.Wire.X + next2.Wire.X) / 2,
				Y: (prev.Wire.Y + next2.Wire.Y) / 2,
			}
			if geom.Dist(orig, mid) > opts.MaxDeviation {
				d := geom.Dist(orig, mid)
				t := opts.MaxDeviation / d
				mid = geom.Point{X: orig.X + (mid.X-orig.X)*t, Y: orig.Y + (mid.Y-orig.Y)*t}
			}

			w := *cur.Wire
			w.X, w.Y = mid.X, mid.Y
			next[i] = netlist.RouteSegment{Kind: "wire", Wire: &w}
		}
		route = next
	}

	return netlist.SimplifiedPcbTrace{
		PcbTraceID:     trace.PcbTraceID,
		ConnectionName: trace.ConnectionName,
		Route:          route,
	}
}
