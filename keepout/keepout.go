// Package keepout implements the TraceKeepoutSolver and TraceWidthSolver
// from spec.md §4.6: sweep every trace against obstacles and other nets,
// nudge points that violate clearance, then assign each segment the
// widest width that still satisfies it.
package keepout

import (
	"errors"
	"fmt"
	"math"

	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/netlist"
)

// ErrJumperInvariant indicates a jumper's start/end points are no longer
// consecutive in its route after a sweep pass, the one invariant
// violation spec.md §4.6 calls out as fatal and test-pinned.
var ErrJumperInvariant = errors.New("keepout: jumper endpoints are not consecutive")

// Options bounds the clearance sweep.
type Options struct {
	// Clearance is minTraceWidth+spacing: the minimum center-to-center
	// distance two distinct-net segments (or a segment and an obstacle
	// edge) must keep.
	Clearance float64
	// MaxNudgeIterations bounds the relaxation passes per point; the sweep
	// gives up and leaves the point at its best effort if clearance still
	// isn't met (spec.md doesn't require perfection, only monotone
	// improvement per pass).
	MaxNudgeIterations int
}

// DefaultOptions derives a keepout sweep's clearance from the board's
// trace-width parameters, per spec.md §4.6.
func DefaultOptions(minTraceWidth, spacing float64) Options {
	return Options{Clearance: minTraceWidth + spacing, MaxNudgeIterations: 4}
}

// wirePoint is a (trace index, route index) reference into a wire point,
// used so nudges can be applied in place without copying whole routes
// repeatedly.
type wirePoint struct {
	traceIdx int
	routeIdx int
}

// Sweep nudges every wire point in traces that violates clearance against
// an obstacle or another net's wire point, perpendicular to the local
// trace direction, away from the violation. Jumper and via segments are
// left untouched: jumper endpoints are invariant by construction here,
// since only Kind=="wire" points are ever moved.
func Sweep(traces []netlist.SimplifiedPcbTrace, obstacles []geom.Rect, opts Options) ([]netlist.SimplifiedPcbTrace, error) {
	if opts.Clearance <= 0 {
		return nil, fmt.Errorf("keepout: clearance must be > 0, got %v", opts.Clearance)
	}
	if opts.MaxNudgeIterations <= 0 {
		opts.MaxNudgeIterations = 1
	}

	out := make([]netlist.SimplifiedPcbTrace, len(traces))
	for i, tr := range traces {
		out[i] = netlist.SimplifiedPcbTrace{
			PcbTraceID:     tr.PcbTraceID,
			ConnectionName: tr.ConnectionName,
			Route:          append([]netlist.RouteSegment(nil), tr.Route...),
		}
	}

	obstacleIndex := geom.NewSpatialIndex(math.Max(opts.Clearance*4, 1))
	for _, o := range obstacles {
		obstacleIndex.Insert(o)
	}

	for pass := 0; pass < opts.MaxNudgeIterations; pass++ {
		moved := false
		for ti := range out {
			for ri, seg := range out[ti].Route {
				if seg.Kind != "wire" {
					continue
				}
				if nudgeOne(out, ti, ri, obstacleIndex, opts.Clearance) {
					moved = true
				}
			}
		}
		if !moved {
			break
		}
	}

	if err := verifyJumperInvariants(out); err != nil {
		return nil, err
	}

	return out, nil
}

func wireLayerAndPoint(seg netlist.RouteSegment) (geom.Point, string) {
	return geom.Point{X: seg.Wire.X, Y: seg.Wire.Y}, seg.Wire.Layer
}

// nudgeOne moves the wire point at (traceIdx, routeIdx) perpendicular to
// its local trace direction if it violates clearance against an
// obstacle or another trace's wire point on the same layer. Returns
// whether a move happened.
func nudgeOne(traces []netlist.SimplifiedPcbTrace, traceIdx, routeIdx int, obstacles *geom.SpatialIndex, clearance float64) bool {
	seg := traces[traceIdx].Route[routeIdx]
	p, layer := wireLayerAndPoint(seg)

	violationCenter, violated := findViolation(traces, traceIdx, routeIdx, p, layer, obstacles, clearance)
	if !violated {
		return false
	}

	dir := localDirection(traces[traceIdx].Route, routeIdx)
	// Perpendicular to the local trace direction.
	nx, ny := -dir.Y, dir.X
	away := geom.Point{X: p.X - violationCenter.X, Y: p.Y - violationCenter.Y}
	if nx*away.X+ny*away.Y < 0 {
		nx, ny = -nx, -ny
	}

	step := clearance - geom.Dist(p, violationCenter)
	if step <= 0 {
		step = clearance * 0.25
	}

	traces[traceIdx].Route[routeIdx].Wire.X = p.X + nx*step
	traces[traceIdx].Route[routeIdx].Wire.Y = p.Y + ny*step

	return true
}

func findViolation(traces []netlist.SimplifiedPcbTrace, traceIdx, routeIdx int, p geom.Point, layer string, obstacles *geom.SpatialIndex, clearance float64) (geom.Point, bool) {
	probe := geom.Rect{Center: p, Width: clearance * 2, Height: clearance * 2}
	for _, idx := range obstacles.QueryOverlapping(probe) {
		o := obstacles.Item(idx)
		dx := math.Max(math.Max(o.MinX()-p.X, 0), p.X-o.MaxX())
		dy := math.Max(math.Max(o.MinY()-p.Y, 0), p.Y-o.MaxY())
		if math.Hypot(dx, dy) < clearance {
			return o.Center, true
		}
	}

	for ti := range traces {
		for ri, seg := range traces[ti].Route {
			if ti == traceIdx && ri == routeIdx {
				continue
			}
			if seg.Kind != "wire" || seg.Wire.Layer != layer {
				continue
			}
			if traces[ti].ConnectionName == traces[traceIdx].ConnectionName {
				continue
			}
			other := geom.Point{X: seg.Wire.X, Y: seg.Wire.Y}
			if geom.Dist(p, other) < clearance {
				return other, true
			}
		}
	}

	return geom.Point{}, false
}

// localDirection estimates the trace's direction of travel at routeIdx
// from its nearest wire neighbors, defaulting to the X axis for an
// isolated point.
func localDirection(route []netlist.RouteSegment, routeIdx int) geom.Point {
	var before, after *geom.Point
	for i := routeIdx - 1; i >= 0; i-- {
		if route[i].Kind == "wire" {
			p := geom.Point{X: route[i].Wire.X, Y: route[i].Wire.Y}
			before = &p

			break
		}
	}
	for i := routeIdx + 1; i < len(route); i++ {
		if route[i].Kind == "wire" {
			p := geom.Point{X: route[i].Wire.X, Y: route[i].Wire.Y}
			after = &p

			break
		}
	}

	switch {
	case before != nil && after != nil:
		return normalize(geom.Point{X: after.X - before.X, Y: after.Y - before.Y})
	case after != nil:
		cur := geom.Point{X: route[routeIdx].Wire.X, Y: route[routeIdx].Wire.Y}

		return normalize(geom.Point{X: after.X - cur.X, Y: after.Y - cur.Y})
	case before != nil:
		cur := geom.Point{X: route[routeIdx].Wire.X, Y: route[routeIdx].Wire.Y}

		return normalize(geom.Point{X: cur.X - before.X, Y: cur.Y - before.Y})
	default:
		return geom.Point{X: 1, Y: 0}
	}
}

func normalize(p geom.Point) geom.Point {
	l := math.Sqrt(p.X*p.X + p.Y*p.Y)
	if l < 1e-12 {
		return geom.Point{X: 1, Y: 0}
	}

	return geom.Point{X: p.X / l, Y: p.Y / l}
}

// verifyJumperInvariants checks that every jumper's declared start/end
// still appear as the wire points immediately surrounding it in the
// route, per spec.md §4.6's tested invariant.
func verifyJumperInvariants(traces []netlist.SimplifiedPcbTrace) error {
	for _, tr := range traces {
		for i, seg := range tr.Route {
			if seg.Kind != "jumper" {
				continue
			}
			if i == 0 || i == len(tr.Route)-1 {
				return fmt.Errorf("%w: connection %q jumper at route edge", ErrJumperInvariant, tr.ConnectionName)
			}
			prev, next := tr.Route[i-1], tr.Route[i+1]
			if prev.Kind != "wire" || next.Kind != "wire" {
				continue
			}
			if prev.Wire.X != seg.Jumper.Start.X || prev.Wire.Y != seg.Jumper.Start.Y {
				return fmt.Errorf("%w: connection %q jumper start mismatch", ErrJumperInvariant, tr.ConnectionName)
			}
			if next.Wire.X != seg.Jumper.End.X || next.Wire.Y != seg.Jumper.End.Y {
				return fmt.Errorf("%w: connection %q jumper end mismatch", ErrJumperInvariant, tr.ConnectionName)
			}
		}
	}

	return nil
}
