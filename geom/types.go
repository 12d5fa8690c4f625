// Package geom defines the geometric primitives shared by every routing
// phase: points (2-D and layer-tagged 3-D), axis-aligned rectangles, and
// line segments, plus the predicates (overlap, clearance, side-of-line) that
// the capacity mesh builder, pathing solvers, and keepout solver all need.
//
// Coordinates are float64 board units. Layers are identified either by name
// ("top", "bottom", "inner1", …) or by an integer z-index (0 = top); Layers
// fixes the bijection once layerCount is known.
package geom

import (
	"fmt"
	"math"
)

// Point is a 2-D coordinate on the board, layer-agnostic.
type Point struct {
	X, Y float64
}

// Point3D is a board coordinate tagged with a layer index (Z). Z=0 is the
// top layer by convention; see Layers for the name↔index bijection.
type Point3D struct {
	X, Y float64
	Z    int
}

// To2D drops the layer tag.
func (p Point3D) To2D() Point { return Point{X: p.X, Y: p.Y} }

// Dist returns the Euclidean distance between two 2-D points.
func Dist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y

	return math.Sqrt(dx*dx + dy*dy)
}

// Dist3D returns the Euclidean distance between two layer-tagged points,
// ignoring layer (callers that care about layer-change cost add a via
// penalty separately).
func Dist3D(a, b Point3D) float64 {
	return Dist(a.To2D(), b.To2D())
}

// Rect is an axis-aligned rectangle given by its center and full
// width/height (not half-extents), matching SimpleRouteJson's obstacle and
// mesh-cell encoding.
type Rect struct {
	Center        Point
	Width, Height float64
}

// MinX, MaxX, MinY, MaxY return the rectangle's bounds.
func (r Rect) MinX() float64 { return r.Center.X - r.Width/2 }
func (r Rect) MaxX() float64 { return r.Center.X + r.Width/2 }
func (r Rect) MinY() float64 { return r.Center.Y - r.Height/2 }
func (r Rect) MaxY() float64 { return r.Center.Y + r.Height/2 }

// Contains reports whether p lies within r, inclusive of the boundary.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX() && p.X <= r.MaxX() && p.Y >= r.MinY() && p.Y <= r.MaxY()
}

// Overlaps reports whether r and o share positive area.
func (r Rect) Overlaps(o Rect) bool {
	return r.MinX() < o.MaxX() && r.MaxX() > o.MinX() &&
		r.MinY() < o.MaxY() && r.MaxY() > o.MinY()
}

// OverlapsInclusive reports whether r and o share any area or boundary,
// used when a caller wants touching-but-not-crossing cells to still count
// (e.g. face-adjacency detection in the mesh builder).
func (r Rect) OverlapsInclusive(o Rect) bool {
	return r.MinX() <= o.MaxX() && r.MaxX() >= o.MinX() &&
		r.MinY() <= o.MaxY() && r.MaxY() >= o.MinY()
}

// SharedFace returns the overlap segment of the shared boundary between two
// face-adjacent rectangles, and ok=false if they do not share a positive
// length face. Only orthogonal (axis-aligned) adjacency is considered, which
// is all the capacity mesh builder ever produces.
func (r Rect) SharedFace(o Rect) (Segment, bool) {
	const eps = 1e-9
	// Vertical shared face: r's right edge touches o's left edge, or vice versa.
	if math.Abs(r.MaxX()-o.MinX()) < eps || math.Abs(o.MaxX()-r.MinX()) < eps {
		x := r.MaxX()
		if math.Abs(o.MaxX()-r.MinX()) < eps {
			x = r.MinX()
		}
		lo := math.Max(r.MinY(), o.MinY())
		hi := math.Min(r.MaxY(), o.MaxY())
		if hi-lo > eps {
			return Segment{A: Point{X: x, Y: lo}, B: Point{X: x, Y: hi}}, true
		}

		return Segment{}, false
	}
	// Horizontal shared face.
	if math.Abs(r.MaxY()-o.MinY()) < eps || math.Abs(o.MaxY()-r.MinY()) < eps {
		y := r.MaxY()
		if math.Abs(o.MaxY()-r.MinY()) < eps {
			y = r.MinY()
		}
		lo := math.Max(r.MinX(), o.MinX())
		hi := math.Min(r.MaxX(), o.MaxX())
		if hi-lo > eps {
			return Segment{A: Point{X: lo, Y: y}, B: Point{X: hi, Y: y}}, true
		}

		return Segment{}, false
	}

	return Segment{}, false
}

// Segment is a 2-D line segment from A to B.
type Segment struct {
	A, B Point
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 { return Dist(s.A, s.B) }

// Horizontal reports whether the segment runs along a constant Y.
func (s Segment) Horizontal() bool { return math.Abs(s.A.Y-s.B.Y) < 1e-9 }

// PointAt returns the point a fraction t∈[0,1] along the segment from A to B.
func (s Segment) PointAt(t float64) Point {
	return Point{
		X: s.A.X + (s.B.X-s.A.X)*t,
		Y: s.A.Y + (s.B.Y-s.A.Y)*t,
	}
}

// DistToSegment returns the shortest distance from p to the segment s.
func DistToSegment(p Point, s Segment) float64 {
	dx, dy := s.B.X-s.A.X, s.B.Y-s.A.Y
	lenSq := dx*dx + dy*dy
	if lenSq < 1e-18 {
		return Dist(p, s.A)
	}
	t := ((p.X-s.A.X)*dx + (p.Y-s.A.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	proj := s.PointAt(t)

	return Dist(p, proj)
}

// SegmentsIntersect reports whether two segments cross at a point that is
// not a shared endpoint. Used by the planarity property test
// (checkEachPcbTraceNonOverlapping's geometric core).
func SegmentsIntersect(a, b Segment) bool {
	d1 := cross(sub(b.B, b.A), sub(a.A, b.A))
	d2 := cross(sub(b.B, b.A), sub(a.B, b.A))
	d3 := cross(sub(a.B, a.A), sub(b.A, a.A))
	d4 := cross(sub(a.B, a.A), sub(b.B, a.A))
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return false
}

func sub(a, b Point) Point   { return Point{X: a.X - b.X, Y: a.Y - b.Y} }
func cross(a, b Point) float64 { return a.X*b.Y - a.Y*b.X }

// Layers fixes the name↔z-index bijection for a board with the given
// layerCount. z=0 is "top", z=layerCount-1 is "bottom", and any index in
// between is "innerN" (1-indexed).
type Layers struct {
	count int
}

// NewLayers returns a Layers bijection for a board with layerCount copper
// layers. layerCount must be ≥ 1.
func NewLayers(layerCount int) (Layers, error) {
	if layerCount < 1 {
		return Layers{}, fmt.Errorf("geom: layerCount must be >= 1, got %d", layerCount)
	}

	return Layers{count: layerCount}, nil
}

// Count returns the number of copper layers.
func (l Layers) Count() int { return l.count }

// NameToZ maps a layer name to its z-index. Returns an error for unknown names.
func (l Layers) NameToZ(name string) (int, error) {
	switch name {
	case "top":
		return 0, nil
	case "bottom":
		return l.count - 1, nil
	}
	var n int
	if _, err := fmt.Sscanf(name, "inner%d", &n); err == nil && n >= 1 && n < l.count-1 {
		return n, nil
	}

	return 0, fmt.Errorf("geom: unknown layer name %q for layerCount=%d", name, l.count)
}

// ZToName maps a z-index to its canonical layer name.
func (l Layers) ZToName(z int) (string, error) {
	if z < 0 || z >= l.count {
		return "", fmt.Errorf("geom: z-index %d out of range [0,%d)", z, l.count)
	}
	switch z {
	case 0:
		return "top", nil
	case l.count - 1:
		return "bottom", nil
	default:
		return fmt.Sprintf("inner%d", z), nil
	}
}
