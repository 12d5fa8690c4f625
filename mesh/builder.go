package mesh

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/netlist"
)

// Options tunes the capacity mesh builder (spec.md §4.2).
type Options struct {
	// MinCellSize stops subdivision once both sides of a cell fall below
	// this size, even if it still straddles more than one obstacle class.
	MinCellSize float64
	// TraceWidth and Spacing feed the per-cell capacity formula
	// floor(shorterSide/(TraceWidth+Spacing)) * |layers|.
	TraceWidth float64
	Spacing    float64
	// MaxCapacityPerLayer caps a single cell's TotalCapacity (0 = no cap).
	MaxCapacityPerLayer int
	Logger               *slog.Logger
}

// DefaultOptions returns sensible defaults derived from srj.
func DefaultOptions(srj *netlist.SimpleRouteJson) Options {
	spacing := srj.MinTraceWidth
	minCell := 4 * (srj.MinTraceWidth + spacing)
	if minCell <= 0 {
		minCell = 0.5
	}

	return Options{
		MinCellSize:          minCell,
		TraceWidth:           srj.MinTraceWidth,
		Spacing:              spacing,
		MaxCapacityPerLayer:  0,
		Logger:               slog.Default(),
	}
}

// obstacleInfo is the builder's internal, layer-resolved view of one
// SimpleRouteJson obstacle.
type obstacleInfo struct {
	rect       geom.Rect
	zLayers    []int
	class      string // DSU-ish class key: net representative, or "obstacle:<id>"
	assignable bool
	id         string
	offBoard   []string
}

// Build subdivides srj's board into a capacity mesh, per spec.md §4.2: start
// with one cell covering the full bounds on all layers, then recursively
// split any cell larger than opts.MinCellSize that straddles more than one
// obstacle class (distinct net, or obstacle vs free), using axis-median
// splits. Leaves wholly inside a single obstacle inherit that obstacle's
// net (and, if NetIsAssignable, become assignable-via cells).
//
// Simplification (recorded as an Open Question resolution in DESIGN.md):
// a leaf wholly inside an obstacle that only occupies a subset of the
// board's layers is tagged with just that obstacle's layers; the same
// footprint's remaining free layers are not split out into a second,
// independently routable node. This keeps the partition a single 2-D
// quadtree instead of a per-layer one, at the cost of slightly
// over-restricting rare partial-layer-obstacle cells.
func Build(srj *netlist.SimpleRouteJson, layers geom.Layers, opts Options) (*Mesh, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	obstacles, err := resolveObstacles(srj, layers)
	if err != nil {
		return nil, fmt.Errorf("mesh: %w", err)
	}

	boardRect := geom.Rect{
		Center: geom.Point{
			X: (srj.Bounds.MinX + srj.Bounds.MaxX) / 2,
			Y: (srj.Bounds.MinY + srj.Bounds.MaxY) / 2,
		},
		Width:  srj.Bounds.Width(),
		Height: srj.Bounds.Height(),
	}

	allLayers := make([]int, layers.Count())
	for i := range allLayers {
		allLayers[i] = i
	}

	m := newMesh()
	leaves := subdivide(boardRect, obstacles, opts.MinCellSize)
	for _, leaf := range leaves {
		m.addNode(buildLeafNode(leaf, obstacles, allLayers, opts))
	}

	connectFaceAdjacentNodes(m)

	opts.Logger.Debug("mesh built", "nodes", len(m.Nodes), "edges", len(m.Edges))

	return m, nil
}

func resolveObstacles(srj *netlist.SimpleRouteJson, layers geom.Layers) ([]obstacleInfo, error) {
	out := make([]obstacleInfo, 0, len(srj.Obstacles))
	for _, o := range srj.Obstacles {
		z := append([]int{}, o.ZLayers...)
		for _, name := range o.Layers {
			zi, err := layers.NameToZ(name)
			if err != nil {
				return nil, err
			}
			z = append(z, zi)
		}
		z = dedupeInts(z)

		class := "obstacle:" + o.ObstacleID
		if len(o.ConnectedTo) > 0 {
			class = "net:" + o.ConnectedTo[0]
		}

		out = append(out, obstacleInfo{
			rect: geom.Rect{
				Center: geom.Point{X: o.Center.X, Y: o.Center.Y},
				Width:  o.Width,
				Height: o.Height,
			},
			zLayers:    z,
			class:      class,
			assignable: o.NetIsAssignable,
			id:         o.ObstacleID,
			offBoard:   o.OffBoardConnectsTo,
		})
	}

	return out, nil
}

func dedupeInts(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)

	return out
}

// classesOverlapping returns the set of distinct obstacle classes whose
// rect overlaps r, plus whether any free (non-obstacle) area also remains
// within r.
func classesOverlapping(r geom.Rect, obstacles []obstacleInfo) (classes map[string]struct{}, hasFree bool) {
	classes = make(map[string]struct{})
	coveredFully := false
	for _, o := range obstacles {
		if !r.Overlaps(o.rect) {
			continue
		}
		classes[o.class] = struct{}{}
		if rectContains(o.rect, r) {
			coveredFully = true
		}
	}
	hasFree = !coveredFully || len(classes) == 0

	return classes, hasFree
}

func rectContains(outer, inner geom.Rect) bool {
	return outer.MinX() <= inner.MinX() && outer.MaxX() >= inner.MaxX() &&
		outer.MinY() <= inner.MinY() && outer.MaxY() >= inner.MaxY()
}

// subdivide recursively partitions rect until every leaf is smaller than
// minSize or touches at most one obstacle class, per spec.md §4.2.
func subdivide(rect geom.Rect, obstacles []obstacleInfo, minSize float64) []geom.Rect {
	classes, hasFree := classesOverlapping(rect, obstacles)
	distinctCount := len(classes)
	if hasFree && distinctCount > 0 {
		distinctCount++ // "obstacle vs free" counts as two classes
	}
	if distinctCount <= 1 {
		return []geom.Rect{rect}
	}
	if rect.Width <= minSize && rect.Height <= minSize {
		return []geom.Rect{rect}
	}

	var a, b geom.Rect
	if rect.Width >= rect.Height {
		halfW := rect.Width / 2
		a = geom.Rect{Center: geom.Point{X: rect.Center.X - halfW/2, Y: rect.Center.Y}, Width: halfW, Height: rect.Height}
		b = geom.Rect{Center: geom.Point{X: rect.Center.X + halfW/2, Y: rect.Center.Y}, Width: halfW, Height: rect.Height}
	} else {
		halfH := rect.Height / 2
		a = geom.Rect{Center: geom.Point{X: rect.Center.X, Y: rect.Center.Y - halfH/2}, Width: rect.Width, Height: halfH}
		b = geom.Rect{Center: geom.Point{X: rect.Center.X, Y: rect.Center.Y + halfH/2}, Width: rect.Width, Height: halfH}
	}

	out := subdivide(a, obstacles, minSize)
	out = append(out, subdivide(b, obstacles, minSize)...)

	return out
}

func buildLeafNode(rect geom.Rect, obstacles []obstacleInfo, allLayers []int, opts Options) Node {
	n := Node{Rect: rect, Layers: allLayers}

	for _, o := range obstacles {
		if rectContains(o.rect, rect) {
			n.Layers = o.zLayers
			n.AssignedNet = o.class
			n.AssignableVia = o.assignable
			n.ObstacleID = o.id

			break
		}
	}

	shorter := rect.Width
	if rect.Height < shorter {
		shorter = rect.Height
	}
	cap := 0
	if opts.TraceWidth+opts.Spacing > 0 {
		cap = int(shorter/(opts.TraceWidth+opts.Spacing)) * len(n.Layers)
	}
	if opts.MaxCapacityPerLayer > 0 && cap > opts.MaxCapacityPerLayer*len(n.Layers) {
		cap = opts.MaxCapacityPerLayer * len(n.Layers)
	}
	n.TotalCapacity = cap

	return n
}

// connectFaceAdjacentNodes adds an Edge between every pair of leaf nodes
// that share a positive-length face on at least one common layer,
// per spec.md §4.2. This is an O(n²) scan over leaves, acceptable at the
// mesh sizes this router targets (hundreds, not millions, of cells).
func connectFaceAdjacentNodes(m *Mesh) {
	for i := 0; i < len(m.Nodes); i++ {
		for j := i + 1; j < len(m.Nodes); j++ {
			a, b := m.Nodes[i], m.Nodes[j]
			if _, ok := a.Rect.SharedFace(b.Rect); !ok {
				continue
			}
			common := intersectLayers(a.Layers, b.Layers)
			if len(common) == 0 {
				continue
			}
			m.AddEdge(a.ID, b.ID, common)
		}
	}
}

func intersectLayers(a, b []int) []int {
	set := make(map[int]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	var out []int
	for _, v := range b {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	sort.Ints(out)

	return out
}
