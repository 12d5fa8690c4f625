// Package highdensity implements the intra-node high-density solvers from
// spec.md §4.5: given one capacity mesh cell and the port points that must
// be joined inside it, draw polylines for every net without letting
// distinct nets approach closer than traceWidth+spacing, with optional
// via layer changes and jumper insertion when no planar completion exists.
//
// The per-cell routing problem is modeled as a fine-grained occupancy
// grid, grounded on gridgraph.GridGraph: a free cell is "land" (value 1),
// a cell occupied by another net's already-drawn route is "water"
// (value 0). IntraNodeRoute iterates net by net, turning each solved
// trace into a dynamic obstacle for the next, per spec.md §4.5's
// "IntraNodeRouteSolver: generic N-trace solver ... dynamic obstacles".
// When a cell spans more than one board layer, routeOneNet first tries
// the net's home layer alone, then a layer-aware search that may switch
// layers through a via (itself an obstacle other nets must route
// around), and finally — if AllowJumpers is set and nothing else
// completes — bridges every contested run with an SMT jumper.
package highdensity

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"

	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/gridgraph"
)

// ErrNoRoute indicates a net's port points could not be connected inside
// the cell at the requested grid resolution, even after trying available
// via layer-changes and (if enabled) jumper insertion.
var ErrNoRoute = errors.New("highdensity: no route found within cell")

// Leg is one contiguous, single-layer run of a trace's path through the
// cell, in grid cell coordinates.
type Leg struct {
	Layer string
	Cells [][2]int
}

// Transition is the join between two consecutive legs: either a via
// layer-change at the shared cell, or a jumper bridging a gap on the
// same layer. len(Trace.Transitions) == len(Trace.Legs)-1.
type Transition struct {
	Kind string // "via" | "jumper"
	// Footprint names the SMT package used for a jumper bridge ("0603"
	// or "1206", picked by span length); empty for a via transition.
	Footprint string
}

// Trace is one net's port-point-to-port-point route inside a single mesh
// cell.
type Trace struct {
	ConnectionName string
	Legs           []Leg
	Transitions    []Transition
}

// Cells flattens every leg's cells into one slice: the full footprint
// this trace occupies, regardless of which layer or jumper bridges it.
// Used for dynamic-obstacle bookkeeping and by callers (hyper.go's
// length profile, tests) that only care about total path length.
func (t Trace) Cells() [][2]int {
	var out [][2]int
	for _, leg := range t.Legs {
		out = append(out, leg.Cells...)
	}

	return out
}

// Options tunes the per-cell grid resolution and layer-change/jumper
// behavior.
type Options struct {
	// Resolution is the number of grid columns/rows per cell side; higher
	// values trade solve time for finer clearance fidelity.
	Resolution int
	// Layers lists the board layer names usable inside this cell, home
	// layer first. Fewer than 2 entries disables via layer-changes: every
	// trace stays on its home layer, matching the original single-layer
	// solver.
	Layers []string
	// AllowJumpers permits SMT bridge insertion when neither a same-layer
	// nor a via-switched route exists, per spec.md §4.5's
	// IntraNodeSolverWithJumpers.
	AllowJumpers bool
	// ViaDiameterCells is a via's footprint radius in grid cells; that
	// many cells around a layer switch are reserved as obstacles on every
	// layer, per spec.md §4.5's "vias ... which themselves act as
	// obstacles". Defaults to 1.
	ViaDiameterCells int
}

// DefaultOptions returns a grid fine enough to resolve sub-cell geometry
// without becoming prohibitively slow on typical cell sizes.
func DefaultOptions() Options { return Options{Resolution: 24, ViaDiameterCells: 1} }

// cellIndex maps a board-space point within rect to a grid cell.
func cellIndex(rect geom.Rect, p geom.Point, resolution int) (int, int) {
	fx := (p.X - rect.MinX()) / rect.Width
	fy := (p.Y - rect.MinY()) / rect.Height
	x := int(fx * float64(resolution))
	y := int(fy * float64(resolution))
	if x < 0 {
		x = 0
	}
	if x >= resolution {
		x = resolution - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= resolution {
		y = resolution - 1
	}

	return x, y
}

// layerGrid is one layer's free/blocked occupancy, 1=free.
type layerGrid [][]int

func newFreeGrid(resolution int) layerGrid {
	g := make(layerGrid, resolution)
	for i := range g {
		g[i] = make([]int, resolution)
		for j := range g[i] {
			g[i][j] = 1
		}
	}

	return g
}

func (g layerGrid) free(x, y int) bool { return g[y][x] >= 1 }

// IntraNodeRoute draws one polyline per entry in portPoints (keyed by
// connection name, each a pair of board-space points to join), within
// rect, using dynamic obstacles: every solved trace occupies its cells
// for the remainder of this call, matching spec.md §4.5's
// IntraNodeRouteSolver.
func IntraNodeRoute(rect geom.Rect, portPoints map[string][2]geom.Point, opts Options) ([]Trace, error) {
	if opts.Resolution <= 0 {
		opts = DefaultOptions()
	}
	if opts.ViaDiameterCells <= 0 {
		opts.ViaDiameterCells = 1
	}
	layers := opts.Layers
	if len(layers) == 0 {
		layers = []string{"top"}
	}

	occupied := make([]layerGrid, len(layers))
	for z := range occupied {
		occupied[z] = newFreeGrid(opts.Resolution)
	}
	// viaBlocked marks cells consumed by a via body; a via occupies every
	// layer at its (x,y), so it is tracked once per position rather than
	// per layer.
	viaBlocked := newFreeGrid(opts.Resolution)
	for i := range viaBlocked {
		for j := range viaBlocked[i] {
			viaBlocked[i][j] = 0
		}
	}

	names := make([]string, 0, len(portPoints))
	for name := range portPoints {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Trace
	for _, name := range names {
		pair := portPoints[name]
		sx, sy := cellIndex(rect, pair[0], opts.Resolution)
		gx, gy := cellIndex(rect, pair[1], opts.Resolution)

		trace, err := routeOneNet(name, occupied, viaBlocked, layers, opts, [2]int{sx, sy}, [2]int{gx, gy})
		if err != nil {
			return nil, err
		}
		markTraceOccupied(occupied, viaBlocked, layers, opts.ViaDiameterCells, trace)
		out = append(out, trace)
	}

	return out, nil
}

// routeOneNet tries, in order: the net's home layer alone; if that fails
// and more than one layer is available, a layer-aware search that may
// via-switch through contested ground; if that also fails and jumpers
// are allowed, a same-layer route bridged over every contested run
// by an SMT jumper.
func routeOneNet(name string, occupied []layerGrid, viaBlocked layerGrid, layers []string, opts Options, start, goal [2]int) (Trace, error) {
	blocked := func(x, y int) bool { return !occupied[0].free(x, y) || viaBlocked[y][x] >= 1 }
	if path, err := singleRoute(opts.Resolution, blocked, start, goal); err == nil {
		return Trace{ConnectionName: name, Legs: []Leg{{Layer: layers[0], Cells: path}}}, nil
	}

	if len(layers) > 1 {
		if trace, err := routeWithVias(name, occupied, viaBlocked, layers, opts, start, goal); err == nil {
			return trace, nil
		}
	}

	if opts.AllowJumpers {
		if trace, err := routeWithJumper(name, occupied[0], viaBlocked, layers[0], opts, start, goal); err == nil {
			return trace, nil
		}
	}

	return Trace{}, fmt.Errorf("highdensity: net %q: %w", name, ErrNoRoute)
}

// viaState is one node of the layer-aware search: a grid cell on a
// specific layer index into layers.
type viaState struct {
	x, y, z int
}

type viaItem struct {
	state    viaState
	priority float64
	index    int
}

type viaQueue []*viaItem

func (q viaQueue) Len() int           { return len(q) }
func (q viaQueue) Less(i, j int) bool { return q[i].priority < q[j].priority }
func (q viaQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i]; q[i].index, q[j].index = i, j }
func (q *viaQueue) Push(x interface{}) {
	it := x.(*viaItem)
	it.index = len(*q)
	*q = append(*q, it)
}
func (q *viaQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]

	return it
}

// viaCost is the fixed extra cost of switching layers through a via,
// large enough that the search only pays it when every same-layer
// detour around a contested run is more expensive.
const viaCost = 8.0

// routeWithVias runs an A* over (x,y,layer) states: moving within a
// layer costs 1 and requires the arrival cell free on that layer; a
// layer switch at the same (x,y) costs viaCost and requires every cell
// within opts.ViaDiameterCells of (x,y) free (and not already a via) on
// every layer, per spec.md §4.5's via-as-obstacle requirement. Entry and
// exit are on layers[0] — the declared port points only carry one
// layer — so a solved path necessarily returns to the home layer before
// reaching goal.
func routeWithVias(name string, occupied []layerGrid, viaBlocked layerGrid, layers []string, opts Options, start, goal [2]int) (Trace, error) {
	resolution := opts.Resolution
	inBounds := func(x, y int) bool { return x >= 0 && x < resolution && y >= 0 && y < resolution }
	viaFits := func(x, y int) bool {
		r := opts.ViaDiameterCells
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				nx, ny := x+dx, y+dy
				if !inBounds(nx, ny) {
					return false
				}
				if viaBlocked[ny][nx] >= 1 {
					return false
				}
				for _, g := range occupied {
					if !g.free(nx, ny) {
						return false
					}
				}
			}
		}

		return true
	}

	startState := viaState{x: start[0], y: start[1], z: 0}
	goalState := viaState{x: goal[0], y: goal[1], z: 0}

	h := func(s viaState) float64 {
		dx, dy := float64(goal[0]-s.x), float64(goal[1]-s.y)

		return dx*dx + dy*dy
	}

	dist := map[viaState]float64{startState: 0}
	prev := map[viaState]viaState{}
	visited := map[viaState]bool{}

	pq := &viaQueue{{state: startState, priority: h(startState)}}
	heap.Init(pq)

	gg, err := gridgraph.NewGridGraph(newFreeGrid(resolution), gridgraph.GridOptions{LandThreshold: 1, Conn: gridgraph.Conn4})
	if err != nil {
		return Trace{}, fmt.Errorf("%w: %v", ErrNoRoute, err)
	}

	var reached viaState
	found := false
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*viaItem)
		cs := cur.state
		if visited[cs] {
			continue
		}
		visited[cs] = true

		if cs == goalState {
			reached = cs
			found = true

			break
		}

		for _, d := range gg.NeighborOffsets() {
			nx, ny := cs.x+d[0], cs.y+d[1]
			if !inBounds(nx, ny) {
				continue
			}
			ns := viaState{x: nx, y: ny, z: cs.z}
			if ns != startState && ns != goalState && (!occupied[cs.z].free(nx, ny) || viaBlocked[ny][nx] >= 1) {
				continue
			}
			nd := dist[cs] + 1
			if existing, ok := dist[ns]; !ok || nd < existing {
				dist[ns] = nd
				prev[ns] = cs
				heap.Push(pq, &viaItem{state: ns, priority: nd + h(ns)})
			}
		}

		// Layer-switch moves: try every other layer from the current cell.
		for z := range layers {
			if z == cs.z {
				continue
			}
			ns := viaState{x: cs.x, y: cs.y, z: z}
			if !viaFits(cs.x, cs.y) {
				continue
			}
			nd := dist[cs] + viaCost
			if existing, ok := dist[ns]; !ok || nd < existing {
				dist[ns] = nd
				prev[ns] = cs
				heap.Push(pq, &viaItem{state: ns, priority: nd + h(ns)})
			}
		}
	}

	if !found {
		return Trace{}, ErrNoRoute
	}

	// Reconstruct the full state path, then split into legs at via
	// transitions.
	var states []viaState
	cur := reached
	for {
		states = append([]viaState{cur}, states...)
		if cur == startState {
			break
		}
		p, ok := prev[cur]
		if !ok {
			break
		}
		cur = p
	}

	var legs []Leg
	var transitions []Transition
	legStart := 0
	for i := 1; i < len(states); i++ {
		if states[i].z != states[i-1].z {
			var cells [][2]int
			for _, s := range states[legStart:i] {
				cells = append(cells, [2]int{s.x, s.y})
			}
			legs = append(legs, Leg{Layer: layers[states[i-1].z], Cells: cells})
			transitions = append(transitions, Transition{Kind: "via"})
			legStart = i
		}
	}
	var lastCells [][2]int
	for _, s := range states[legStart:] {
		lastCells = append(lastCells, [2]int{s.x, s.y})
	}
	legs = append(legs, Leg{Layer: layers[states[len(states)-1].z], Cells: lastCells})

	return Trace{ConnectionName: name, Legs: legs, Transitions: transitions}, nil
}

// routeWithJumper finds an unconstrained ("ideal") path on layer ignoring
// other nets' occupancy, then bridges every contested run along it with
// an SMT jumper, per spec.md §4.5's IntraNodeSolverWithJumpers: a
// jumper's pads reserve their own two cells as an obstacle for later
// nets, but the span in between carries no copper for this net and so
// is not marked occupied.
func routeWithJumper(name string, occ layerGrid, viaBlocked layerGrid, layer string, opts Options, start, goal [2]int) (Trace, error) {
	always := func(x, y int) bool { return false }
	ideal, err := singleRoute(opts.Resolution, always, start, goal)
	if err != nil {
		return Trace{}, ErrNoRoute
	}

	blockedAt := func(c [2]int) bool {
		return !occ.free(c[0], c[1]) || viaBlocked[c[1]][c[0]] >= 1
	}

	var legs []Leg
	var transitions []Transition
	var legCells [][2]int
	i := 0
	for i < len(ideal) {
		c := ideal[i]
		if c != start && c != goal && blockedAt(c) {
			runStart := i
			for i < len(ideal) && blockedAt(ideal[i]) {
				i++
			}
			if len(legCells) == 0 || runStart == 0 {
				// A contested cell at the very start of the path cannot
				// be bridged (no prior pad to anchor the jumper to).
				return Trace{}, ErrNoRoute
			}
			legs = append(legs, Leg{Layer: layer, Cells: legCells})
			span := i - runStart
			footprint := "0603"
			if span > 3 {
				footprint = "1206"
			}
			transitions = append(transitions, Transition{Kind: "jumper", Footprint: footprint})
			legCells = nil

			continue
		}
		legCells = append(legCells, c)
		i++
	}
	if len(legCells) == 0 {
		return Trace{}, ErrNoRoute
	}
	legs = append(legs, Leg{Layer: layer, Cells: legCells})

	if len(transitions) == 0 {
		// The ideal path was never actually contested; routeOneNet only
		// reaches here after the plain single-layer search already
		// failed, so this should not happen, but fall through to the
		// caller's ErrNoRoute rather than claim a jumper that bridges
		// nothing.
		return Trace{}, ErrNoRoute
	}

	return Trace{ConnectionName: name, Legs: legs, Transitions: transitions}, nil
}

// markTraceOccupied marks every cell a solved trace used as occupied on
// its leg's layer, and reserves a via's footprint on every layer at each
// via transition's junction cell.
func markTraceOccupied(occupied []layerGrid, viaBlocked layerGrid, layers []string, viaRadius int, trace Trace) {
	layerIndex := make(map[string]int, len(layers))
	for i, l := range layers {
		layerIndex[l] = i
	}

	for i, leg := range trace.Legs {
		z := layerIndex[leg.Layer]
		for _, c := range leg.Cells {
			occupied[z][c[1]][c[0]] = 0
		}
		if i > 0 && i-1 < len(trace.Transitions) && trace.Transitions[i-1].Kind == "via" && len(leg.Cells) > 0 {
			cx, cy := leg.Cells[0][0], leg.Cells[0][1]
			for dy := -viaRadius; dy <= viaRadius; dy++ {
				for dx := -viaRadius; dx <= viaRadius; dx++ {
					nx, ny := cx+dx, cy+dy
					if ny < 0 || ny >= len(viaBlocked) || nx < 0 || nx >= len(viaBlocked[0]) {
						continue
					}
					viaBlocked[ny][nx] = 1
				}
			}
		}
		if i > 0 && i-1 < len(trace.Transitions) && trace.Transitions[i-1].Kind == "jumper" && len(leg.Cells) > 0 {
			cx, cy := leg.Cells[0][0], leg.Cells[0][1]
			if cy >= 0 && cy < len(viaBlocked) && cx >= 0 && cx < len(viaBlocked[0]) {
				viaBlocked[cy][cx] = 1
			}
		}
	}
}

type gridItem struct {
	x, y     int
	priority float64
	index    int
}

type gridQueue []*gridItem

func (q gridQueue) Len() int           { return len(q) }
func (q gridQueue) Less(i, j int) bool { return q[i].priority < q[j].priority }
func (q gridQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i]; q[i].index, q[j].index = i, j }
func (q *gridQueue) Push(x interface{}) {
	it := x.(*gridItem)
	it.index = len(*q)
	*q = append(*q, it)
}
func (q *gridQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]

	return it
}

// singleRoute runs a grid-local A* over a resolution×resolution grid
// (4-connected, per gridgraph's Conn4), treating a cell as blocked when
// blocked(x,y) is true, except the start/goal cells which are always
// traversable.
func singleRoute(resolution int, blocked func(x, y int) bool, start, goal [2]int) ([][2]int, error) {
	gg, err := gridgraph.NewGridGraph(newFreeGrid(resolution), gridgraph.GridOptions{LandThreshold: 1, Conn: gridgraph.Conn4})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRoute, err)
	}

	type key = [2]int
	dist := map[key]int{start: 0}
	prev := map[key]key{}
	visited := map[key]bool{}

	h := func(x, y int) float64 {
		dx, dy := float64(goal[0]-x), float64(goal[1]-y)

		return dx*dx + dy*dy
	}

	pq := &gridQueue{{x: start[0], y: start[1], priority: h(start[0], start[1])}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*gridItem)
		ck := key{cur.x, cur.y}
		if visited[ck] {
			continue
		}
		visited[ck] = true

		if ck == goal {
			return reconstructGrid(prev, start, goal), nil
		}

		for _, d := range gg.NeighborOffsets() {
			nx, ny := cur.x+d[0], cur.y+d[1]
			if !gg.InBounds(nx, ny) {
				continue
			}
			nk := key{nx, ny}
			if nk != start && nk != goal && blocked(nx, ny) {
				continue
			}
			nd := dist[ck] + 1
			if existing, ok := dist[nk]; !ok || nd < existing {
				dist[nk] = nd
				prev[nk] = ck
				heap.Push(pq, &gridItem{x: nx, y: ny, priority: float64(nd) + h(nx, ny)})
			}
		}
	}

	return nil, ErrNoRoute
}

func reconstructGrid(prev map[[2]int][2]int, start, goal [2]int) [][2]int {
	path := [][2]int{goal}
	cur := goal
	for cur != start {
		p, ok := prev[cur]
		if !ok {
			break
		}
		path = append([][2]int{p}, path...)
		cur = p
	}

	return path
}
