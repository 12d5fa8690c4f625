// Package netlist defines the explicit, tagged schemas for the router's
// input (SimpleRouteJson) and output (SimplifiedPcbTrace), replacing the
// "any"-typed JSON blobs the distilled specification left implicit
// (spec.md §9 REDESIGN FLAG). Every field is validated with
// github.com/go-playground/validator/v10 struct tags so malformed input is
// caught before any solver phase runs (spec.md §7, error class 1).
package netlist

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Bounds is the board's rectangular outline in board units.
type Bounds struct {
	MinX float64 `json:"minX" yaml:"minX"`
	MaxX float64 `json:"maxX" yaml:"maxX" validate:"gtfield=MinX"`
	MinY float64 `json:"minY" yaml:"minY"`
	MaxY float64 `json:"maxY" yaml:"maxY" validate:"gtfield=MinY"`
}

// Width returns MaxX-MinX.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY-MinY.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// XY is a bare 2-D coordinate used in outline points and obstacle centers.
type XY struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Obstacle is a rectangular keepout region on one or more layers, per
// spec.md §3.
type Obstacle struct {
	ObstacleID         string   `json:"obstacleId,omitempty" yaml:"obstacleId,omitempty"`
	Type               string   `json:"type" yaml:"type" validate:"eq=rect"`
	Layers             []string `json:"layers" yaml:"layers" validate:"required,min=1"`
	ZLayers            []int    `json:"zLayers,omitempty" yaml:"zLayers,omitempty"`
	Center             XY       `json:"center" yaml:"center"`
	Width              float64  `json:"width" yaml:"width" validate:"gt=0"`
	Height             float64  `json:"height" yaml:"height" validate:"gt=0"`
	ConnectedTo        []string `json:"connectedTo,omitempty" yaml:"connectedTo,omitempty"`
	NetIsAssignable    bool     `json:"netIsAssignable,omitempty" yaml:"netIsAssignable,omitempty"`
	OffBoardConnectsTo []string `json:"offBoardConnectsTo,omitempty" yaml:"offBoardConnectsTo,omitempty"`
}

// PointToConnect is one endpoint of a Connection: either single-layer
// (Layer set) or multi-layer (Layers set).
type PointToConnect struct {
	X          float64  `json:"x" yaml:"x"`
	Y          float64  `json:"y" yaml:"y"`
	Layer      string   `json:"layer,omitempty" yaml:"layer,omitempty"`
	Layers     []string `json:"layers,omitempty" yaml:"layers,omitempty"`
	PointID    string   `json:"pointId,omitempty" yaml:"pointId,omitempty"`
	PCBPortID  string   `json:"pcb_port_id,omitempty" yaml:"pcb_port_id,omitempty"`
}

// LayerNames returns the set of layer names this point is valid on: either
// the single Layer, or the full Layers set.
func (p PointToConnect) LayerNames() []string {
	if p.Layer != "" {
		return []string{p.Layer}
	}

	return p.Layers
}

// Connection is a net: an electrical equivalence class of points that must
// be joined by copper, per spec.md §3.
type Connection struct {
	Name                  string           `json:"name" yaml:"name" validate:"required"`
	RootConnectionName    string           `json:"rootConnectionName,omitempty" yaml:"rootConnectionName,omitempty"`
	MergedConnectionNames []string         `json:"mergedConnectionNames,omitempty" yaml:"mergedConnectionNames,omitempty"`
	IsOffBoard            bool             `json:"isOffBoard,omitempty" yaml:"isOffBoard,omitempty"`
	NetConnectionName     string           `json:"netConnectionName,omitempty" yaml:"netConnectionName,omitempty"`
	NominalTraceWidth     float64          `json:"nominalTraceWidth,omitempty" yaml:"nominalTraceWidth,omitempty"`
	PointsToConnect       []PointToConnect `json:"pointsToConnect" yaml:"pointsToConnect" validate:"required,min=1"`
}

// SimpleRouteJson is the router's canonical input, per spec.md §6.
type SimpleRouteJson struct {
	LayerCount          int          `json:"layerCount" yaml:"layerCount" validate:"gte=1"`
	MinTraceWidth       float64      `json:"minTraceWidth" yaml:"minTraceWidth" validate:"gt=0"`
	NominalTraceWidth   float64      `json:"nominalTraceWidth,omitempty" yaml:"nominalTraceWidth,omitempty"`
	MinViaDiameter      float64      `json:"minViaDiameter,omitempty" yaml:"minViaDiameter,omitempty"`
	DefaultObstacleMargin float64    `json:"defaultObstacleMargin,omitempty" yaml:"defaultObstacleMargin,omitempty"`
	Bounds              Bounds       `json:"bounds" yaml:"bounds"`
	Obstacles           []Obstacle   `json:"obstacles" yaml:"obstacles"`
	Connections         []Connection `json:"connections" yaml:"connections" validate:"required,min=1"`
	Outline             []XY         `json:"outline,omitempty" yaml:"outline,omitempty"`
	AllowJumpers        bool         `json:"allowJumpers,omitempty" yaml:"allowJumpers,omitempty"`
}

// EffectiveNominalTraceWidth returns NominalTraceWidth if set, else
// MinTraceWidth, matching the "nominal defaults to minimum" rule implied by
// spec.md §4.6.
func (s *SimpleRouteJson) EffectiveNominalTraceWidth() float64 {
	if s.NominalTraceWidth > 0 {
		return s.NominalTraceWidth
	}

	return s.MinTraceWidth
}

var validatorInstance = validator.New()

// Validate checks srj against its struct-tag rules and the cross-field
// invariants spec.md §7 class 1 requires before any solver phase runs:
// every obstacle lies within bounds, and every connection point is on a
// declared layer.
func (s *SimpleRouteJson) Validate() error {
	if err := validatorInstance.Struct(s); err != nil {
		return fmt.Errorf("netlist: invalid SimpleRouteJson: %w", err)
	}
	for _, o := range s.Obstacles {
		if o.Center.X-o.Width/2 < s.Bounds.MinX || o.Center.X+o.Width/2 > s.Bounds.MaxX ||
			o.Center.Y-o.Height/2 < s.Bounds.MinY || o.Center.Y+o.Height/2 > s.Bounds.MaxY {
			return fmt.Errorf("netlist: obstacle %q lies outside board bounds", o.ObstacleID)
		}
	}
	for _, c := range s.Connections {
		for _, p := range c.PointsToConnect {
			if len(p.LayerNames()) == 0 {
				return fmt.Errorf("netlist: point in connection %q has no layer", c.Name)
			}
		}
	}

	return nil
}

// Wire is one straight copper segment of a route, on a single layer.
type Wire struct {
	X, Y  float64 `json:"x" yaml:"x"`
	Width float64 `json:"width" yaml:"width"`
	Layer string  `json:"layer" yaml:"layer"`
}

// Via is a layer-change interconnect at a fixed (x,y).
type Via struct {
	X, Y      float64 `json:"x" yaml:"x"`
	FromLayer string  `json:"from_layer" yaml:"from_layer"`
	ToLayer   string  `json:"to_layer" yaml:"to_layer"`
}

// Jumper is an SMT 0-ohm bridge allowing a trace to cross another on the
// same layer.
type Jumper struct {
	Start    XY     `json:"start" yaml:"start"`
	End      XY     `json:"end" yaml:"end"`
	Footprint string `json:"footprint" yaml:"footprint"`
	Layer    string  `json:"layer" yaml:"layer"`
}

// RouteSegment is one element of a trace's ordered route: exactly one of
// Wire, Via, or Jumper is non-nil, discriminated by Kind.
type RouteSegment struct {
	Kind   string  `json:"kind" yaml:"kind"` // "wire" | "via" | "jumper"
	Wire   *Wire   `json:"wire,omitempty" yaml:"wire,omitempty"`
	Via    *Via    `json:"via,omitempty" yaml:"via,omitempty"`
	Jumper *Jumper `json:"jumper,omitempty" yaml:"jumper,omitempty"`
}

// SimplifiedPcbTrace is one net's finished, ordered copper route, per
// spec.md §6.
type SimplifiedPcbTrace struct {
	PcbTraceID     string         `json:"pcb_trace_id" yaml:"pcb_trace_id"`
	ConnectionName string         `json:"connection_name" yaml:"connection_name"`
	Route          []RouteSegment `json:"route" yaml:"route"`
}
