// Package selection tracks the set of selected nodes on the map and the polygon being
// drawn to produce it. Only one selection strategy is armed at a time.
package selection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

const MinPolygonVertices = 3

var (
	ErrTooFewVertices = errors.New("too few polygon vertices")
	ErrWrongStrategy  = errors.New("selection strategy not armed")
	ErrNotDrawing     = errors.New("no polygon is being drawn")
)

type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyPolygon
	StrategyClick
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyPolygon:
		return "polygon"
	case StrategyClick:
		return "click"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Set is a set of node IDs.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Len() int { return len(s) }

// IDs returns the members sorted.
func (s Set) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

type Engine struct {
	strategy Strategy
	drawing  bool
	polygon  []geo.Point
	selected Set
}

func NewEngine() *Engine {
	return &Engine{selected: Set{}}
}

// Arm switches strategy. Arming always clears the selection and any drawing, and arming
// the polygon strategy opens a fresh drawing.
func (e *Engine) Arm(s Strategy) {
	e.strategy = s
	e.Clear()
}

func (e *Engine) Strategy() Strategy { return e.strategy }

// Drawing reports whether a polygon is open for new vertices.
func (e *Engine) Drawing() bool { return e.drawing }

// StartPolygon discards the current drawing and selection and opens a new drawing.
func (e *Engine) StartPolygon() error {
	if e.strategy != StrategyPolygon {
		return fmt.Errorf("start polygon: %w (armed: %s)", ErrWrongStrategy, e.strategy)
	}
	e.polygon = nil
	e.selected = Set{}
	e.drawing = true
	return nil
}

func (e *Engine) AddVertex(p geo.Point) error {
	if e.strategy != StrategyPolygon {
		return fmt.Errorf("add vertex: %w (armed: %s)", ErrWrongStrategy, e.strategy)
	}
	if !e.drawing {
		return ErrNotDrawing
	}
	if err := geo.Validate(p); err != nil {
		return err
	}
	e.polygon = append(e.polygon, p)
	return nil
}

// FinishPolygon closes the drawing and selects every candidate inside it. With fewer
// than MinPolygonVertices vertices it fails and leaves the drawing untouched.
// Callers must pass only the nodes that are visible under the active filters.
func (e *Engine) FinishPolygon(candidates []topology.Node) (Set, error) {
	if e.strategy != StrategyPolygon {
		return nil, fmt.Errorf("finish polygon: %w (armed: %s)", ErrWrongStrategy, e.strategy)
	}
	if !e.drawing {
		return nil, ErrNotDrawing
	}
	if len(e.polygon) < MinPolygonVertices {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooFewVertices, len(e.polygon), MinPolygonVertices)
	}

	ring := geo.ClosePolygon(e.polygon)
	selected := Set{}
	for _, n := range candidates {
		if geo.PointInPolygon(n.Position, ring) {
			selected[n.ID] = struct{}{}
		}
	}

	e.selected = selected
	e.polygon = nil
	e.drawing = false
	return selected.clone(), nil
}

// ToggleClick flips membership of nodeID and reports whether it is now selected.
func (e *Engine) ToggleClick(nodeID string) (bool, error) {
	if e.strategy != StrategyClick {
		return false, fmt.Errorf("toggle: %w (armed: %s)", ErrWrongStrategy, e.strategy)
	}
	if e.selected.Contains(nodeID) {
		delete(e.selected, nodeID)
		return false, nil
	}
	e.selected[nodeID] = struct{}{}
	return true, nil
}

// Clear empties the selection and the drawing. The armed strategy is kept, so a polygon
// strategy stays ready for the next drawing.
func (e *Engine) Clear() {
	e.selected = Set{}
	e.polygon = nil
	e.drawing = e.strategy == StrategyPolygon
}

// Consume hands the selection to a bulk operation and clears it.
func (e *Engine) Consume() Set {
	out := e.selected
	e.selected = Set{}
	return out
}

func (e *Engine) Selection() Set { return e.selected.clone() }

func (e *Engine) Vertices() []geo.Point { return geo.Clone(e.polygon) }
