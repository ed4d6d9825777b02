package topology

import (
	"errors"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
)

var ErrNotFound = errors.New("not found")

type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Status     string         `json:"status"`
	Position   geo.Point      `json:"position"`
	Address    *string        `json:"address,omitempty"`
	Notes      *string        `json:"notes,omitempty"`
	Photos     []string       `json:"photos,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Cable connects two nodes. Path always starts at the start node and ends at the end
// node as of the last path commit.
type Cable struct {
	ID          string      `json:"id"`
	StartNodeID string      `json:"start_node_id"`
	EndNodeID   string      `json:"end_node_id"`
	FiberCount  int         `json:"fiber_count"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	Path        []geo.Point `json:"path"`
}

type NodeCreate struct {
	Type       string
	Status     string
	Position   geo.Point
	Address    *string
	Notes      *string
	Photos     []string
	Attributes map[string]any
}

type CableCreate struct {
	StartNodeID string
	EndNodeID   string
	FiberCount  int
	Type        string
	Status      string
	Path        []geo.Point
}

// NodeFilter is the set of view filters applied to the map. Empty fields match
// everything.
type NodeFilter struct {
	Types    []string `json:"types,omitempty" yaml:"types"`
	Statuses []string `json:"statuses,omitempty" yaml:"statuses"`
	Bounds   *Bounds  `json:"bounds,omitempty" yaml:"bounds"`
}

type Bounds struct {
	SouthWest geo.Point `json:"south_west" yaml:"south_west"`
	NorthEast geo.Point `json:"north_east" yaml:"north_east"`
}

func (b Bounds) Contains(p geo.Point) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat && p.Lon >= b.SouthWest.Lon && p.Lon <= b.NorthEast.Lon
}

// Match reports whether n passes every active filter.
func (f NodeFilter) Match(n Node) bool {
	if len(f.Types) > 0 && !containsNormalized(f.Types, n.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !containsNormalized(f.Statuses, n.Status) {
		return false
	}
	if f.Bounds != nil && !f.Bounds.Contains(n.Position) {
		return false
	}
	return true
}

// Apply returns the nodes that match f, preserving order.
func (f NodeFilter) Apply(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if f.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

func containsNormalized(values []string, v string) bool {
	v = Normalize(v)
	for _, candidate := range values {
		if Normalize(candidate) == v {
			return true
		}
	}
	return false
}
