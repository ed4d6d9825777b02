package surface

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/mode"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

// State is what the rendering layer needs to draw the editor. Flags are derived from
// the controller on every call.
type State struct {
	Mode            mode.Mode           `json:"mode"`
	CableRouting    bool                `json:"cable_routing"`
	Drawing         bool                `json:"drawing"`
	CableEditMode   bool                `json:"cable_edit_mode"`
	Filter          topology.NodeFilter `json:"filter"`
	Vertices        []geo.Point         `json:"vertices"`
	Selection       []string            `json:"selection"`
	RouteStart      string              `json:"route_start,omitempty"`
	PendingNode     *mode.NodeDraft     `json:"pending_node,omitempty"`
	PendingCable    *mode.CableDraft    `json:"pending_cable,omitempty"`
	EditingCableID  string              `json:"editing_cable_id,omitempty"`
	EditedWaypoints []geo.Point         `json:"edited_waypoints,omitempty"`
	VisibleNodes    int                 `json:"visible_nodes"`
	VisibleCables   int                 `json:"visible_cables"`
}

func (s *Surface) State() State {
	st := State{
		Mode:          s.ctrl.Mode(),
		CableRouting:  s.ctrl.IsRouting(),
		Drawing:       s.ctrl.IsDrawing(),
		CableEditMode: s.ctrl.CableEditMode(),
		Filter:        s.filter,
		Vertices:      s.ctrl.Vertices(),
		Selection:     s.ctrl.Selection().IDs(),
		RouteStart:    s.ctrl.RouteStart(),
		VisibleNodes:  len(s.nodes),
		VisibleCables: len(s.cables),
	}
	if st.Vertices == nil {
		st.Vertices = []geo.Point{}
	}
	if d, ok := s.ctrl.PendingNode(); ok {
		st.PendingNode = &d
	}
	if d, ok := s.ctrl.PendingCable(); ok {
		st.PendingCable = &d
	}
	if pe := s.ctrl.PathEditor(); pe.Active() {
		st.EditingCableID = pe.CableID()
		st.EditedWaypoints = pe.Working()
	}
	return st
}

// Geometry renders the transient editor geometry (drawing, selected nodes, routed
// endpoints, path under edit) as a GeoJSON feature collection.
func (s *Surface) Geometry() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	if v := s.ctrl.Vertices(); len(v) > 0 {
		fc.AddFeature(geo.PolygonFeature(v, map[string]any{"role": "selection_polygon"}))
	}

	sel := s.ctrl.Selection()
	for _, n := range s.nodes {
		if sel.Contains(n.ID) {
			fc.AddFeature(geo.PointFeature(n.Position, map[string]any{"role": "selected_node", "node_id": n.ID}))
		}
	}

	if start := s.ctrl.RouteStart(); start != "" {
		if n, ok := s.node(start); ok {
			fc.AddFeature(geo.PointFeature(n.Position, map[string]any{"role": "route_start", "node_id": n.ID}))
		}
	}
	if d, ok := s.ctrl.PendingCable(); ok {
		start, okStart := s.node(d.StartNodeID)
		end, okEnd := s.node(d.EndNodeID)
		if okStart && okEnd {
			fc.AddFeature(geo.PathFeature([]geo.Point{start.Position, end.Position}, map[string]any{"role": "route_preview"}))
		}
	}
	if d, ok := s.ctrl.PendingNode(); ok {
		fc.AddFeature(geo.PointFeature(d.Position, map[string]any{"role": "node_placement"}))
	}

	if pe := s.ctrl.PathEditor(); pe.Active() {
		working := pe.Working()
		fc.AddFeature(geo.PathFeature(working, map[string]any{
			"role":     "cable_edit",
			"cable_id": pe.CableID(),
			"length_m": geo.PathLength(working),
		}))
		for i, p := range working {
			fc.AddFeature(geo.PointFeature(p, map[string]any{
				"role":     "waypoint",
				"index":    i,
				"endpoint": i == 0 || i == len(working)-1,
			}))
		}
	}
	return fc
}
