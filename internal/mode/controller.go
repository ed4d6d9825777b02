package mode

import (
	"errors"
	"fmt"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/pathedit"
	"github.com/inqbatorchris/aimee-sub007/internal/selection"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

var (
	ErrNoPendingNode  = errors.New("no node placement pending")
	ErrNoPendingCable = errors.New("no cable route pending")
)

type OutcomeKind string

const (
	OutcomeIgnored          OutcomeKind = "ignored"
	OutcomeNodeDraft        OutcomeKind = "node_draft"
	OutcomeRouteStarted     OutcomeKind = "route_started"
	OutcomeRouteCleared     OutcomeKind = "route_cleared"
	OutcomeCableDraft       OutcomeKind = "cable_draft"
	OutcomeVertexAdded      OutcomeKind = "vertex_added"
	OutcomeSelectionToggled OutcomeKind = "selection_toggled"
)

// Outcome describes how the controller interpreted one event.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	Mode       Mode        `json:"mode"`
	NodeDraft  *NodeDraft  `json:"node_draft,omitempty"`
	CableDraft *CableDraft `json:"cable_draft,omitempty"`
	NodeID     string      `json:"node_id,omitempty"`
	Selected   bool        `json:"selected,omitempty"`
	Vertices   int         `json:"vertices,omitempty"`
}

// NodeDraft is a node placement waiting for its attributes.
type NodeDraft struct {
	Position geo.Point `json:"position"`
}

// CableDraft is a routed pair of nodes waiting for cable attributes.
type CableDraft struct {
	StartNodeID string `json:"start_node_id"`
	EndNodeID   string `json:"end_node_id"`
}

type Controller struct {
	mode       Mode
	sel        *selection.Engine
	path       *pathedit.Editor
	routeStart string
	routeEnd   string
	nodeDraft  *NodeDraft
}

func NewController() *Controller {
	return &Controller{
		mode: Idle,
		sel:  selection.NewEngine(),
		path: pathedit.New(),
	}
}

func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) IsRouting() bool { return c.mode == CableRouting }

func (c *Controller) IsDrawing() bool { return c.mode == PolygonSelect && c.sel.Drawing() }

func (c *Controller) CableEditMode() bool { return c.path.Active() }

// EnterMode switches to m. Re-entering the current mode is a no-op. An invalid Mode is
// a programming error and panics.
func (c *Controller) EnterMode(m Mode) {
	if !m.Valid() {
		panic(fmt.Sprintf("mode: enter %s", m))
	}
	if m == c.mode {
		return
	}
	c.teardown()
	c.mode = m
	switch m {
	case PolygonSelect:
		c.sel.Arm(selection.StrategyPolygon)
	case ClickSelect:
		c.sel.Arm(selection.StrategyClick)
	}
}

// ExitMode returns to Idle, discarding all transient state.
func (c *Controller) ExitMode() {
	c.teardown()
	c.mode = Idle
}

func (c *Controller) teardown() {
	c.sel.Arm(selection.StrategyNone)
	c.routeStart = ""
	c.routeEnd = ""
	c.nodeDraft = nil
	if c.path.Active() {
		_, _ = c.path.Cancel()
	}
}

func (c *Controller) HandleMapClick(p geo.Point) (Outcome, error) {
	switch c.mode {
	case AddNode:
		if err := geo.Validate(p); err != nil {
			return Outcome{}, err
		}
		c.nodeDraft = &NodeDraft{Position: p}
		draft := *c.nodeDraft
		return Outcome{Kind: OutcomeNodeDraft, Mode: c.mode, NodeDraft: &draft}, nil

	case PolygonSelect:
		if !c.sel.Drawing() {
			if err := c.sel.StartPolygon(); err != nil {
				return Outcome{}, err
			}
		}
		if err := c.sel.AddVertex(p); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeVertexAdded, Mode: c.mode, Vertices: len(c.sel.Vertices())}, nil

	default:
		return Outcome{Kind: OutcomeIgnored, Mode: c.mode}, nil
	}
}

func (c *Controller) HandleMarkerClick(nodeID string) (Outcome, error) {
	switch c.mode {
	case CableRouting:
		return c.route(nodeID), nil

	case ClickSelect:
		on, err := c.sel.ToggleClick(nodeID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeSelectionToggled, Mode: c.mode, NodeID: nodeID, Selected: on}, nil

	default:
		return Outcome{Kind: OutcomeIgnored, Mode: c.mode, NodeID: nodeID}, nil
	}
}

func (c *Controller) route(nodeID string) Outcome {
	switch {
	case c.routeStart == "":
		c.routeStart = nodeID
		return Outcome{Kind: OutcomeRouteStarted, Mode: c.mode, NodeID: nodeID}
	case c.routeStart == nodeID:
		c.routeStart = ""
		c.routeEnd = ""
		return Outcome{Kind: OutcomeRouteCleared, Mode: c.mode, NodeID: nodeID}
	default:
		c.routeEnd = nodeID
		return Outcome{
			Kind:       OutcomeCableDraft,
			Mode:       c.mode,
			NodeID:     nodeID,
			CableDraft: &CableDraft{StartNodeID: c.routeStart, EndNodeID: c.routeEnd},
		}
	}
}

// FinishPolygon classifies candidates against the drawing. On failure the drawing is
// left as it was so the operator can keep adding vertices.
func (c *Controller) FinishPolygon(candidates []topology.Node) (selection.Set, error) {
	if c.mode != PolygonSelect {
		return nil, fmt.Errorf("finish polygon in %s: %w", c.mode, selection.ErrWrongStrategy)
	}
	return c.sel.FinishPolygon(candidates)
}

// ClearSelection drops the selection and any drawing without leaving the mode.
func (c *Controller) ClearSelection() {
	c.sel.Clear()
}

func (c *Controller) Selection() selection.Set { return c.sel.Selection() }

// ConsumeSelection hands the selection to a bulk operation.
func (c *Controller) ConsumeSelection() selection.Set { return c.sel.Consume() }

func (c *Controller) Vertices() []geo.Point { return c.sel.Vertices() }

func (c *Controller) PendingNode() (NodeDraft, bool) {
	if c.nodeDraft == nil {
		return NodeDraft{}, false
	}
	return *c.nodeDraft, true
}

// ConsumeNodeDraft takes the pending placement. AddNode mode stays active.
func (c *Controller) ConsumeNodeDraft() (NodeDraft, error) {
	d, ok := c.PendingNode()
	if !ok {
		return NodeDraft{}, ErrNoPendingNode
	}
	c.nodeDraft = nil
	return d, nil
}

func (c *Controller) DiscardNodeDraft() {
	c.nodeDraft = nil
}

func (c *Controller) RouteStart() string { return c.routeStart }

func (c *Controller) PendingCable() (CableDraft, bool) {
	if c.routeStart == "" || c.routeEnd == "" {
		return CableDraft{}, false
	}
	return CableDraft{StartNodeID: c.routeStart, EndNodeID: c.routeEnd}, true
}

// ConsumeCableDraft takes the routed pair and resets routing for the next cable.
// CableRouting mode stays active.
func (c *Controller) ConsumeCableDraft() (CableDraft, error) {
	d, ok := c.PendingCable()
	if !ok {
		return CableDraft{}, ErrNoPendingCable
	}
	c.routeStart = ""
	c.routeEnd = ""
	return d, nil
}

func (c *Controller) DiscardCableDraft() {
	c.routeStart = ""
	c.routeEnd = ""
}

// BeginCableEdit returns to Idle and starts editing cable's path. A cable that cannot
// be edited leaves the current mode and any running edit untouched.
func (c *Controller) BeginCableEdit(cable topology.Cable) error {
	if c.path.Active() && c.path.CableID() == cable.ID {
		return nil
	}
	next := pathedit.New()
	if err := next.Begin(cable); err != nil {
		return err
	}
	c.ExitMode()
	c.path = next
	return nil
}

// PathEditor exposes the waypoint operations of the active cable edit.
func (c *Controller) PathEditor() *pathedit.Editor { return c.path }
