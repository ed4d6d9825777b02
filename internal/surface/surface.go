// Package surface is the composition root of one map editor: it owns the view filter
// and the visible nodes and cables, feeds pointer events to the mode controller and
// hands completed geometry to the stores.
package surface

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/metrics"
	"github.com/inqbatorchris/aimee-sub007/internal/mode"
	"github.com/inqbatorchris/aimee-sub007/internal/pathedit"
	"github.com/inqbatorchris/aimee-sub007/internal/selection"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

const (
	OpCreateNode       = "create_node"
	OpCreateCable      = "create_cable"
	OpUpdateCablePath  = "update_cable_path"
	OpBulkUpdateStatus = "bulk_update_status"
)

var (
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidField   = errors.New("invalid field")
	ErrUnknownCable   = errors.New("cable not on the map")
	ErrMissingCableID = errors.New("missing cable id")
	ErrEmptySelection = errors.New("selection is empty")
)

type Surface struct {
	log        zerolog.Logger
	ctrl       *mode.Controller
	stores     Stores
	dispatcher Dispatcher
	notifier   Notifier
	taxonomy   topology.Taxonomy
	metrics    *metrics.Metrics
	now        func() time.Time

	filter topology.NodeFilter
	nodes  []topology.Node
	cables []topology.Cable
}

type Options struct {
	Taxonomy topology.Taxonomy
	Metrics  *metrics.Metrics
	// Filter is the initial view filter.
	Filter topology.NodeFilter
}

func New(log zerolog.Logger, stores Stores, d Dispatcher, n Notifier, opts Options) *Surface {
	opts.Filter.Types = topology.NormalizeList(opts.Filter.Types)
	opts.Filter.Statuses = topology.NormalizeList(opts.Filter.Statuses)
	return &Surface{
		log:        log,
		ctrl:       mode.NewController(),
		stores:     stores,
		dispatcher: d,
		notifier:   n,
		taxonomy:   opts.Taxonomy.Normalized(),
		metrics:    opts.Metrics,
		now:        time.Now,
		filter:     opts.Filter,
	}
}

func (s *Surface) Filter() topology.NodeFilter { return s.filter }

// SetFilter replaces the view filter and reloads the visible nodes and cables. The
// current selection was made under the old filter and is dropped with it. If the
// reload fails nothing changes.
func (s *Surface) SetFilter(ctx context.Context, f topology.NodeFilter) error {
	f.Types = topology.NormalizeList(f.Types)
	f.Statuses = topology.NormalizeList(f.Statuses)
	nodes, cables, err := s.load(ctx, f)
	if err != nil {
		return err
	}
	s.filter = f
	s.nodes = nodes
	s.cables = cables
	s.ctrl.ClearSelection()
	return nil
}

// Refresh reloads visible nodes and the cables touching them.
func (s *Surface) Refresh(ctx context.Context) error {
	nodes, cables, err := s.load(ctx, s.filter)
	if err != nil {
		return err
	}
	s.nodes = nodes
	s.cables = cables
	return nil
}

func (s *Surface) load(ctx context.Context, f topology.NodeFilter) ([]topology.Node, []topology.Cable, error) {
	nodes, err := s.stores.ListNodes(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("list nodes: %w", err)
	}
	nodes = f.Apply(nodes)

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	cables, err := s.stores.ListCables(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("list cables: %w", err)
	}
	return nodes, cables, nil
}

func (s *Surface) Nodes() []topology.Node {
	out := make([]topology.Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

func (s *Surface) Cables() []topology.Cable {
	out := make([]topology.Cable, len(s.cables))
	copy(out, s.cables)
	return out
}

func (s *Surface) Mode() mode.Mode { return s.ctrl.Mode() }

func (s *Surface) EnterMode(m mode.Mode) {
	prev := s.ctrl.Mode()
	s.ctrl.EnterMode(m)
	if prev != m {
		s.log.Debug().Stringer("from", prev).Stringer("to", m).Msg("mode entered")
	}
}

func (s *Surface) ExitMode() {
	prev := s.ctrl.Mode()
	s.ctrl.ExitMode()
	s.log.Debug().Stringer("from", prev).Msg("mode exited")
}

func (s *Surface) MapClick(p geo.Point) (mode.Outcome, error) {
	out, err := s.ctrl.HandleMapClick(p)
	s.observe(out, err)
	return out, err
}

// MarkerClick interprets a click on a node marker. Clicks on nodes that are not visible
// under the current filter are ignored.
func (s *Surface) MarkerClick(nodeID string) (mode.Outcome, error) {
	if n, ok := s.node(nodeID); !ok || !s.filter.Match(n) {
		out := mode.Outcome{Kind: mode.OutcomeIgnored, Mode: s.ctrl.Mode(), NodeID: nodeID}
		s.observe(out, nil)
		return out, nil
	}
	out, err := s.ctrl.HandleMarkerClick(nodeID)
	s.observe(out, err)
	return out, err
}

func (s *Surface) observe(out mode.Outcome, err error) {
	outcome := string(out.Kind)
	if err != nil {
		outcome = "rejected"
	}
	s.metrics.IncEditorEvent(s.ctrl.Mode().String(), outcome)
}

// FinishPolygon classifies the visible nodes, never the unfiltered dataset.
func (s *Surface) FinishPolygon() (selection.Set, error) {
	candidates := s.filter.Apply(s.nodes)
	set, err := s.ctrl.FinishPolygon(candidates)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int("candidates", len(candidates)).Int("selected", set.Len()).Msg("polygon selection finished")
	return set, nil
}

func (s *Surface) ClearSelection() { s.ctrl.ClearSelection() }

func (s *Surface) Selection() selection.Set { return s.ctrl.Selection() }

// BulkUpdateStatus consumes the selection and dispatches the status change. The
// selection is cleared before the store answers.
func (s *Surface) BulkUpdateStatus(status string) ([]string, error) {
	status = topology.Normalize(status)
	if !s.taxonomy.IsStatus(status) {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidField, status)
	}
	if s.ctrl.Selection().Len() == 0 {
		return nil, ErrEmptySelection
	}

	ids := s.ctrl.ConsumeSelection().IDs()
	s.dispatch(OpBulkUpdateStatus, func(ctx context.Context) error {
		return s.stores.BulkUpdateStatus(ctx, ids, status)
	}, fmt.Sprintf("%d nodes set to %s", len(ids), status))
	return ids, nil
}

// NodeAttributes are the fields the node form collects after a placement.
type NodeAttributes struct {
	Type       string         `json:"type"`
	Status     string         `json:"status"`
	Address    *string        `json:"address,omitempty"`
	Notes      *string        `json:"notes,omitempty"`
	Photos     []string       `json:"photos,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ConfirmNode validates attrs against the pending placement and dispatches creation.
// Validation failures keep the draft so the form can be corrected.
func (s *Surface) ConfirmNode(attrs NodeAttributes) (topology.NodeCreate, error) {
	draft, ok := s.ctrl.PendingNode()
	if !ok {
		return topology.NodeCreate{}, mode.ErrNoPendingNode
	}

	nodeType := topology.Normalize(attrs.Type)
	if nodeType == "" {
		return topology.NodeCreate{}, fmt.Errorf("%w: type", ErrMissingField)
	}
	if !s.taxonomy.IsNodeType(nodeType) {
		return topology.NodeCreate{}, fmt.Errorf("%w: node type %q", ErrInvalidField, nodeType)
	}
	status := topology.Normalize(attrs.Status)
	if status == "" {
		status = topology.StatusPlanned
	}
	if !s.taxonomy.IsStatus(status) {
		return topology.NodeCreate{}, fmt.Errorf("%w: status %q", ErrInvalidField, status)
	}

	if _, err := s.ctrl.ConsumeNodeDraft(); err != nil {
		return topology.NodeCreate{}, err
	}
	arg := topology.NodeCreate{
		Type:       nodeType,
		Status:     status,
		Position:   draft.Position,
		Address:    trimmedOrNil(attrs.Address),
		Notes:      trimmedOrNil(attrs.Notes),
		Photos:     attrs.Photos,
		Attributes: attrs.Attributes,
	}
	s.dispatch(OpCreateNode, func(ctx context.Context) error {
		n, err := s.stores.CreateNode(ctx, arg)
		if err == nil {
			s.log.Info().Str("node_id", n.ID).Str("type", n.Type).Msg("node created")
		}
		return err
	}, fmt.Sprintf("%s placed at %s", nodeType, draft.Position))
	return arg, nil
}

func (s *Surface) DiscardNodeDraft() { s.ctrl.DiscardNodeDraft() }

// CableAttributes are the fields the cable form collects after routing.
type CableAttributes struct {
	FiberCount int    `json:"fiber_count"`
	Type       string `json:"type"`
	Status     string `json:"status"`
}

// ConfirmCable validates attrs against the routed pair and dispatches creation. The
// initial path runs straight between the two node positions.
func (s *Surface) ConfirmCable(attrs CableAttributes) (topology.CableCreate, error) {
	draft, ok := s.ctrl.PendingCable()
	if !ok {
		return topology.CableCreate{}, mode.ErrNoPendingCable
	}

	cableType := topology.Normalize(attrs.Type)
	if cableType == "" {
		return topology.CableCreate{}, fmt.Errorf("%w: type", ErrMissingField)
	}
	if !s.taxonomy.IsCableType(cableType) {
		return topology.CableCreate{}, fmt.Errorf("%w: cable type %q", ErrInvalidField, cableType)
	}
	if attrs.FiberCount <= 0 {
		return topology.CableCreate{}, fmt.Errorf("%w: fiber_count", ErrMissingField)
	}
	status := topology.Normalize(attrs.Status)
	if status == "" {
		status = topology.StatusPlanned
	}
	if !s.taxonomy.IsStatus(status) {
		return topology.CableCreate{}, fmt.Errorf("%w: status %q", ErrInvalidField, status)
	}

	start, ok := s.node(draft.StartNodeID)
	if !ok {
		return topology.CableCreate{}, fmt.Errorf("%w: start node %s", topology.ErrNotFound, draft.StartNodeID)
	}
	end, ok := s.node(draft.EndNodeID)
	if !ok {
		return topology.CableCreate{}, fmt.Errorf("%w: end node %s", topology.ErrNotFound, draft.EndNodeID)
	}

	if _, err := s.ctrl.ConsumeCableDraft(); err != nil {
		return topology.CableCreate{}, err
	}
	arg := topology.CableCreate{
		StartNodeID: start.ID,
		EndNodeID:   end.ID,
		FiberCount:  attrs.FiberCount,
		Type:        cableType,
		Status:      status,
		Path:        []geo.Point{start.Position, end.Position},
	}
	s.dispatch(OpCreateCable, func(ctx context.Context) error {
		c, err := s.stores.CreateCable(ctx, arg)
		if err == nil {
			s.log.Info().Str("cable_id", c.ID).Str("start", c.StartNodeID).Str("end", c.EndNodeID).Msg("cable created")
		}
		return err
	}, fmt.Sprintf("%d-fibre %s cable routed", attrs.FiberCount, cableType))
	return arg, nil
}

func (s *Surface) DiscardCableDraft() { s.ctrl.DiscardCableDraft() }

func (s *Surface) BeginCableEdit(cableID string) error {
	cableID = strings.TrimSpace(cableID)
	if cableID == "" {
		return ErrMissingCableID
	}
	c, ok := s.cable(cableID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCable, cableID)
	}
	return s.ctrl.BeginCableEdit(c)
}

func (s *Surface) MoveWaypoint(index int, p geo.Point) error {
	return s.ctrl.PathEditor().MoveWaypoint(index, p)
}

// InsertWaypoint adds p before the end waypoint, or into the closest segment when
// nearest is set.
func (s *Surface) InsertWaypoint(p geo.Point, nearest bool) (int, error) {
	if nearest {
		return s.ctrl.PathEditor().InsertWaypointNearest(p)
	}
	return s.ctrl.PathEditor().InsertWaypoint(p)
}

func (s *Surface) RemoveWaypoint(index int) error {
	return s.ctrl.PathEditor().RemoveWaypoint(index)
}

// SaveCableEdit commits the working path. The cached cable is updated right away and
// the store write is dispatched only when the path changed.
func (s *Surface) SaveCableEdit() (pathedit.PathDelta, error) {
	delta, err := s.ctrl.PathEditor().Commit()
	if err != nil {
		return pathedit.PathDelta{}, err
	}
	if !delta.Changed {
		return delta, nil
	}

	for i := range s.cables {
		if s.cables[i].ID == delta.CableID {
			s.cables[i].Path = geo.Clone(delta.Waypoints)
		}
	}
	waypoints := geo.Clone(delta.Waypoints)
	s.dispatch(OpUpdateCablePath, func(ctx context.Context) error {
		return s.stores.UpdateCablePath(ctx, delta.CableID, waypoints)
	}, fmt.Sprintf("cable path saved (%d waypoints)", len(waypoints)))
	return delta, nil
}

func (s *Surface) CancelCableEdit() ([]geo.Point, error) {
	return s.ctrl.PathEditor().Cancel()
}

// dispatch hands fn to the dispatcher and reports the result to the notifier.
func (s *Surface) dispatch(op string, fn func(ctx context.Context) error, success string) {
	done := func(err error) {
		if err != nil {
			s.notify(LevelError, op, fmt.Sprintf("%s failed: %v", strings.ReplaceAll(op, "_", " "), err))
			return
		}
		s.notify(LevelInfo, op, success)
	}
	if err := s.dispatcher.Dispatch(op, fn, done); err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("mutation not dispatched")
		done(err)
	}
}

func (s *Surface) notify(level Level, op, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(Notification{Level: level, Op: op, Message: msg, At: s.now()})
}

func (s *Surface) node(id string) (topology.Node, bool) {
	for _, n := range s.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return topology.Node{}, false
}

func (s *Surface) cable(id string) (topology.Cable, bool) {
	for _, c := range s.cables {
		if c.ID == id {
			return c, true
		}
	}
	return topology.Cable{}, false
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
