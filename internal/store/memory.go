package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

// Memory is an in-process store used when no database is configured.
type Memory struct {
	mu     sync.RWMutex
	nodes  map[string]topology.Node
	cables map[string]topology.Cable
	// insertion order, so listings are stable
	nodeOrder  []string
	cableOrder []string
}

func NewMemory() *Memory {
	return &Memory{
		nodes:  make(map[string]topology.Node),
		cables: make(map[string]topology.Cable),
	}
}

func (m *Memory) CreateNode(ctx context.Context, arg topology.NodeCreate) (topology.Node, error) {
	if err := ctx.Err(); err != nil {
		return topology.Node{}, err
	}
	if err := geo.Validate(arg.Position); err != nil {
		return topology.Node{}, fmt.Errorf("create node: %w", err)
	}
	n := topology.Node{
		ID:         uuid.NewString(),
		Type:       topology.Normalize(arg.Type),
		Status:     topology.Normalize(arg.Status),
		Position:   arg.Position,
		Address:    arg.Address,
		Notes:      arg.Notes,
		Photos:     append([]string(nil), arg.Photos...),
		Attributes: arg.Attributes,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[n.ID] = n
	m.nodeOrder = append(m.nodeOrder, n.ID)
	return n, nil
}

func (m *Memory) ListNodes(ctx context.Context, filter topology.NodeFilter) ([]topology.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]topology.Node, 0, len(m.nodeOrder))
	for _, id := range m.nodeOrder {
		if n := m.nodes[id]; filter.Match(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *Memory) BulkUpdateStatus(ctx context.Context, nodeIDs []string, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	status = topology.Normalize(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range nodeIDs {
		n, ok := m.nodes[id]
		if !ok {
			continue
		}
		n.Status = status
		m.nodes[id] = n
	}
	return nil
}

func (m *Memory) CreateCable(ctx context.Context, arg topology.CableCreate) (topology.Cable, error) {
	if err := ctx.Err(); err != nil {
		return topology.Cable{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range []string{arg.StartNodeID, arg.EndNodeID} {
		if _, ok := m.nodes[id]; !ok {
			return topology.Cable{}, fmt.Errorf("create cable: node %s: %w", id, topology.ErrNotFound)
		}
	}
	c := topology.Cable{
		ID:          uuid.NewString(),
		StartNodeID: arg.StartNodeID,
		EndNodeID:   arg.EndNodeID,
		FiberCount:  arg.FiberCount,
		Type:        topology.Normalize(arg.Type),
		Status:      topology.Normalize(arg.Status),
		Path:        geo.Clone(arg.Path),
	}
	m.cables[c.ID] = c
	m.cableOrder = append(m.cableOrder, c.ID)
	return c, nil
}

func (m *Memory) UpdateCablePath(ctx context.Context, cableID string, waypoints []geo.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cables[cableID]
	if !ok {
		return fmt.Errorf("update cable path %s: %w", cableID, topology.ErrNotFound)
	}
	c.Path = geo.Clone(waypoints)
	m.cables[cableID] = c
	return nil
}

func (m *Memory) ListCables(ctx context.Context, nodeIDs []string) ([]topology.Cable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		want[id] = struct{}{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]topology.Cable, 0)
	for _, id := range m.cableOrder {
		c := m.cables[id]
		_, a := want[c.StartNodeID]
		_, b := want[c.EndNodeID]
		if a || b {
			c.Path = geo.Clone(c.Path)
			out = append(out, c)
		}
	}
	return out, nil
}
