package store

import (
	"context"
	"errors"
	"testing"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

func TestMemory_NodeAndCableLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a, err := m.CreateNode(ctx, topology.NodeCreate{Type: "Pole", Status: "planned", Position: geo.Point{Lat: 1, Lon: 1}})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := m.CreateNode(ctx, topology.NodeCreate{Type: "cabinet", Status: "built", Position: geo.Point{Lat: 2, Lon: 2}})
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q %q", a.ID, b.ID)
	}
	if a.Type != "pole" {
		t.Fatalf("expected normalized type, got %q", a.Type)
	}

	poles, err := m.ListNodes(ctx, topology.NodeFilter{Types: []string{"pole"}})
	if err != nil || len(poles) != 1 || poles[0].ID != a.ID {
		t.Fatalf("expected only the pole, got %v %v", poles, err)
	}

	c, err := m.CreateCable(ctx, topology.CableCreate{
		StartNodeID: a.ID, EndNodeID: b.ID, FiberCount: 12, Type: "duct", Status: "planned",
		Path: []geo.Point{a.Position, b.Position},
	})
	if err != nil {
		t.Fatalf("create cable: %v", err)
	}

	reshaped := []geo.Point{a.Position, {Lat: 1.5, Lon: 1.2}, b.Position}
	if err := m.UpdateCablePath(ctx, c.ID, reshaped); err != nil {
		t.Fatalf("update path: %v", err)
	}
	reshaped[1] = geo.Point{}

	cables, err := m.ListCables(ctx, []string{b.ID})
	if err != nil || len(cables) != 1 {
		t.Fatalf("expected one cable, got %v %v", cables, err)
	}
	if cables[0].Path[1] != (geo.Point{Lat: 1.5, Lon: 1.2}) {
		t.Fatalf("expected stored path to be isolated from caller, got %v", cables[0].Path)
	}

	if err := m.BulkUpdateStatus(ctx, []string{a.ID, b.ID, "unknown"}, "Active"); err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	active, _ := m.ListNodes(ctx, topology.NodeFilter{Statuses: []string{"active"}})
	if len(active) != 2 {
		t.Fatalf("expected both nodes active, got %v", active)
	}
}

func TestMemory_Errors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.CreateNode(ctx, topology.NodeCreate{Type: "pole", Position: geo.Point{Lat: 91}}); !errors.Is(err, geo.ErrInvalidPoint) {
		t.Fatalf("expected ErrInvalidPoint, got %v", err)
	}
	if _, err := m.CreateCable(ctx, topology.CableCreate{StartNodeID: "x", EndNodeID: "y"}); !errors.Is(err, topology.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.UpdateCablePath(ctx, "x", nil); !errors.Is(err, topology.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := m.ListNodes(cancelled, topology.NodeFilter{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
