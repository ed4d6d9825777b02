package surface

import (
	"context"
	"time"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

type NodeStore interface {
	CreateNode(ctx context.Context, arg topology.NodeCreate) (topology.Node, error)
	ListNodes(ctx context.Context, filter topology.NodeFilter) ([]topology.Node, error)
}

type CableStore interface {
	CreateCable(ctx context.Context, arg topology.CableCreate) (topology.Cable, error)
	UpdateCablePath(ctx context.Context, cableID string, waypoints []geo.Point) error
	ListCables(ctx context.Context, nodeIDs []string) ([]topology.Cable, error)
}

type BulkMutator interface {
	BulkUpdateStatus(ctx context.Context, nodeIDs []string, status string) error
}

// Stores bundles the persistence collaborators. *store.Store and *store.Memory satisfy
// it.
type Stores interface {
	NodeStore
	CableStore
	BulkMutator
}

// Dispatcher runs a mutation detached from the caller. *dispatch.Worker satisfies it.
type Dispatcher interface {
	Dispatch(op string, fn func(ctx context.Context) error, done func(err error)) error
}

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

type Notification struct {
	Level   Level     `json:"level"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier is the toast surface. It may be called from dispatcher goroutines.
type Notifier interface {
	Notify(n Notification)
}
