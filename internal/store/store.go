// Package store persists nodes and cables. Store is the Postgres implementation over
// sqlcgen; Memory keeps everything in process for local runs and tests.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/sqlcgen"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

const defaultListLimit = 5000

// Queries is the subset of *sqlcgen.Queries the store needs.
type Queries interface {
	CreateNode(ctx context.Context, arg sqlcgen.CreateNodeParams) (sqlcgen.Node, error)
	ListNodes(ctx context.Context, arg sqlcgen.ListNodesParams) ([]sqlcgen.Node, error)
	BulkUpdateNodeStatus(ctx context.Context, arg sqlcgen.BulkUpdateNodeStatusParams) (int64, error)
	CreateCable(ctx context.Context, arg sqlcgen.CreateCableParams) (sqlcgen.Cable, error)
	UpdateCablePath(ctx context.Context, arg sqlcgen.UpdateCablePathParams) (int64, error)
	ListCablesForNodes(ctx context.Context, nodeIDs []string) ([]sqlcgen.Cable, error)
}

type Options struct {
	// ListLimit caps ListNodes. Defaults to 5000.
	ListLimit int32
}

type Store struct {
	q     Queries
	limit int32
}

func New(q Queries, opts Options) *Store {
	if opts.ListLimit <= 0 {
		opts.ListLimit = defaultListLimit
	}
	return &Store{q: q, limit: opts.ListLimit}
}

func (s *Store) CreateNode(ctx context.Context, arg topology.NodeCreate) (topology.Node, error) {
	row, err := s.q.CreateNode(ctx, sqlcgen.CreateNodeParams{
		NodeType:   topology.Normalize(arg.Type),
		Status:     topology.Normalize(arg.Status),
		Lat:        arg.Position.Lat,
		Lon:        arg.Position.Lon,
		Address:    arg.Address,
		Notes:      arg.Notes,
		Photos:     arg.Photos,
		Attributes: arg.Attributes,
	})
	if err != nil {
		return topology.Node{}, fmt.Errorf("create node: %w", mapError(err))
	}
	return nodeFromRow(row), nil
}

// ListNodes pushes the filter down to SQL. Callers still re-apply the filter locally,
// so a looser query is harmless.
func (s *Store) ListNodes(ctx context.Context, filter topology.NodeFilter) ([]topology.Node, error) {
	arg := sqlcgen.ListNodesParams{
		Types:    topology.NormalizeList(filter.Types),
		Statuses: topology.NormalizeList(filter.Statuses),
		Limit:    s.limit,
	}
	if b := filter.Bounds; b != nil {
		arg.MinLat = &b.SouthWest.Lat
		arg.MinLon = &b.SouthWest.Lon
		arg.MaxLat = &b.NorthEast.Lat
		arg.MaxLon = &b.NorthEast.Lon
	}
	rows, err := s.q.ListNodes(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", mapError(err))
	}
	out := make([]topology.Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, nodeFromRow(r))
	}
	return out, nil
}

func (s *Store) BulkUpdateStatus(ctx context.Context, nodeIDs []string, status string) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	_, err := s.q.BulkUpdateNodeStatus(ctx, sqlcgen.BulkUpdateNodeStatusParams{
		IDs:    nodeIDs,
		Status: topology.Normalize(status),
	})
	if err != nil {
		return fmt.Errorf("bulk update status: %w", mapError(err))
	}
	return nil
}

func (s *Store) CreateCable(ctx context.Context, arg topology.CableCreate) (topology.Cable, error) {
	row, err := s.q.CreateCable(ctx, sqlcgen.CreateCableParams{
		StartNodeID: arg.StartNodeID,
		EndNodeID:   arg.EndNodeID,
		FiberCount:  int32(arg.FiberCount),
		CableType:   topology.Normalize(arg.Type),
		Status:      topology.Normalize(arg.Status),
		Path:        pathToRow(arg.Path),
	})
	if err != nil {
		return topology.Cable{}, fmt.Errorf("create cable: %w", mapError(err))
	}
	return cableFromRow(row), nil
}

func (s *Store) UpdateCablePath(ctx context.Context, cableID string, waypoints []geo.Point) error {
	n, err := s.q.UpdateCablePath(ctx, sqlcgen.UpdateCablePathParams{
		ID:   cableID,
		Path: pathToRow(waypoints),
	})
	if err != nil {
		return fmt.Errorf("update cable path: %w", mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update cable path %s: %w", cableID, topology.ErrNotFound)
	}
	return nil
}

func (s *Store) ListCables(ctx context.Context, nodeIDs []string) ([]topology.Cable, error) {
	if len(nodeIDs) == 0 {
		return []topology.Cable{}, nil
	}
	rows, err := s.q.ListCablesForNodes(ctx, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("list cables: %w", mapError(err))
	}
	out := make([]topology.Cable, 0, len(rows))
	for _, r := range rows {
		out = append(out, cableFromRow(r))
	}
	return out, nil
}

// mapError folds missing rows, malformed uuids and dangling foreign keys into
// topology.ErrNotFound and leaves everything else as-is.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return topology.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "22P02", "23503":
			return fmt.Errorf("%w: %s", topology.ErrNotFound, pgErr.Message)
		}
	}
	return err
}

func nodeFromRow(r sqlcgen.Node) topology.Node {
	return topology.Node{
		ID:         r.ID,
		Type:       r.NodeType,
		Status:     r.Status,
		Position:   geo.Point{Lat: r.Lat, Lon: r.Lon},
		Address:    r.Address,
		Notes:      r.Notes,
		Photos:     r.Photos,
		Attributes: r.Attributes,
	}
}

func cableFromRow(r sqlcgen.Cable) topology.Cable {
	path := make([]geo.Point, 0, len(r.Path))
	for _, p := range r.Path {
		path = append(path, geo.Point{Lat: p[0], Lon: p[1]})
	}
	return topology.Cable{
		ID:          r.ID,
		StartNodeID: r.StartNodeID,
		EndNodeID:   r.EndNodeID,
		FiberCount:  int(r.FiberCount),
		Type:        r.CableType,
		Status:      r.Status,
		Path:        path,
	}
}

func pathToRow(path []geo.Point) [][2]float64 {
	out := make([][2]float64, 0, len(path))
	for _, p := range path {
		out = append(out, [2]float64{p.Lat, p.Lon})
	}
	return out
}
