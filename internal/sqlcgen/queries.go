package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const createNode = `-- name: CreateNode :one
INSERT INTO nodes (node_type, status, lat, lon, address, notes, photos, attributes)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, '{}'::text[]), COALESCE($8, '{}'::jsonb))
RETURNING id::text, node_type, status, lat, lon, address, notes, photos, attributes, created_at
`

type CreateNodeParams struct {
	NodeType   string
	Status     string
	Lat        float64
	Lon        float64
	Address    *string
	Notes      *string
	Photos     []string
	Attributes map[string]any
}

func (q *Queries) CreateNode(ctx context.Context, arg CreateNodeParams) (Node, error) {
	row := q.db.QueryRow(ctx, createNode,
		arg.NodeType,
		arg.Status,
		arg.Lat,
		arg.Lon,
		arg.Address,
		arg.Notes,
		arg.Photos,
		arg.Attributes,
	)
	var i Node
	err := row.Scan(
		&i.ID,
		&i.NodeType,
		&i.Status,
		&i.Lat,
		&i.Lon,
		&i.Address,
		&i.Notes,
		&i.Photos,
		&i.Attributes,
		&i.CreatedAt,
	)
	return i, err
}

const listNodes = `-- name: ListNodes :many
SELECT id::text, node_type, status, lat, lon, address, notes, photos, attributes, created_at
FROM nodes
WHERE (cardinality($1::text[]) = 0 OR node_type = ANY($1::text[]))
  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
  AND ($3::float8 IS NULL OR lat >= $3::float8)
  AND ($4::float8 IS NULL OR lon >= $4::float8)
  AND ($5::float8 IS NULL OR lat <= $5::float8)
  AND ($6::float8 IS NULL OR lon <= $6::float8)
ORDER BY created_at ASC, id ASC
LIMIT $7
`

type ListNodesParams struct {
	Types    []string
	Statuses []string
	MinLat   *float64
	MinLon   *float64
	MaxLat   *float64
	MaxLon   *float64
	Limit    int32
}

func (q *Queries) ListNodes(ctx context.Context, arg ListNodesParams) ([]Node, error) {
	types := arg.Types
	if types == nil {
		types = []string{}
	}
	statuses := arg.Statuses
	if statuses == nil {
		statuses = []string{}
	}
	rows, err := q.db.Query(ctx, listNodes,
		types,
		statuses,
		arg.MinLat,
		arg.MinLon,
		arg.MaxLat,
		arg.MaxLon,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Node
	for rows.Next() {
		var i Node
		if err := rows.Scan(
			&i.ID,
			&i.NodeType,
			&i.Status,
			&i.Lat,
			&i.Lon,
			&i.Address,
			&i.Notes,
			&i.Photos,
			&i.Attributes,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const bulkUpdateNodeStatus = `-- name: BulkUpdateNodeStatus :execrows
UPDATE nodes
SET status = $2,
    updated_at = now()
WHERE id::text = ANY($1::text[])
`

type BulkUpdateNodeStatusParams struct {
	IDs    []string
	Status string
}

func (q *Queries) BulkUpdateNodeStatus(ctx context.Context, arg BulkUpdateNodeStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx, bulkUpdateNodeStatus, arg.IDs, arg.Status)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const createCable = `-- name: CreateCable :one
INSERT INTO cables (start_node_id, end_node_id, fiber_count, cable_type, status, path)
VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6::jsonb)
RETURNING id::text, start_node_id::text, end_node_id::text, fiber_count, cable_type, status, path, updated_at
`

type CreateCableParams struct {
	StartNodeID string
	EndNodeID   string
	FiberCount  int32
	CableType   string
	Status      string
	Path        [][2]float64
}

func (q *Queries) CreateCable(ctx context.Context, arg CreateCableParams) (Cable, error) {
	row := q.db.QueryRow(ctx, createCable,
		arg.StartNodeID,
		arg.EndNodeID,
		arg.FiberCount,
		arg.CableType,
		arg.Status,
		arg.Path,
	)
	var i Cable
	err := row.Scan(
		&i.ID,
		&i.StartNodeID,
		&i.EndNodeID,
		&i.FiberCount,
		&i.CableType,
		&i.Status,
		&i.Path,
		&i.UpdatedAt,
	)
	return i, err
}

const updateCablePath = `-- name: UpdateCablePath :execrows
UPDATE cables
SET path = $2::jsonb,
    updated_at = now()
WHERE id::text = $1
`

type UpdateCablePathParams struct {
	ID   string
	Path [][2]float64
}

func (q *Queries) UpdateCablePath(ctx context.Context, arg UpdateCablePathParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateCablePath, arg.ID, arg.Path)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listCablesForNodes = `-- name: ListCablesForNodes :many
SELECT id::text, start_node_id::text, end_node_id::text, fiber_count, cable_type, status, path, updated_at
FROM cables
WHERE start_node_id::text = ANY($1::text[])
   OR end_node_id::text = ANY($1::text[])
ORDER BY id ASC
`

func (q *Queries) ListCablesForNodes(ctx context.Context, nodeIDs []string) ([]Cable, error) {
	rows, err := q.db.Query(ctx, listCablesForNodes, nodeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Cable
	for rows.Next() {
		var i Cable
		if err := rows.Scan(
			&i.ID,
			&i.StartNodeID,
			&i.EndNodeID,
			&i.FiberCount,
			&i.CableType,
			&i.Status,
			&i.Path,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
