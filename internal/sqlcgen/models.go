package sqlcgen

import "time"

type Node struct {
	ID         string
	NodeType   string
	Status     string
	Lat        float64
	Lon        float64
	Address    *string
	Notes      *string
	Photos     []string
	Attributes map[string]any
	CreatedAt  time.Time
}

type Cable struct {
	ID          string
	StartNodeID string
	EndNodeID   string
	FiberCount  int32
	CableType   string
	Status      string
	Path        [][2]float64
	UpdatedAt   time.Time
}
