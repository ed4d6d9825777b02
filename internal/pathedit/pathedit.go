// Package pathedit holds the working copy of a cable path while the operator reshapes
// it. Edits only touch the working copy; the original is kept for cancel and diff.
package pathedit

import (
	"errors"
	"fmt"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

var (
	ErrNoPathGeometry    = errors.New("cable has no path geometry")
	ErrEndpointImmutable = errors.New("endpoint waypoints cannot be changed")
	ErrNotEditing        = errors.New("no cable path is being edited")
	ErrAlreadyEditing    = errors.New("a cable path is already being edited")
	ErrIndexOutOfRange   = errors.New("waypoint index out of range")
)

// PathDelta is the result of a committed edit.
type PathDelta struct {
	CableID   string      `json:"cable_id"`
	Waypoints []geo.Point `json:"waypoints"`
	Changed   bool        `json:"changed"`
}

type Editor struct {
	active   bool
	cable    topology.Cable
	working  []geo.Point
	original []geo.Point
}

func New() *Editor {
	return &Editor{}
}

func (e *Editor) Active() bool { return e.active }

// CableID returns the ID of the cable under edit, or "" when idle.
func (e *Editor) CableID() string {
	if !e.active {
		return ""
	}
	return e.cable.ID
}

// Begin snapshots the cable path. The cable must carry its ID, both endpoint node IDs
// and at least the two endpoint waypoints.
func (e *Editor) Begin(c topology.Cable) error {
	if e.active {
		return fmt.Errorf("%w: cable %s", ErrAlreadyEditing, e.cable.ID)
	}
	if c.ID == "" || c.StartNodeID == "" || c.EndNodeID == "" {
		return fmt.Errorf("%w: cable %q lacks endpoint node linkage", ErrNoPathGeometry, c.ID)
	}
	if len(c.Path) < 2 {
		return fmt.Errorf("%w: cable %q has %d waypoints", ErrNoPathGeometry, c.ID, len(c.Path))
	}

	e.active = true
	e.cable = c
	e.cable.Path = nil
	e.original = geo.Clone(c.Path)
	e.working = geo.Clone(c.Path)
	return nil
}

func (e *Editor) checkInterior(index int) error {
	if !e.active {
		return ErrNotEditing
	}
	last := len(e.working) - 1
	if index == 0 || index == last {
		return fmt.Errorf("%w: index %d", ErrEndpointImmutable, index)
	}
	if index < 0 || index > last {
		return fmt.Errorf("%w: index %d, path has %d waypoints", ErrIndexOutOfRange, index, len(e.working))
	}
	return nil
}

func (e *Editor) MoveWaypoint(index int, p geo.Point) error {
	if err := e.checkInterior(index); err != nil {
		return err
	}
	if err := geo.Validate(p); err != nil {
		return err
	}
	e.working[index] = p
	return nil
}

// InsertWaypoint adds p just before the end-node waypoint and returns its index.
func (e *Editor) InsertWaypoint(p geo.Point) (int, error) {
	if !e.active {
		return 0, ErrNotEditing
	}
	return e.insertAt(len(e.working)-1, p)
}

// InsertWaypointNearest adds p inside the path segment closest to it and returns its
// index. The endpoints stay first and last.
func (e *Editor) InsertWaypointNearest(p geo.Point) (int, error) {
	if !e.active {
		return 0, ErrNotEditing
	}
	seg := geo.NearestSegment(e.working, p)
	return e.insertAt(seg+1, p)
}

func (e *Editor) insertAt(index int, p geo.Point) (int, error) {
	if err := geo.Validate(p); err != nil {
		return 0, err
	}
	e.working = append(e.working, geo.Point{})
	copy(e.working[index+1:], e.working[index:])
	e.working[index] = p
	return index, nil
}

func (e *Editor) RemoveWaypoint(index int) error {
	if err := e.checkInterior(index); err != nil {
		return err
	}
	e.working = append(e.working[:index], e.working[index+1:]...)
	return nil
}

// Commit returns the new path and ends the edit.
func (e *Editor) Commit() (PathDelta, error) {
	if !e.active {
		return PathDelta{}, ErrNotEditing
	}
	delta := PathDelta{
		CableID:   e.cable.ID,
		Waypoints: geo.Clone(e.working),
		Changed:   !geo.Equal(e.working, e.original),
	}
	e.reset()
	return delta, nil
}

// Cancel ends the edit and returns the untouched original path.
func (e *Editor) Cancel() ([]geo.Point, error) {
	if !e.active {
		return nil, ErrNotEditing
	}
	original := geo.Clone(e.original)
	e.reset()
	return original, nil
}

func (e *Editor) reset() {
	e.active = false
	e.cable = topology.Cable{}
	e.working = nil
	e.original = nil
}

func (e *Editor) Working() []geo.Point { return geo.Clone(e.working) }

func (e *Editor) Original() []geo.Point { return geo.Clone(e.original) }

// Cable returns the cable under edit with its path replaced by the working copy.
func (e *Editor) Cable() (topology.Cable, bool) {
	if !e.active {
		return topology.Cable{}, false
	}
	c := e.cable
	c.Path = geo.Clone(e.working)
	return c, true
}
