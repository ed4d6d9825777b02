// Package mode arbitrates what a pointer event on the map means. Exactly one Mode is
// active per editor; every transition tears down the transient state of the mode being
// left before the next one is armed.
package mode

import (
	"errors"
	"fmt"
	"strings"
)

type Mode int

const (
	Idle Mode = iota
	AddNode
	CableRouting
	PolygonSelect
	ClickSelect
)

var ErrUnknownMode = errors.New("unknown mode")

var names = map[Mode]string{
	Idle:          "idle",
	AddNode:       "addNode",
	CableRouting:  "cableRouting",
	PolygonSelect: "polygonSelect",
	ClickSelect:   "clickSelect",
}

func (m Mode) String() string {
	if s, ok := names[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func (m Mode) Valid() bool {
	_, ok := names[m]
	return ok
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Parse accepts the canonical names case-insensitively, plus snake_case spellings.
func Parse(s string) (Mode, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for m, name := range names {
		if strings.ToLower(name) == key {
			return m, nil
		}
	}
	return Idle, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
