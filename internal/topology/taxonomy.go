package topology

import (
	"sort"
	"strings"
)

const (
	NodeTypeChamber       = "chamber"
	NodeTypeCabinet       = "cabinet"
	NodeTypePole          = "pole"
	NodeTypeSpliceClosure = "splice_closure"
	NodeTypeManhole       = "manhole"
	NodeTypeExchange      = "exchange"
	NodeTypePremises      = "premises"
)

const (
	StatusPlanned        = "planned"
	StatusInProgress     = "in_progress"
	StatusBuilt          = "built"
	StatusActive         = "active"
	StatusDecommissioned = "decommissioned"
)

const (
	CableTypeDuct         = "duct"
	CableTypeAerial       = "aerial"
	CableTypeDirectBuried = "direct_buried"
	CableTypeInternal     = "internal"
)

// Taxonomy lists the enumerated values accepted for nodes and cables.
type Taxonomy struct {
	NodeTypes  []string `yaml:"node_types"`
	Statuses   []string `yaml:"statuses"`
	CableTypes []string `yaml:"cable_types"`
}

func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		NodeTypes: []string{
			NodeTypeChamber,
			NodeTypeCabinet,
			NodeTypePole,
			NodeTypeSpliceClosure,
			NodeTypeManhole,
			NodeTypeExchange,
			NodeTypePremises,
		},
		Statuses: []string{
			StatusPlanned,
			StatusInProgress,
			StatusBuilt,
			StatusActive,
			StatusDecommissioned,
		},
		CableTypes: []string{
			CableTypeDuct,
			CableTypeAerial,
			CableTypeDirectBuried,
			CableTypeInternal,
		},
	}
}

// Normalized returns a copy with every list normalized, deduplicated and sorted. Empty
// lists fall back to the defaults.
func (t Taxonomy) Normalized() Taxonomy {
	def := DefaultTaxonomy()
	out := Taxonomy{
		NodeTypes:  NormalizeList(t.NodeTypes),
		Statuses:   NormalizeList(t.Statuses),
		CableTypes: NormalizeList(t.CableTypes),
	}
	if len(out.NodeTypes) == 0 {
		out.NodeTypes = NormalizeList(def.NodeTypes)
	}
	if len(out.Statuses) == 0 {
		out.Statuses = NormalizeList(def.Statuses)
	}
	if len(out.CableTypes) == 0 {
		out.CableTypes = NormalizeList(def.CableTypes)
	}
	return out
}

func (t Taxonomy) IsNodeType(v string) bool  { return contains(t.NodeTypes, v) }
func (t Taxonomy) IsStatus(v string) bool    { return contains(t.Statuses, v) }
func (t Taxonomy) IsCableType(v string) bool { return contains(t.CableTypes, v) }

func contains(values []string, v string) bool {
	v = Normalize(v)
	if v == "" {
		return false
	}
	for _, candidate := range values {
		if Normalize(candidate) == v {
			return true
		}
	}
	return false
}

// Normalize lowercases and trims v and folds spaces and dashes to underscores, so
// "Splice Closure" and "splice-closure" both become "splice_closure".
func Normalize(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(v)
}

func NormalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, raw := range values {
		v := Normalize(raw)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
