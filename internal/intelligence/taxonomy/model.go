// Package taxonomy holds the declarative entity taxonomy (groups of entities,
// each with a list of surface values) and the dictionary matcher that
// overlays it onto free text.
//
// A taxonomy is built once and never mutated afterwards, so a single
// *EntityModel and *Matcher are shared by every request goroutine without
// locking.
package taxonomy

import "strings"

// Entity is a named concept recognised through any of its values.
// Values are stored lowercased, in declaration order.
type Entity struct {
	Name   string
	Values []string
}

// NewEntity lowercases values and returns the entity.
func NewEntity(name string, values ...string) Entity {
	lowered := make([]string, len(values))
	for i, v := range values {
		lowered[i] = strings.ToLower(v)
	}
	return Entity{Name: name, Values: lowered}
}

// EntityGroup is a named set of entities. The group name is reported as the
// "entity" field of a match.
type EntityGroup struct {
	Name     string
	Entities []Entity
}

// NewEntityGroup returns a group over entities.
func NewEntityGroup(name string, entities ...Entity) EntityGroup {
	return EntityGroup{Name: name, Entities: entities}
}

// EntityModel is the full taxonomy.
type EntityModel struct {
	Groups []EntityGroup
}

// NewEntityModel returns a model over groups.
func NewEntityModel(groups ...EntityGroup) *EntityModel {
	return &EntityModel{Groups: groups}
}

// Empty returns the model with no groups. It matches nothing.
func Empty() *EntityModel {
	return &EntityModel{Groups: []EntityGroup{}}
}

// IsEmpty reports whether the model has no entity values at all.
func (m *EntityModel) IsEmpty() bool {
	return m == nil || m.Stats().Values == 0
}

// Stats summarises a model.
type Stats struct {
	Groups   int `json:"groups"`
	Entities int `json:"entities"`
	Values   int `json:"values"`
}

// Stats counts groups, entities and values.
func (m *EntityModel) Stats() Stats {
	var s Stats
	if m == nil {
		return s
	}
	s.Groups = len(m.Groups)
	for _, g := range m.Groups {
		s.Entities += len(g.Entities)
		for _, e := range g.Entities {
			s.Values += len(e.Values)
		}
	}
	return s
}

//Personal.AI order the ending
