// Package metadata stores display names and descriptions of the enumerations
// exposed to clients (stock statuses, ticket statuses, mutation kinds, source types).
package metadata

import (
	"sort"
	"sync"
)

// EnumValue describes one value of an enumeration.
type EnumValue struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// EnumDef describes an enumeration.
type EnumDef struct {
	Name   string      `json:"name"`
	Label  string      `json:"label,omitempty"`
	Values []EnumValue `json:"values"`
}

// Lookup returns the value entry for v.
func (d EnumDef) Lookup(v string) (EnumValue, bool) {
	for _, ev := range d.Values {
		if ev.Value == v {
			return ev, true
		}
	}
	return EnumValue{}, false
}

// Registry stores enum definitions.
type Registry struct {
	mu    sync.RWMutex
	enums map[string]EnumDef
}

func NewRegistry() *Registry {
	return &Registry{
		enums: make(map[string]EnumDef),
	}
}

// Register adds or replaces definitions.
func (r *Registry) Register(defs ...EnumDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range defs {
		r.enums[def.Name] = def
	}
}

func (r *Registry) Get(name string) (EnumDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.enums[name]
	return d, ok
}

// Describe returns the display entry for a single enum value.
func (r *Registry) Describe(name, value string) (EnumValue, bool) {
	def, ok := r.Get(name)
	if !ok {
		return EnumValue{}, false
	}
	return def.Lookup(value)
}

// List returns all definitions sorted by name.
func (r *Registry) List() []EnumDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]EnumDef, 0, len(r.enums))
	for _, def := range r.enums {
		list = append(list, def)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
