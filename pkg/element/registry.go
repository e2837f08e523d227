package element

import (
	"maps"
	"slices"
)

// Registry is the permanent store of definitions by name. Entries are
// write-once and never removed.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Store saves def under name if the name is not yet defined. A nil def is
// stored as an empty definition. It reports whether def was stored.
func (r *Registry) Store(name string, def *Definition) bool {
	if _, exists := r.defs[name]; exists {
		return false
	}
	stored := &Definition{Name: name}
	if def != nil {
		stored.Extends = def.Extends
		stored.Members = def.Members.Clone()
	} else {
		stored.Members = Members{}
	}
	r.defs[name] = stored
	return true
}

// Lookup returns the definition stored under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns all defined names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.defs))
}

// Len returns the number of stored definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}
