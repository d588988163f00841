package transform

import (
	"fmt"
	"sort"
)

// Transform converts one field value between host and wire form.
type Transform interface {
	Name() string
	Normalize(host any) (any, error)
	Denormalize(wire any) (any, error)
}

// Registry holds transforms by name.
type Registry struct {
	transforms map[string]Transform
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transforms: make(map[string]Transform),
	}
}

// Default returns a registry holding the built-in transforms.
func Default() *Registry {
	r := NewRegistry()
	r.Add(JSON{})
	r.Add(Timestamp{})
	r.Add(Boolean{})

	return r
}

// Add registers a transform, replacing any transform with the same name.
func (r *Registry) Add(t Transform) {
	r.transforms[t.Name()] = t
}

// Get returns a transform by name, or nil if not found.
func (r *Registry) Get(name string) Transform {
	return r.transforms[name]
}

// Has returns true if a transform with the given name exists.
func (r *Registry) Has(name string) bool {
	_, exists := r.transforms[name]
	return exists
}

// Names returns all transform names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Normalize applies the named transform in the host -> wire direction.
// An empty name is the identity.
func (r *Registry) Normalize(name string, v any) (any, error) {
	if name == "" {
		return v, nil
	}

	t := r.Get(name)
	if t == nil {
		return nil, fmt.Errorf("transform %q not registered", name)
	}

	return t.Normalize(v)
}

// Denormalize applies the named transform in the wire -> host direction.
// An empty name is the identity.
func (r *Registry) Denormalize(name string, v any) (any, error) {
	if name == "" {
		return v, nil
	}

	t := r.Get(name)
	if t == nil {
		return nil, fmt.Errorf("transform %q not registered", name)
	}

	return t.Denormalize(v)
}
