package document

// ResourceObject is one resource in a document.
type ResourceObject struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Meta          map[string]any          `json:"meta,omitempty"`
}

// Identifier returns the resource's {type, id}.
func (r *ResourceObject) Identifier() Identifier {
	return Identifier{Type: r.Type, ID: r.ID}
}

// Attribute returns an attribute value and whether it was present.
func (r *ResourceObject) Attribute(name string) (any, bool) {
	v, ok := r.Attributes[name]
	return v, ok
}

// Relationship returns a relationship linkage and whether it was present.
func (r *ResourceObject) Relationship(name string) (Linkage, bool) {
	rel, ok := r.Relationships[name]
	return rel.Data, ok
}

// AddMeta sets a meta member on the resource.
func (r *ResourceObject) AddMeta(key string, value any) {
	if r.Meta == nil {
		r.Meta = map[string]any{}
	}

	r.Meta[key] = value
}

// Included is the side-table of expanded related resources. Entries are keyed
// by {type, id}; the first write wins and order of first discovery is kept.
type Included struct {
	index map[Identifier]int
	items []*ResourceObject
}

// NewIncluded returns an empty side-table.
func NewIncluded() *Included {
	return &Included{index: map[Identifier]int{}}
}

// Add registers a resource unless one with the same {type, id} exists.
// It reports whether the resource was added.
func (i *Included) Add(r *ResourceObject) bool {
	key := r.Identifier()
	if _, ok := i.index[key]; ok {
		return false
	}

	i.index[key] = len(i.items)
	i.items = append(i.items, r)

	return true
}

// Get returns the included resource for an identifier.
func (i *Included) Get(id Identifier) (*ResourceObject, bool) {
	n, ok := i.index[id]
	if !ok {
		return nil, false
	}

	return i.items[n], true
}

// All returns included resources in first-discovered order.
func (i *Included) All() []*ResourceObject {
	return i.items
}

// Len returns the number of included resources.
func (i *Included) Len() int {
	return len(i.items)
}
