package encode

import (
	"fmt"

	"resource-mapper/internal/apierr"
	"resource-mapper/internal/document"
	"resource-mapper/internal/host"
	"resource-mapper/internal/request"
	"resource-mapper/internal/schema"
	"resource-mapper/internal/transform"
)

// Encoder renders host records for one request view.
type Encoder struct {
	view       *request.View
	meta       host.Metadata
	access     host.Access
	transforms *transform.Registry
}

// New creates an Encoder. A nil access grants everything.
func New(view *request.View, meta host.Metadata, access host.Access, transforms *transform.Registry) *Encoder {
	if access == nil {
		access = host.AllowAll{}
	}

	return &Encoder{view: view, meta: meta, access: access, transforms: transforms}
}

// Relationship addresses the linkage of one relationship field.
type Relationship struct {
	Owner host.Record
	// Field is the exposed name of the relationship.
	Field string
}

// Related addresses the records behind one relationship field.
type Related struct {
	Owner host.Record
	Field string
}

// Document encodes data into a new document. data is a host.Record,
// a []host.Record, a Relationship or a Related.
func (e *Encoder) Document(data any) (*document.Document, error) {
	doc := document.New()

	switch d := data.(type) {
	case nil:
	case host.Record:
		ro, err := e.Record(doc, d)
		if err != nil {
			return nil, err
		}

		doc.Data = document.One(ro)
	case []host.Record:
		ros, err := e.records(doc, d)
		if err != nil {
			return nil, err
		}

		doc.Data = document.Many(ros)
	case Relationship:
		l, err := e.relationship(doc, d.Owner, d.Field)
		if err != nil {
			return nil, err
		}

		doc.Data = document.LinkageData(l)
	case Related:
		targets, many, err := e.targets(d.Owner, d.Field)
		if err != nil {
			return nil, err
		}

		ros, err := e.records(doc, targets)
		if err != nil {
			return nil, err
		}

		switch {
		case many:
			doc.Data = document.Many(ros)
		case len(ros) == 1:
			doc.Data = document.One(ros[0])
		}
	default:
		return nil, fmt.Errorf("encode: unsupported data %T", data)
	}

	return doc, nil
}

// Record encodes r as a top-level resource of doc.
func (e *Encoder) Record(doc *document.Document, r host.Record) (*document.ResourceObject, error) {
	return e.walk(r, &traversal{doc: doc})
}

func (e *Encoder) records(doc *document.Document, rs []host.Record) ([]*document.ResourceObject, error) {
	out := make([]*document.ResourceObject, 0, len(rs))

	for _, r := range rs {
		ro, err := e.Record(doc, r)
		if err != nil {
			return nil, err
		}

		out = append(out, ro)
	}

	return out, nil
}

// relationship encodes the linkage of owner's field exposed as name, with
// the owner's include policy applied to its targets.
func (e *Encoder) relationship(doc *document.Document, owner host.Record, name string) (document.Linkage, error) {
	kind, sub := e.meta.KindOf(owner), e.meta.SubKindOf(owner)

	source, value, err := e.relationshipField(owner, name)
	if err != nil {
		return document.Linkage{}, err
	}

	t := &traversal{
		doc:      doc,
		path:     []string{name},
		defaults: e.view.DefaultIncludeFor(kind, sub),
	}

	m, _ := e.view.FieldsFor(kind, sub).Lookup(source)

	out, err := value.Accept(&valueEncoder{enc: e, mapping: m, t: t})
	if err != nil {
		return document.Linkage{}, err
	}

	return out.(document.Linkage), nil
}

// targets returns the records owner's relationship name points at.
func (e *Encoder) targets(owner host.Record, name string) ([]host.Record, bool, error) {
	_, value, err := e.relationshipField(owner, name)
	if err != nil {
		return nil, false, err
	}

	switch v := value.(type) {
	case host.Reference:
		if v.Target == nil {
			return nil, false, nil
		}

		return []host.Record{v.Target}, false, nil
	case host.References:
		return v.Targets, true, nil
	default:
		return nil, false, apierr.BadRequest("%s is not a relationship", name)
	}
}

func (e *Encoder) relationshipField(owner host.Record, name string) (string, host.FieldValue, error) {
	kind, sub := e.meta.KindOf(owner), e.meta.SubKindOf(owner)

	m, ok := e.view.FieldsFor(kind, sub).ByExposed(name)
	if !ok {
		return "", nil, apierr.BadRequest("%s is not a known field", name)
	}

	if !e.access.FieldReadable(owner, m.Source) {
		return "", nil, host.ErrForbidden
	}

	value, ok := owner.Field(m.Source)
	if !ok || !host.IsRelationship(value) {
		return "", nil, apierr.BadRequest("%s is not a relationship", name)
	}

	return m.Source, value, nil
}

// traversal is the state threaded through one encode pass.
type traversal struct {
	doc  *document.Document
	path []string
	// defaults are the top-level record's default include paths.
	defaults []string
}

func (t *traversal) child(name string) *traversal {
	path := make([]string, len(t.path)+1)
	copy(path, t.path)
	path[len(t.path)] = name

	return &traversal{doc: t.doc, path: path, defaults: t.defaults}
}

// nested encodes a related record reached through t.path and returns its
// linkage identifier.
func (e *Encoder) nested(r host.Record, t *traversal) (document.Identifier, error) {
	kind, sub := e.meta.KindOf(r), e.meta.SubKindOf(r)
	table := e.view.FieldsFor(kind, sub)
	core := e.coreFields(r, kind, sub)

	id, err := e.identify(r, table, core)
	if err != nil {
		return document.Identifier{}, err
	}

	if !e.view.ShouldInclude(t.path, t.defaults) {
		return id, nil
	}

	if _, seen := t.doc.Included.Get(id); seen {
		return id, nil
	}

	ro, err := e.walk(r, t)
	if err != nil {
		return document.Identifier{}, err
	}

	t.doc.Included.Add(ro)

	return id, nil
}

// walk builds the full resource object of r.
func (e *Encoder) walk(r host.Record, t *traversal) (*document.ResourceObject, error) {
	kind, sub := e.meta.KindOf(r), e.meta.SubKindOf(r)
	table := e.view.FieldsFor(kind, sub)

	if len(t.path) == 0 {
		t.defaults = e.view.DefaultIncludeFor(kind, sub)
	}

	core := e.coreFields(r, kind, sub)

	id, err := e.identify(r, table, core)
	if err != nil {
		return nil, err
	}

	ro := &document.ResourceObject{
		Type:       id.Type,
		ID:         id.ID,
		Attributes: map[string]any{},
	}

	unused := []string{}

	for _, name := range r.Fields() {
		if !e.access.FieldReadable(r, name) {
			continue
		}

		m, ok := table.Lookup(name)
		if !ok {
			unused = append(unused, name)
			continue
		}

		if isIdentity(m.Exposed) || !e.view.ShouldIncludeField(id.Type, m.Exposed) {
			continue
		}

		value, ok := r.Field(name)
		if !ok {
			continue
		}

		out, err := value.Accept(&valueEncoder{enc: e, mapping: m, t: t.child(m.Exposed)})
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}

		if l, isLink := out.(document.Linkage); isLink {
			if ro.Relationships == nil {
				ro.Relationships = map[string]document.Relationship{}
			}

			ro.Relationships[m.Exposed] = document.Relationship{Data: l}

			continue
		}

		ro.Attributes[m.Exposed] = out
	}

	for _, c := range core {
		m, ok := table.Lookup(c.name)
		if !ok {
			unused = append(unused, c.name)
			continue
		}

		if isIdentity(m.Exposed) || !e.view.ShouldIncludeField(id.Type, m.Exposed) {
			continue
		}

		ro.Attributes[m.Exposed] = c.value
	}

	if e.view.Debug() {
		ro.AddMeta("unused-fields", unused)
	}

	return ro, nil
}

func isIdentity(exposed string) bool {
	return exposed == schema.ExposedType || exposed == schema.ExposedID
}

type coreField struct {
	name  string
	value any
}

// coreFields returns the synthesized values every record exposes in
// addition to its own fields.
func (e *Encoder) coreFields(r host.Record, kind, sub string) []coreField {
	label := e.meta.BundleLabelOf(kind)

	fields := []coreField{
		{schema.CoreEntityType, kind},
		{schema.CoreID, e.meta.IdentityOf(r)},
		{schema.CoreBundleLabel, label},
		{schema.CoreBundle, sub},
	}

	if label != "" && label != schema.CoreBundle {
		fields = append(fields, coreField{label, sub})
	}

	return fields
}

// identify resolves the exposed type and id of r. Either may come from a core
// field or from an ordinary host field.
func (e *Encoder) identify(r host.Record, table *schema.FieldTable, core []coreField) (document.Identifier, error) {
	typ, err := e.identityValue(r, table, core, schema.ExposedType)
	if err != nil {
		return document.Identifier{}, err
	}

	id, err := e.identityValue(r, table, core, schema.ExposedID)
	if err != nil {
		return document.Identifier{}, err
	}

	return document.Identifier{Type: typ, ID: id}, nil
}

func (e *Encoder) identityValue(r host.Record, table *schema.FieldTable, core []coreField, exposed string) (string, error) {
	m, ok := table.ByExposed(exposed)
	if !ok {
		return "", fmt.Errorf("no field is exposed as %q", exposed)
	}

	for _, c := range core {
		if c.name == m.Source {
			return stringify(c.value), nil
		}
	}

	value, ok := r.Field(m.Source)
	if !ok {
		return "", nil
	}

	s, isScalar := value.(host.Scalar)
	if !isScalar {
		return "", fmt.Errorf("field %s exposed as %q is not a plain value", m.Source, exposed)
	}

	out, err := e.transforms.Normalize(m.Transform, s.Value)
	if err != nil {
		return "", err
	}

	return stringify(out), nil
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}
