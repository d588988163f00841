package catalog

import (
	"fmt"
	"maps"
	"slices"

	"resource-mapper/internal/apierr"
	"resource-mapper/internal/host"
)

// ResolverFunc loads the record of kind with id for a reference field.
// It reports false when the target does not exist.
type ResolverFunc func(kind, id string) (host.Record, bool)

// Record is the generic host record of a catalog kind. Reference fields are
// stored as target ids and resolved on access.
type Record struct {
	kind    *Kind
	sub     *SubKind
	id      string
	values  map[string]any
	resolve ResolverFunc
}

var _ host.MutableRecord = (*Record)(nil)

// NewRecord builds a record. values are keyed by field name; reference
// fields hold a target id (to-one) or a list of ids (to-many).
func (c *Catalog) NewRecord(kind, subKind, id string, values map[string]any, resolve ResolverFunc) (*Record, error) {
	k, ok := c.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}

	s, ok := k.subKinds[subKind]
	if !ok {
		return nil, apierr.BadRequest("%q is not a valid %s of %s", subKind, labelOr(k.BundleLabel, "sub-kind"), kind)
	}

	r := &Record{kind: k, sub: s, id: id, values: map[string]any{}, resolve: resolve}

	for name, v := range values {
		if _, ok := s.byName[name]; !ok {
			continue
		}

		r.values[name] = host.Canonical(v)
	}

	return r, nil
}

// RecordKind returns the record's kind.
func (r *Record) RecordKind() string { return r.kind.Name }

// RecordSubKind returns the record's sub-kind.
func (r *Record) RecordSubKind() string { return r.sub.Name }

// RecordID returns the record's identity, empty until assigned.
func (r *Record) RecordID() string { return r.id }

// SetID assigns the identity of a new record.
func (r *Record) SetID(id string) { r.id = id }

// Values returns a copy of the stored field values.
func (r *Record) Values() map[string]any {
	return maps.Clone(r.values)
}

// WithResolver returns a shallow copy of r resolving references through fn.
func (r *Record) WithResolver(fn ResolverFunc) *Record {
	cp := *r
	cp.resolve = fn

	return &cp
}

// Fields lists the identity key, the bundle key and then the sub-kind's
// declared fields in declaration order.
func (r *Record) Fields() []string {
	out := make([]string, 0, len(r.sub.Fields)+2)
	out = append(out, r.kind.IdentityKey, r.kind.BundleKey)

	for _, fd := range r.sub.Fields {
		out = append(out, fd.Name)
	}

	return out
}

// Field returns the value of a field.
func (r *Record) Field(name string) (host.FieldValue, bool) {
	switch name {
	case r.kind.IdentityKey:
		return host.Scalar{Value: r.id}, true
	case r.kind.BundleKey:
		return host.Scalar{Value: r.sub.Name}, true
	}

	fd, ok := r.sub.byName[name]
	if !ok {
		return nil, false
	}

	raw := r.values[name]

	switch {
	case fd.IsRelationship() && fd.Multiple:
		var targets []host.Record

		for _, id := range ids(raw) {
			if t := r.target(fd.References, id); t != nil {
				targets = append(targets, t)
			}
		}

		return host.References{Targets: targets}, true

	case fd.IsRelationship():
		refs := ids(raw)
		if len(refs) == 0 {
			return host.Reference{}, true
		}

		return host.Reference{Target: r.target(fd.References, refs[0])}, true

	case fd.Multiple:
		return host.Multi{Values: list(raw)}, true

	default:
		return host.Scalar{Value: raw}, true
	}
}

func (r *Record) target(kind, id string) host.Record {
	if r.resolve == nil || id == "" {
		return nil
	}

	t, ok := r.resolve(kind, id)
	if !ok {
		return nil
	}

	return t
}

// Set writes a field. Relationship fields take host.TargetRef or
// []host.TargetRef; the bundle key switches the sub-kind.
func (r *Record) Set(name string, value any) error {
	switch name {
	case r.kind.IdentityKey:
		r.id = toString(value)
		return nil
	case r.kind.BundleKey:
		sub, ok := r.kind.subKinds[toString(value)]
		if !ok {
			return apierr.BadRequest("%q is not a valid %s of %s", toString(value), labelOr(r.kind.BundleLabel, "sub-kind"), r.kind.Name)
		}

		r.sub = sub

		return nil
	}

	fd, ok := r.sub.byName[name]
	if !ok {
		return apierr.BadRequest("%s has no field %q", r.sub.Name, name)
	}

	if !fd.IsRelationship() {
		r.values[name] = host.Canonical(value)
		return nil
	}

	switch v := value.(type) {
	case nil:
		delete(r.values, name)
	case host.TargetRef:
		if v.TargetID == nil {
			delete(r.values, name)
		} else {
			r.values[name] = *v.TargetID
		}
	case []host.TargetRef:
		out := make([]any, 0, len(v))
		for _, t := range v {
			if t.TargetID != nil {
				out = append(out, *t.TargetID)
			}
		}

		r.values[name] = out
	default:
		return apierr.BadRequest("%s is a relationship and cannot be set to a plain value", name)
	}

	return nil
}

// ids reads stored reference ids: a single id or a list of them.
func ids(raw any) []string {
	var out []string

	for _, v := range list(raw) {
		if s := toString(v); s != "" {
			out = append(out, s)
		}
	}

	return out
}

func list(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}

		return out
	default:
		return []any{v}
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}

	return label
}

// Strings returns the stored value of a field as strings: reference fields
// give their target ids, multi-valued fields one entry per value.
func (r *Record) Strings(name string) []string {
	switch name {
	case r.kind.IdentityKey:
		return []string{r.id}
	case r.kind.BundleKey:
		return []string{r.sub.Name}
	}

	var out []string
	for _, v := range list(r.values[name]) {
		out = append(out, toString(v))
	}

	return out
}

// FromInput builds an unsaved record of kind from a decoded input map. The
// sub-kind comes from the bundle key; a kind with a single sub-kind may omit
// it.
func (c *Catalog) FromInput(kind string, input host.Input, resolve ResolverFunc) (*Record, error) {
	k, ok := c.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}

	sub := toString(input[k.BundleKey])
	if sub == "" {
		names := k.SubKinds()
		if len(names) != 1 {
			return nil, apierr.BadRequest("a %s is required to create a %s", labelOr(k.BundleLabel, "sub-kind"), kind)
		}

		sub = names[0]
	}

	r, err := c.NewRecord(kind, sub, "", nil, resolve)
	if err != nil {
		return nil, err
	}

	for _, name := range sortedInput(input) {
		if name == k.BundleKey {
			continue
		}

		if err := r.Set(name, input[name]); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func sortedInput(input host.Input) []string {
	names := slices.Collect(maps.Keys(input))
	slices.Sort(names)

	return names
}
