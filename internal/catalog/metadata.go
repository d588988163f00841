package catalog

import (
	"resource-mapper/internal/host"
)

// Typed is a record that knows its own kind, sub-kind and identity.
type Typed interface {
	RecordKind() string
	RecordSubKind() string
	RecordID() string
}

var (
	_ host.Metadata = (*Catalog)(nil)
	_ host.Access   = (*Catalog)(nil)
)

func (c *Catalog) KindOf(r host.Record) string {
	if t, ok := r.(Typed); ok {
		return t.RecordKind()
	}

	return ""
}

func (c *Catalog) SubKindOf(r host.Record) string {
	if t, ok := r.(Typed); ok {
		return t.RecordSubKind()
	}

	return ""
}

func (c *Catalog) IdentityOf(r host.Record) string {
	if t, ok := r.(Typed); ok {
		return t.RecordID()
	}

	return ""
}

func (c *Catalog) BundleLabelOf(kind string) string {
	if k, ok := c.kinds[kind]; ok {
		return k.BundleLabel
	}

	return ""
}

func (c *Catalog) BundleKeyOf(kind string) string {
	if k, ok := c.kinds[kind]; ok {
		return k.BundleKey
	}

	return DefaultBundleKey
}

func (c *Catalog) IdentityKeyOf(kind string) string {
	if k, ok := c.kinds[kind]; ok {
		return k.IdentityKey
	}

	return DefaultIdentityKey
}

func (c *Catalog) HasSubKind(kind, subKind string) bool {
	k, ok := c.kinds[kind]
	if !ok {
		return false
	}

	_, ok = k.subKinds[subKind]

	return ok
}

func (c *Catalog) IsMultiValued(kind, subKind, field string) bool {
	fd, ok := c.field(kind, subKind, field)
	return ok && fd.Multiple
}

func (c *Catalog) IsRelationship(kind, subKind, field string) bool {
	fd, ok := c.field(kind, subKind, field)
	return ok && fd.IsRelationship()
}

// FieldReadable hides fields declared hidden.
func (c *Catalog) FieldReadable(r host.Record, field string) bool {
	fd, ok := c.field(c.KindOf(r), c.SubKindOf(r), field)
	return !ok || !fd.Hidden
}

// FieldWritable rejects key fields and fields declared hidden or read-only.
func (c *Catalog) FieldWritable(r host.Record, field string) bool {
	kind := c.KindOf(r)
	if field == c.IdentityKeyOf(kind) || field == c.BundleKeyOf(kind) {
		return false
	}

	fd, ok := c.field(kind, c.SubKindOf(r), field)

	return ok && !fd.Hidden && !fd.ReadOnly
}

// Allowed applies the kind's operations restriction, if any.
func (c *Catalog) Allowed(r host.Record, op host.Operation) bool {
	k, ok := c.kinds[c.KindOf(r)]
	if !ok {
		return false
	}

	return k.operations == nil || k.operations[op]
}
