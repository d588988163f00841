package host

import (
	"context"
	"errors"
)

// Collaborator sentinels. The mapping engine and the request layer propagate
// these unchanged; the request layer maps them to 404 and 403.
var (
	ErrNotFound  = errors.New("record not found")
	ErrForbidden = errors.New("access denied")
)

// Record is one node of the host's typed-record graph.
type Record interface {
	// Fields lists the host field names in display order.
	Fields() []string
	// Field returns the value of a host field.
	Field(name string) (FieldValue, bool)
}

// MutableRecord is a record that accepts writes before Storage.Save.
// Values are plain values, TargetRef (to-one) or []TargetRef (to-many).
type MutableRecord interface {
	Record
	Set(name string, value any) error
}

// Metadata answers questions about kinds and sub-kinds.
type Metadata interface {
	KindOf(r Record) string
	SubKindOf(r Record) string
	IdentityOf(r Record) string
	// BundleLabelOf returns the kebab-cased sub-kind label of a kind,
	// e.g. "content-type" or "vocabulary".
	BundleLabelOf(kind string) string
	// BundleKeyOf returns the host field holding the sub-kind, e.g. "type".
	BundleKeyOf(kind string) string
	// IdentityKeyOf returns the host field holding the identity, e.g. "nid".
	IdentityKeyOf(kind string) string
	HasSubKind(kind, subKind string) bool
	IsMultiValued(kind, subKind, field string) bool
	IsRelationship(kind, subKind, field string) bool
}

// Operation is a record-level action subject to access control.
type Operation string

const (
	OpView   Operation = "view"
	OpCreate Operation = "create"
	OpEdit   Operation = "edit"
	OpDelete Operation = "delete"
)

// Access is the host's permission oracle.
type Access interface {
	FieldReadable(r Record, field string) bool
	FieldWritable(r Record, field string) bool
	Allowed(r Record, op Operation) bool
}

// AllowAll grants every permission.
type AllowAll struct{}

func (AllowAll) FieldReadable(Record, string) bool { return true }
func (AllowAll) FieldWritable(Record, string) bool { return true }
func (AllowAll) Allowed(Record, Operation) bool    { return true }

// Storage persists records of one kind.
type Storage interface {
	// Load returns ErrNotFound when no record has the id.
	Load(ctx context.Context, id string) (Record, error)
	// LoadMany skips ids that do not exist and keeps the order of ids.
	LoadMany(ctx context.Context, ids []string) ([]Record, error)
	// Query returns matching ids; filter and sort fields are host field names.
	Query(ctx context.Context, q Query) ([]string, error)
	// Create builds an unsaved record from decoded input.
	Create(ctx context.Context, input Input) (MutableRecord, error)
	Save(ctx context.Context, r Record) error
	Delete(ctx context.Context, r Record) error
}

// Stores hands out the storage for a kind.
type Stores interface {
	StorageFor(kind string) (Storage, error)
}

// Input is a creation/update input map keyed by host field name.
type Input map[string]any

// TargetRef is the input form of one relationship target.
// A nil TargetID clears a to-one relationship.
type TargetRef struct {
	TargetID *string `json:"target_id"`
}

// Target returns a TargetRef pointing at id.
func Target(id string) TargetRef {
	return TargetRef{TargetID: &id}
}

// ID returns the target id, or "" for a null target.
func (t TargetRef) ID() string {
	if t.TargetID == nil {
		return ""
	}

	return *t.TargetID
}

// Query selects records of one kind.
type Query struct {
	// SubKinds restricts the result to these sub-kinds; empty means any.
	SubKinds []string
	// Filters are ANDed together.
	Filters []Filter
	Sort    []SortKey
}

// Filter matches a record when any of Fields holds any of Values.
type Filter struct {
	Fields []string
	Values []string
}

// SortKey orders by a host field.
type SortKey struct {
	Field string
	Desc  bool
}
