package host

// ValueKind tags the variant of a FieldValue.
//
//go:generate go tool stringer -type=ValueKind -trimprefix=Kind -output=valuekind_string.go
type ValueKind int

const (
	KindScalar ValueKind = iota
	KindMulti
	KindReference
	KindReferences
)

// FieldValue is the value of one host field. The set of implementations is
// closed; use Accept to dispatch.
type FieldValue interface {
	Kind() ValueKind
	Accept(v Visitor) (any, error)
	fieldValue()
}

// Visitor receives exactly one call per Accept.
type Visitor interface {
	VisitScalar(v Scalar) (any, error)
	VisitMulti(v Multi) (any, error)
	VisitReference(v Reference) (any, error)
	VisitReferences(v References) (any, error)
}

// Scalar is a single plain value (string, number, bool, nil, nested map...).
type Scalar struct {
	Value any
}

// Multi is a multi-valued plain field.
type Multi struct {
	Values []any
}

// Reference points at one related record. A nil Target is an empty reference.
type Reference struct {
	Target Record
}

// References points at an ordered list of related records.
type References struct {
	Targets []Record
}

func (Scalar) Kind() ValueKind     { return KindScalar }
func (Multi) Kind() ValueKind      { return KindMulti }
func (Reference) Kind() ValueKind  { return KindReference }
func (References) Kind() ValueKind { return KindReferences }

func (s Scalar) Accept(v Visitor) (any, error)     { return v.VisitScalar(s) }
func (m Multi) Accept(v Visitor) (any, error)      { return v.VisitMulti(m) }
func (r Reference) Accept(v Visitor) (any, error)  { return v.VisitReference(r) }
func (r References) Accept(v Visitor) (any, error) { return v.VisitReferences(r) }

func (Scalar) fieldValue()     {}
func (Multi) fieldValue()      {}
func (Reference) fieldValue()  {}
func (References) fieldValue() {}

// IsRelationship reports whether the value links to other records.
func IsRelationship(v FieldValue) bool {
	k := v.Kind()
	return k == KindReference || k == KindReferences
}
