package document

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Identifier is a {type, id} reference to a resource.
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Linkage is the "data" member of a relationship: null, one identifier or an
// ordered list of identifiers.
type Linkage struct {
	many bool
	refs []Identifier
}

// ToOne returns a to-one linkage; a nil identifier yields a null linkage.
func ToOne(id *Identifier) Linkage {
	if id == nil {
		return Linkage{}
	}

	return Linkage{refs: []Identifier{*id}}
}

// ToMany returns a to-many linkage. An empty list stays a list.
func ToMany(ids []Identifier) Linkage {
	return Linkage{many: true, refs: append([]Identifier{}, ids...)}
}

// IsMany reports whether the linkage is a list.
func (l Linkage) IsMany() bool { return l.many }

// IsNull reports whether the linkage is an explicit null.
func (l Linkage) IsNull() bool { return !l.many && len(l.refs) == 0 }

// Identifiers returns the referenced identifiers in order.
func (l Linkage) Identifiers() []Identifier { return l.refs }

// MarshalJSON implements json.Marshaler.
func (l Linkage) MarshalJSON() ([]byte, error) {
	switch {
	case l.many:
		return json.Marshal(l.refs)
	case len(l.refs) == 0:
		return []byte("null"), nil
	default:
		return json.Marshal(l.refs[0])
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Linkage) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	switch {
	case len(b) == 0:
		return errors.New("empty linkage")
	case bytes.Equal(b, []byte("null")):
		*l = Linkage{}
	case b[0] == '[':
		var ids []Identifier
		if err := json.Unmarshal(b, &ids); err != nil {
			return err
		}

		*l = ToMany(ids)
	case b[0] == '{':
		var id Identifier
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}

		*l = ToOne(&id)
	default:
		return errors.New("linkage must be null, an object or a list")
	}

	return nil
}

// Relationship is one entry of a resource object's "relationships" member.
type Relationship struct {
	Data Linkage `json:"data"`
}

// UnmarshalJSON keeps an explicit "data": null distinct from a missing member.
func (r *Relationship) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	data, ok := raw["data"]
	if !ok {
		return errors.New("relationship has no data member")
	}

	return r.Data.UnmarshalJSON(data)
}
