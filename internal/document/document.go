package document

import (
	"bytes"
	"encoding/json"
	"io"

	"resource-mapper/internal/apierr"
)

// MediaType is the content type of every response body.
const MediaType = "application/vnd.api+json"

type dataKind int

const (
	dataNull dataKind = iota
	dataOne
	dataMany
	dataLinkage
)

// Data is the primary data of a document: null, one resource, a list of
// resources or a bare relationship linkage.
type Data struct {
	kind    dataKind
	one     *ResourceObject
	many    []*ResourceObject
	linkage Linkage
}

// One wraps a single resource.
func One(r *ResourceObject) Data { return Data{kind: dataOne, one: r} }

// Many wraps a list of resources. A nil list renders as [].
func Many(rs []*ResourceObject) Data {
	if rs == nil {
		rs = []*ResourceObject{}
	}

	return Data{kind: dataMany, many: rs}
}

// LinkageData wraps a relationship linkage as primary data.
func LinkageData(l Linkage) Data { return Data{kind: dataLinkage, linkage: l} }

// IsNull reports whether the data is null.
func (d Data) IsNull() bool { return d.kind == dataNull }

// IsMany reports whether the data is a list of resources.
func (d Data) IsMany() bool { return d.kind == dataMany }

// One returns the single resource, if that is what the data holds.
func (d Data) One() (*ResourceObject, bool) { return d.one, d.kind == dataOne }

// Many returns the resource list, if that is what the data holds.
func (d Data) Many() ([]*ResourceObject, bool) { return d.many, d.kind == dataMany }

// Linkage returns the linkage, if that is what the data holds.
func (d Data) Linkage() (Linkage, bool) { return d.linkage, d.kind == dataLinkage }

// MarshalJSON implements json.Marshaler.
func (d Data) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case dataOne:
		return json.Marshal(d.one)
	case dataMany:
		return json.Marshal(d.many)
	case dataLinkage:
		return d.linkage.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}

// ErrorObject is one entry of the "errors" array.
type ErrorObject struct {
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// Document is the top-level envelope. It is owned by one operation.
type Document struct {
	Data     Data
	Included *Included
	Meta     map[string]any
	Errors   []ErrorObject
}

// New returns an empty document with its own included side-table.
func New() *Document {
	return &Document{Included: NewIncluded()}
}

// ErrorDocument returns a document holding a single error.
func ErrorDocument(title, detail string) *Document {
	return &Document{Errors: []ErrorObject{{Title: title, Detail: detail}}}
}

// AddMeta sets a top-level meta member.
func (d *Document) AddMeta(key string, value any) {
	if d.Meta == nil {
		d.Meta = map[string]any{}
	}

	d.Meta[key] = value
}

type wireDocument struct {
	Data     *Data             `json:"data,omitempty"`
	Included []*ResourceObject `json:"included,omitempty"`
	Meta     map[string]any    `json:"meta,omitempty"`
	Errors   []ErrorObject     `json:"errors,omitempty"`
}

// MarshalJSON renders the envelope. Error documents carry no data member;
// empty included and meta members are omitted.
func (d *Document) MarshalJSON() ([]byte, error) {
	w := wireDocument{Meta: d.Meta}

	if len(d.Errors) > 0 {
		w.Errors = d.Errors
		return json.Marshal(w)
	}

	data := d.Data
	w.Data = &data

	if d.Included != nil && d.Included.Len() > 0 {
		w.Included = d.Included.All()
	}

	return json.Marshal(w)
}

// Parse decodes an inbound request document. Primary data must be a resource
// object carrying "type" or a list of them; a list is recognised by the
// absence of a top-level "type" key.
func Parse(r io.Reader) (*Document, error) {
	var raw struct {
		Data json.RawMessage `json:"data"`
		Meta map[string]any  `json:"meta"`
	}

	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, apierr.BadRequest("invalid JSON body: %v", err)
	}

	body := bytes.TrimSpace(raw.Data)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, apierr.BadRequest("Incoming document had no 'data' member")
	}

	doc := New()
	doc.Meta = raw.Meta

	var probe map[string]json.RawMessage
	if json.Unmarshal(body, &probe) == nil {
		if _, ok := probe["type"]; !ok {
			return nil, apierr.BadRequest("data must contain either a single object with a type, or a list of objects with types")
		}

		ro, err := parseResource(body)
		if err != nil {
			return nil, err
		}

		doc.Data = One(ro)

		return doc, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, apierr.BadRequest("'data' member was not a list or object")
	}

	resources := make([]*ResourceObject, 0, len(items))

	for _, item := range items {
		var p map[string]json.RawMessage
		if err := json.Unmarshal(item, &p); err != nil || p["type"] == nil {
			return nil, apierr.BadRequest("data must contain either a single object with a type, or a list of objects with types")
		}

		ro, err := parseResource(item)
		if err != nil {
			return nil, err
		}

		resources = append(resources, ro)
	}

	doc.Data = Many(resources)

	return doc, nil
}

// parseResource keeps attribute numbers as json.Number so integers survive
// without a float64 detour.
func parseResource(b []byte) (*ResourceObject, error) {
	var ro ResourceObject

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	if err := dec.Decode(&ro); err != nil {
		return nil, apierr.BadRequest("malformed resource object: %v", err)
	}

	if ro.Type == "" {
		return nil, apierr.BadRequest("resource object has an empty type")
	}

	return &ro, nil
}

// Identifiers returns the {type, id} of every resource or linkage entry in the
// data, in order. Null data yields nil.
func (d Data) Identifiers() []Identifier {
	switch d.kind {
	case dataOne:
		return []Identifier{d.one.Identifier()}
	case dataMany:
		ids := make([]Identifier, 0, len(d.many))
		for _, r := range d.many {
			ids = append(ids, r.Identifier())
		}

		return ids
	case dataLinkage:
		return d.linkage.Identifiers()
	default:
		return nil
	}
}
