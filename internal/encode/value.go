package encode

import (
	"resource-mapper/internal/document"
	"resource-mapper/internal/host"
	"resource-mapper/internal/schema"
)

// valueEncoder encodes one field value. Plain values pass through the
// field's transform; references yield linkages.
type valueEncoder struct {
	enc     *Encoder
	mapping schema.FieldMapping
	t       *traversal
}

func (v *valueEncoder) VisitScalar(s host.Scalar) (any, error) {
	return v.enc.transforms.Normalize(v.mapping.Transform, s.Value)
}

func (v *valueEncoder) VisitMulti(m host.Multi) (any, error) {
	out := make([]any, 0, len(m.Values))

	for _, item := range m.Values {
		n, err := v.enc.transforms.Normalize(v.mapping.Transform, item)
		if err != nil {
			return nil, err
		}

		out = append(out, n)
	}

	return out, nil
}

func (v *valueEncoder) VisitReference(r host.Reference) (any, error) {
	if r.Target == nil {
		return document.ToOne(nil), nil
	}

	id, err := v.enc.nested(r.Target, v.t)
	if err != nil {
		return nil, err
	}

	return document.ToOne(&id), nil
}

func (v *valueEncoder) VisitReferences(r host.References) (any, error) {
	ids := make([]document.Identifier, 0, len(r.Targets))

	for _, target := range r.Targets {
		if target == nil {
			continue
		}

		id, err := v.enc.nested(target, v.t)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return document.ToMany(ids), nil
}
