// Package decode turns inbound resource objects into host creation and
// update inputs for the endpoint a request addresses.
package decode

import (
	"resource-mapper/internal/apierr"
	"resource-mapper/internal/document"
	"resource-mapper/internal/host"
	"resource-mapper/internal/request"
	"resource-mapper/internal/schema"
	"resource-mapper/internal/transform"
)

// Decoder decodes payloads for one request view.
type Decoder struct {
	view       *request.View
	meta       host.Metadata
	transforms *transform.Registry
}

// New creates a Decoder.
func New(view *request.View, meta host.Metadata, transforms *transform.Registry) *Decoder {
	return &Decoder{view: view, meta: meta, transforms: transforms}
}

// Result is a decoded resource.
type Result struct {
	SubKind string
	// Input is keyed by host field name.
	Input host.Input
	// Sources maps each host field in Input to the exposed name it came from.
	Sources map[string]string
}

// Decode maps ro onto the addressed endpoint's field table for the sub-kind
// the payload identifies.
func (d *Decoder) Decode(ro *document.ResourceObject) (*Result, error) {
	ep := d.view.Endpoint()
	kind := ep.Kind

	bundleExposed := d.bundleExposedName(ep)

	sub, err := d.identifySubKind(ep, ro, bundleExposed)
	if err != nil {
		return nil, err
	}

	res := &Result{SubKind: sub, Input: host.Input{}, Sources: map[string]string{}}

	for _, m := range ep.FieldsFor(sub).Mappings() {
		if m.Exposed == bundleExposed || d.isDerivedCore(kind, m.Source) {
			continue
		}

		value, ok, err := d.read(ro, kind, sub, m)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		res.Input[m.Source] = value
		res.Sources[m.Source] = m.Exposed
	}

	if v, ok := res.Input[schema.CoreID]; ok {
		idKey := d.meta.IdentityKeyOf(kind)
		exposed := res.Sources[schema.CoreID]

		delete(res.Input, schema.CoreID)
		delete(res.Sources, schema.CoreID)

		res.Input[idKey] = v
		res.Sources[idKey] = exposed
	}

	bundleKey := d.meta.BundleKeyOf(kind)
	res.Input[bundleKey] = sub
	res.Sources[bundleKey] = bundleExposed

	return res, nil
}

// bundleExposedName finds the exposed name carrying the sub-kind: the entry
// whose source is "bundle", the kind's bundle label or its bundle key.
func (d *Decoder) bundleExposedName(ep *schema.Endpoint) string {
	candidates := []string{
		schema.CoreBundle,
		d.meta.BundleLabelOf(ep.Kind),
		d.meta.BundleKeyOf(ep.Kind),
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}

		if m, ok := ep.Fields().Lookup(c); ok {
			return m.Exposed
		}
	}

	return ""
}

func (d *Decoder) identifySubKind(ep *schema.Endpoint, ro *document.ResourceObject, bundleExposed string) (string, error) {
	var sub string

	switch {
	case len(ep.SubKinds) == 1:
		sub = ep.SubKinds[0]

	case bundleExposed == "":
		return "", apierr.BadRequest(
			"This endpoint encompasses multiple %ss, but the %s is not exposed, so the kind of record to create cannot be determined",
			subKindLabel(d.meta, ep.Kind), subKindLabel(d.meta, ep.Kind))

	case bundleExposed == schema.ExposedType:
		sub = ro.Type

	case bundleExposed == schema.ExposedID:
		sub = ro.ID

	default:
		v, ok := ro.Attribute(bundleExposed)
		if !ok || v == nil {
			return "", apierr.BadRequest("You must specify %s", bundleExposed)
		}

		s, isString := v.(string)
		if !isString {
			return "", apierr.BadRequest("%s must be a string", bundleExposed)
		}

		sub = s
	}

	if sub == "" || !ep.Allows(sub) || !d.meta.HasSubKind(ep.Kind, sub) {
		return "", apierr.BadRequest("%q is not a valid %s for this endpoint", sub, subKindLabel(d.meta, ep.Kind))
	}

	return sub, nil
}

// isDerivedCore reports core sources that are computed from the record and
// never written back. The identity is the exception.
func (d *Decoder) isDerivedCore(kind, source string) bool {
	switch source {
	case schema.CoreEntityType, schema.CoreBundleLabel, schema.CoreBundle:
		return true
	}

	label := d.meta.BundleLabelOf(kind)

	return label != "" && source == label
}

func (d *Decoder) read(ro *document.ResourceObject, kind, sub string, m schema.FieldMapping) (any, bool, error) {
	switch m.Exposed {
	case schema.ExposedType:
		return ro.Type, true, nil
	case schema.ExposedID:
		if ro.ID == "" {
			return nil, false, nil
		}

		return ro.ID, true, nil
	}

	if raw, ok := ro.Attribute(m.Exposed); ok {
		v, err := d.transforms.Denormalize(m.Transform, host.Canonical(raw))
		if err != nil {
			if apierr.IsBadRequest(err) {
				return nil, false, err
			}

			return nil, false, apierr.BadRequest("%s: %v", m.Exposed, err)
		}

		return v, true, nil
	}

	linkage, ok := ro.Relationship(m.Exposed)
	if !ok {
		return nil, false, nil
	}

	if !d.meta.IsRelationship(kind, sub, m.Source) {
		return nil, false, apierr.BadRequest("%s is not a relationship", m.Exposed)
	}

	if d.meta.IsMultiValued(kind, sub, m.Source) {
		if !linkage.IsMany() {
			return nil, false, apierr.BadRequest("%s is a to-many relationship and needs a list of references", m.Exposed)
		}

		return targetRefs(linkage.Identifiers()), true, nil
	}

	if linkage.IsMany() {
		return nil, false, apierr.BadRequest("%s is a to-one relationship and takes a single reference", m.Exposed)
	}

	if linkage.IsNull() {
		return host.TargetRef{}, true, nil
	}

	return host.Target(linkage.Identifiers()[0].ID), true, nil
}

// Targets reads the reference list of a relationship endpoint payload.
func (d *Decoder) Targets(data document.Data) ([]host.TargetRef, error) {
	l, isLinkage := data.Linkage()
	if !data.IsMany() && !(isLinkage && l.IsMany()) {
		return nil, apierr.BadRequest("relationship payload must contain an array of resources")
	}

	return targetRefs(data.Identifiers()), nil
}

func targetRefs(ids []document.Identifier) []host.TargetRef {
	out := make([]host.TargetRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, host.Target(id.ID))
	}

	return out
}

func subKindLabel(meta host.Metadata, kind string) string {
	if label := meta.BundleLabelOf(kind); label != "" {
		return label
	}

	return "sub-kind"
}
