package server

import (
	"net/http"
	"slices"

	"resource-mapper/internal/apierr"
	"resource-mapper/internal/document"
	"resource-mapper/internal/encode"
	"resource-mapper/internal/host"
)

// handleRelationshipGet handles GET .../{id}/relationships/{related}.
func (s *Server) handleRelationshipGet(c *call) (*response, error) {
	rec, err := s.load(c, host.OpView)
	if err != nil {
		return nil, err
	}

	doc, err := c.enc.Document(encode.Relationship{Owner: rec, Field: c.related()})
	if err != nil {
		return nil, err
	}

	return &response{status: http.StatusOK, doc: doc}, nil
}

// handleRelatedGet handles GET .../{id}/{related}. It answers like the
// relationship endpoint with full resources instead of linkage.
func (s *Server) handleRelatedGet(c *call) (*response, error) {
	rec, err := s.load(c, host.OpView)
	if err != nil {
		return nil, err
	}

	doc, err := c.enc.Document(encode.Related{Owner: rec, Field: c.related()})
	if err != nil {
		return nil, err
	}

	return &response{status: http.StatusOK, doc: doc}, nil
}

// handleRelationshipPost handles POST .../{id}/relationships/{related}:
// targets not yet present are appended.
func (s *Server) handleRelationshipPost(c *call) (*response, error) {
	return s.updateToMany(c, func(current []host.TargetRef, payload []host.TargetRef) []host.TargetRef {
		for _, t := range payload {
			if !containsTarget(current, t.ID()) {
				current = append(current, t)
			}
		}

		return current
	})
}

// handleRelationshipDelete handles DELETE .../{id}/relationships/{related}:
// targets named in the payload are removed.
func (s *Server) handleRelationshipDelete(c *call) (*response, error) {
	return s.updateToMany(c, func(current []host.TargetRef, payload []host.TargetRef) []host.TargetRef {
		return slices.DeleteFunc(current, func(t host.TargetRef) bool {
			return containsTarget(payload, t.ID())
		})
	})
}

type targetsUpdate func(current, payload []host.TargetRef) []host.TargetRef

func (s *Server) updateToMany(c *call, update targetsUpdate) (*response, error) {
	rec, err := s.load(c, host.OpEdit)
	if err != nil {
		return nil, err
	}

	kind, sub := s.meta.KindOf(rec), s.meta.SubKindOf(rec)

	m, ok := c.view.FieldsFor(kind, sub).ByExposed(c.related())
	if !ok {
		return nil, apierr.BadRequest("%s is not a known field", c.related())
	}

	if !s.meta.IsRelationship(kind, sub, m.Source) {
		return nil, apierr.BadRequest("%s is not a relationship", c.related())
	}

	method := c.r.Method
	if !s.meta.IsMultiValued(kind, sub, m.Source) {
		return nil, apierr.MethodNotAllowed("You may not %s a one-to-one relationship endpoint, use PATCH", method)
	}

	if !s.access.FieldWritable(rec, m.Source) {
		return nil, apierr.Forbidden("%s is not writable", c.related())
	}

	mut, ok := rec.(host.MutableRecord)
	if !ok {
		return nil, apierr.MethodNotAllowed("%s records are read-only", c.kind())
	}

	doc, err := document.Parse(c.r.Body)
	if err != nil {
		return nil, err
	}

	if !doc.Data.IsMany() {
		return nil, apierr.BadRequest("%s to a one-to-many relationship endpoint must contain an array of resources", method)
	}

	payload, err := c.dec.Targets(doc.Data)
	if err != nil {
		return nil, err
	}

	targets := update(s.currentTargets(rec, m.Source), payload)
	if err := mut.Set(m.Source, targets); err != nil {
		return nil, err
	}

	if err := c.storage.Save(c.r.Context(), mut); err != nil {
		return nil, err
	}

	out, err := c.enc.Document(encode.Relationship{Owner: mut, Field: c.related()})
	if err != nil {
		return nil, err
	}

	return &response{status: http.StatusOK, doc: out}, nil
}

func (s *Server) currentTargets(rec host.Record, field string) []host.TargetRef {
	value, ok := rec.Field(field)
	if !ok {
		return nil
	}

	refs, ok := value.(host.References)
	if !ok {
		return nil
	}

	out := make([]host.TargetRef, 0, len(refs.Targets))
	for _, t := range refs.Targets {
		out = append(out, host.Target(s.meta.IdentityOf(t)))
	}

	return out
}

func containsTarget(ts []host.TargetRef, id string) bool {
	return slices.ContainsFunc(ts, func(t host.TargetRef) bool { return t.ID() == id })
}
