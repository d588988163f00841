package server

import (
	"errors"
	"net/http"

	"resource-mapper/internal/apierr"
	"resource-mapper/internal/decode"
	"resource-mapper/internal/document"
	"resource-mapper/internal/host"
	"resource-mapper/internal/request"
	"resource-mapper/internal/schema"
)

// handleCollectionGet handles GET /<scope>/<mount>.
func (s *Server) handleCollectionGet(c *call) (*response, error) {
	ep := c.view.Endpoint()
	q := host.Query{SubKinds: ep.SubKinds}

	for _, f := range c.view.Filters() {
		fields := s.storageFields(ep.Kind, c.view.HostFields(f.Name))
		if len(fields) == 0 {
			return nil, apierr.BadRequest("Can't filter on %s", f.Name)
		}

		q.Filters = append(q.Filters, host.Filter{Fields: fields, Values: f.Values})
	}

	for _, key := range c.view.SortKeys() {
		source, ok := c.view.HostField("", key.Name)
		if !ok {
			return nil, apierr.BadRequest("Can't sort by %s", key.Name)
		}

		field, ok := request.StorageField(s.meta, ep.Kind, source)
		if !ok {
			return nil, apierr.BadRequest("Can't sort by %s", key.Name)
		}

		q.Sort = append(q.Sort, host.SortKey{Field: field, Desc: key.Desc})
	}

	ids, err := c.storage.Query(c.r.Context(), q)
	if err != nil {
		return nil, err
	}

	recs, err := c.storage.LoadMany(c.r.Context(), ids)
	if err != nil {
		return nil, err
	}

	visible := make([]host.Record, 0, len(recs))
	for _, r := range recs {
		if s.access.Allowed(r, host.OpView) {
			visible = append(visible, r)
		}
	}

	doc, err := c.enc.Document(visible)
	if err != nil {
		return nil, err
	}

	return &response{status: http.StatusOK, doc: doc}, nil
}

func (s *Server) storageFields(kind string, sources []string) []string {
	var out []string

	for _, src := range sources {
		if f, ok := request.StorageField(s.meta, kind, src); ok {
			out = append(out, f)
		}
	}

	return out
}

// handleCollectionPost handles POST /<scope>/<mount>.
func (s *Server) handleCollectionPost(c *call) (*response, error) {
	ro, err := s.singleResource(c, "POST to a collection endpoint must contain a single resource")
	if err != nil {
		return nil, err
	}

	res, err := s.decode(c, ro)
	if err != nil {
		return nil, err
	}

	if id, ok := res.Input[s.meta.IdentityKeyOf(c.kind())]; ok && id != nil && id != "" {
		return nil, apierr.Forbidden("This server does not accept client-generated IDs")
	}

	rec, err := c.storage.Create(c.r.Context(), res.Input)
	if err != nil {
		return nil, err
	}

	if !s.access.Allowed(rec, host.OpCreate) {
		return nil, apierr.Forbidden("You are not authorized to create this entity.")
	}

	if err := c.storage.Save(c.r.Context(), rec); err != nil {
		return nil, err
	}

	doc, err := c.enc.Document(host.Record(rec))
	if err != nil {
		return nil, err
	}

	return &response{status: http.StatusCreated, doc: doc}, nil
}

// handleIndividualGet handles GET /<scope>/<mount>/{id}.
func (s *Server) handleIndividualGet(c *call) (*response, error) {
	rec, err := s.load(c, host.OpView)
	if err != nil {
		return nil, err
	}

	doc, err := c.enc.Document(rec)
	if err != nil {
		return nil, err
	}

	return &response{status: http.StatusOK, doc: doc}, nil
}

// handleIndividualPatch handles PATCH /<scope>/<mount>/{id}. Only supplied,
// writable fields change; fields exposed as type or id are never written.
// Read-only fields are ignored rather than refused.
func (s *Server) handleIndividualPatch(c *call) (*response, error) {
	rec, err := s.load(c, host.OpEdit)
	if err != nil {
		return nil, err
	}

	ro, err := s.singleResource(c, "PATCH to an individual endpoint must contain a single resource")
	if err != nil {
		return nil, err
	}

	res, err := s.decode(c, ro)
	if err != nil {
		return nil, err
	}

	mut, ok := rec.(host.MutableRecord)
	if !ok {
		return nil, apierr.MethodNotAllowed("%s records are read-only", c.kind())
	}

	for _, name := range rec.Fields() {
		value, supplied := res.Input[name]
		if !supplied || !s.access.FieldWritable(rec, name) {
			continue
		}

		switch res.Sources[name] {
		case schema.ExposedID, schema.ExposedType:
			continue
		}

		if err := mut.Set(name, value); err != nil {
			return nil, err
		}
	}

	if err := c.storage.Save(c.r.Context(), mut); err != nil {
		return nil, err
	}

	doc, err := c.enc.Document(host.Record(mut))
	if err != nil {
		return nil, err
	}

	return &response{status: http.StatusOK, doc: doc}, nil
}

// handleIndividualDelete handles DELETE /<scope>/<mount>/{id}.
func (s *Server) handleIndividualDelete(c *call) (*response, error) {
	rec, err := s.load(c, host.OpDelete)
	if err != nil {
		return nil, err
	}

	if err := c.storage.Delete(c.r.Context(), rec); err != nil {
		return nil, err
	}

	return &response{status: http.StatusNoContent}, nil
}

// load fetches the addressed record and checks op on it. A record of a
// sub-kind the endpoint does not serve is reported as missing.
func (s *Server) load(c *call, op host.Operation) (host.Record, error) {
	notFound := func(err error) *apierr.Error {
		return &apierr.Error{
			Status: http.StatusNotFound,
			Title:  c.kind() + " not found",
			Detail: "where id=" + c.id(),
			Err:    err,
		}
	}

	rec, err := c.storage.Load(c.r.Context(), c.id())
	if errors.Is(err, host.ErrNotFound) {
		return nil, notFound(err)
	}

	if err != nil {
		return nil, err
	}

	if !c.view.Endpoint().Allows(s.meta.SubKindOf(rec)) {
		return nil, notFound(nil)
	}

	if !s.access.Allowed(rec, op) {
		return nil, &apierr.Error{
			Status: http.StatusForbidden,
			Title:  "Access denied to " + c.kind(),
			Detail: "where id=" + c.id(),
		}
	}

	return rec, nil
}

// singleResource parses the request body and requires one resource object.
func (s *Server) singleResource(c *call, detail string) (*document.ResourceObject, error) {
	doc, err := document.Parse(c.r.Body)
	if err != nil {
		return nil, err
	}

	ro, ok := doc.Data.One()
	if !ok {
		return nil, apierr.BadRequest("%s", detail)
	}

	return ro, nil
}

func (s *Server) decode(c *call, ro *document.ResourceObject) (*decode.Result, error) {
	res, err := c.dec.Decode(ro)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDecode(c.view.Endpoint().Mount)
	c.inputs = res.Input

	return res, nil
}
