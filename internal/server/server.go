// Package server exposes every scope and endpoint of a compiled schema over
// HTTP, mapping host records to and from resource documents.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resource-mapper/internal/apierr"
	"resource-mapper/internal/decode"
	"resource-mapper/internal/document"
	"resource-mapper/internal/encode"
	"resource-mapper/internal/host"
	"resource-mapper/internal/metrics"
	"resource-mapper/internal/request"
	"resource-mapper/internal/schema"
	"resource-mapper/internal/transform"
)

// Config holds the collaborators of a Server.
type Config struct {
	Schema   *schema.Schema
	Metadata host.Metadata
	// Access defaults to host.AllowAll.
	Access host.Access
	Stores host.Stores
	// Transforms defaults to transform.Default().
	Transforms *transform.Registry
	// Logger defaults to slog.Default().
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Gatherer, when set, is served at /metrics.
	Gatherer prometheus.Gatherer
}

// Server serves the endpoints of a schema.
type Server struct {
	schema     *schema.Schema
	meta       host.Metadata
	access     host.Access
	stores     host.Stores
	transforms *transform.Registry
	logger     *slog.Logger
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
}

// New creates a Server.
func New(cfg Config) *Server {
	s := &Server{
		schema:     cfg.Schema,
		meta:       cfg.Metadata,
		access:     cfg.Access,
		stores:     cfg.Stores,
		transforms: cfg.Transforms,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		gatherer:   cfg.Gatherer,
	}

	if s.access == nil {
		s.access = host.AllowAll{}
	}

	if s.transforms == nil {
		s.transforms = transform.Default()
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Handler returns an http.Handler with every scope's routes registered:
//
//	GET|POST          /<scope>/<mount>
//	GET|PATCH|DELETE  /<scope>/<mount>/{id}
//	GET               /<scope>/<mount>/{id}/{related}
//	GET|POST|DELETE   /<scope>/<mount>/{id}/relationships/{related}
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, name := range s.schema.ScopeNames() {
		sc, _ := s.schema.Scope(name)

		for _, mount := range sc.Mounts() {
			base := "/" + name + "/" + mount

			mux.Handle("GET "+base, s.route(sc, mount, s.handleCollectionGet))
			mux.Handle("POST "+base, s.route(sc, mount, s.handleCollectionPost))
			mux.Handle("GET "+base+"/{id}", s.route(sc, mount, s.handleIndividualGet))
			mux.Handle("PATCH "+base+"/{id}", s.route(sc, mount, s.handleIndividualPatch))
			mux.Handle("DELETE "+base+"/{id}", s.route(sc, mount, s.handleIndividualDelete))
			mux.Handle("GET "+base+"/{id}/{related}", s.route(sc, mount, s.handleRelatedGet))
			mux.Handle("GET "+base+"/{id}/relationships/{related}", s.route(sc, mount, s.handleRelationshipGet))
			mux.Handle("POST "+base+"/{id}/relationships/{related}", s.route(sc, mount, s.handleRelationshipPost))
			mux.Handle("DELETE "+base+"/{id}/relationships/{related}", s.route(sc, mount, s.handleRelationshipDelete))
		}
	}

	mux.HandleFunc("GET /health", s.handleHealth)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// call is the per-request state handed to a handler.
type call struct {
	r       *http.Request
	view    *request.View
	storage host.Storage
	enc     *encode.Encoder
	dec     *decode.Decoder
	// inputs is the decoded payload, reported in debug meta.
	inputs host.Input
}

func (c *call) id() string      { return c.r.PathValue("id") }
func (c *call) related() string { return c.r.PathValue("related") }
func (c *call) kind() string    { return c.view.Endpoint().Kind }

// response is a handler's result. A nil doc writes no body.
type response struct {
	status int
	doc    *document.Document
}

type handlerFunc func(c *call) (*response, error)

// route wraps a handler with request setup and the error trap: request
// errors render as error documents, anything else is logged and becomes a
// generic 500.
func (s *Server) route(sc *schema.Scope, mount string, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := http.StatusInternalServerError

		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("panic while handling request",
					"method", r.Method, "path", r.URL.Path, "panic", p, "stack", string(debug.Stack()))
				status = s.writeError(w, r, apierr.Internal(fmt.Errorf("panic: %v", p)))
			}

			s.metrics.ObserveRequest(sc.Name, mount, r.Method, status, time.Since(start))
		}()

		resp, c, err := s.serve(sc, mount, r, h)
		if err != nil {
			status = s.writeError(w, r, err)
			return
		}

		status = resp.status
		s.writeResponse(w, c, resp)
	})
}

func (s *Server) serve(sc *schema.Scope, mount string, r *http.Request, h handlerFunc) (*response, *call, error) {
	view, err := request.New(sc, mount, request.ParseOptions(r.URL.Query()))
	if err != nil {
		return nil, nil, err
	}

	storage, err := s.stores.StorageFor(view.Endpoint().Kind)
	if err != nil {
		return nil, nil, err
	}

	c := &call{
		r:       r,
		view:    view,
		storage: storage,
		enc:     encode.New(view, s.meta, s.access, s.transforms),
		dec:     decode.New(view, s.meta, s.transforms),
	}

	resp, err := h(c)
	if err != nil {
		return nil, c, err
	}

	return resp, c, nil
}

func (s *Server) writeResponse(w http.ResponseWriter, c *call, resp *response) {
	if resp.doc == nil {
		w.WriteHeader(resp.status)
		return
	}

	if c.view.Debug() {
		resp.doc.AddMeta("options", c.view.Options())
		resp.doc.AddMeta("config", endpointConfig(c.view.Endpoint()))

		if c.inputs != nil {
			resp.doc.AddMeta("entity-creation-inputs", c.inputs)
		}
	}

	included := 0
	if resp.doc.Included != nil {
		included = resp.doc.Included.Len()
	}

	s.metrics.RecordEncode(c.view.Endpoint().Mount, included)

	body, err := json.Marshal(resp.doc)
	if err != nil {
		s.writeError(w, c.r, apierr.Internal(fmt.Errorf("encode response: %w", err)))
		return
	}

	w.Header().Set("Content-Type", document.MediaType)
	w.WriteHeader(resp.status)
	_, _ = w.Write(body)
}

// writeError renders err as an error document and returns the status sent.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) int {
	e := apierr.From(err)
	if e.Status == http.StatusInternalServerError {
		s.logger.Error("unexpected error", "method", r.Method, "path", r.URL.Path, "err", err)
	}

	s.metrics.RecordError(e.Status)

	w.Header().Set("Content-Type", document.MediaType)
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(document.ErrorDocument(e.Title, e.Detail))

	return e.Status
}

// endpointConfig summarizes the addressed endpoint for debug meta.
func endpointConfig(ep *schema.Endpoint) map[string]any {
	tables := map[string]map[string]string{"base": fieldMap(ep.Fields())}
	for _, sub := range ep.ExtendedSubKinds() {
		tables[sub] = fieldMap(ep.FieldsFor(sub))
	}

	return map[string]any{
		"kind":      ep.Kind,
		"sub-kinds": ep.SubKinds,
		"fields":    tables,
		"include":   ep.DefaultIncludeFor(""),
	}
}

func fieldMap(t *schema.FieldTable) map[string]string {
	out := make(map[string]string, t.Len())
	for _, m := range t.Mappings() {
		out[m.Source] = m.Exposed
	}

	return out
}
