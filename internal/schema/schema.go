package schema

import (
	"sort"

	"resource-mapper/internal/diagnostic"
)

// Core field names synthesized for every record.
const (
	CoreEntityType  = "entity-type"
	CoreID          = "id"
	CoreBundleLabel = "bundle-label"
	CoreBundle      = "bundle"
)

// Reserved exposed names.
const (
	ExposedType = "type"
	ExposedID   = "id"
)

// FieldMapping is one compiled source -> exposed mapping.
type FieldMapping struct {
	Source    string
	Exposed   string
	Transform string
	// Injected marks the default type/id mappings added by Compile.
	Injected bool
}

// FieldTable is an immutable set of field mappings with unique source and
// exposed names.
type FieldTable struct {
	bySource  map[string]FieldMapping
	byExposed map[string]string
	sources   []string
}

func newFieldTable(mappings []FieldMapping) *FieldTable {
	t := &FieldTable{
		bySource:  make(map[string]FieldMapping, len(mappings)),
		byExposed: make(map[string]string, len(mappings)),
	}

	for _, m := range mappings {
		t.bySource[m.Source] = m
		t.byExposed[m.Exposed] = m.Source
	}

	t.sources = make([]string, 0, len(t.bySource))
	for s := range t.bySource {
		t.sources = append(t.sources, s)
	}

	sort.Strings(t.sources)

	return t
}

// Lookup returns the mapping for a host field.
func (t *FieldTable) Lookup(source string) (FieldMapping, bool) {
	m, ok := t.bySource[source]
	return m, ok
}

// ByExposed returns the mapping exposed under name.
func (t *FieldTable) ByExposed(name string) (FieldMapping, bool) {
	src, ok := t.byExposed[name]
	if !ok {
		return FieldMapping{}, false
	}

	return t.bySource[src], true
}

// Sources returns the host field names, sorted.
func (t *FieldTable) Sources() []string {
	return t.sources
}

// Mappings returns every mapping ordered by source name.
func (t *FieldTable) Mappings() []FieldMapping {
	out := make([]FieldMapping, 0, len(t.sources))
	for _, s := range t.sources {
		out = append(out, t.bySource[s])
	}

	return out
}

// TypeSource returns the host field exposed as "type".
func (t *FieldTable) TypeSource() string {
	return t.byExposed[ExposedType]
}

// Len returns the number of mappings.
func (t *FieldTable) Len() int {
	return len(t.sources)
}

// minimalTable renders records of kinds with no endpoint of their own.
var minimalTable = newFieldTable([]FieldMapping{
	{Source: CoreEntityType, Exposed: ExposedType, Injected: true},
	{Source: CoreID, Exposed: ExposedID, Injected: true},
})

// MinimalTable returns the table used for kinds with no endpoint.
func MinimalTable() *FieldTable {
	return minimalTable
}

type extension struct {
	fields  *FieldTable
	include []string
}

// Endpoint is one compiled mount point.
type Endpoint struct {
	Scope    string
	Mount    string
	Kind     string
	SubKinds []string

	fields     *FieldTable
	include    []string
	extensions map[string]*extension
}

// Restricted reports whether the endpoint only serves listed sub-kinds.
func (e *Endpoint) Restricted() bool {
	return len(e.SubKinds) > 0
}

// Allows reports whether subKind may be served by a restricted endpoint.
// Unrestricted endpoints allow everything.
func (e *Endpoint) Allows(subKind string) bool {
	if !e.Restricted() {
		return true
	}

	for _, s := range e.SubKinds {
		if s == subKind {
			return true
		}
	}

	return false
}

// Fields returns the base field table.
func (e *Endpoint) Fields() *FieldTable {
	return e.fields
}

// FieldsFor returns the field table resolved for a sub-kind: the base table
// merged with the sub-kind's extension, if any.
func (e *Endpoint) FieldsFor(subKind string) *FieldTable {
	if ext, ok := e.extensions[subKind]; ok {
		return ext.fields
	}

	return e.fields
}

// DefaultIncludeFor returns the default include paths for a sub-kind: the
// base list followed by the extension's own. Duplicates are kept.
func (e *Endpoint) DefaultIncludeFor(subKind string) []string {
	if ext, ok := e.extensions[subKind]; ok {
		return ext.include
	}

	return e.include
}

// ExtendedSubKinds returns the sub-kinds with an extension, sorted.
func (e *Endpoint) ExtendedSubKinds() []string {
	out := make([]string, 0, len(e.extensions))
	for s := range e.extensions {
		out = append(out, s)
	}

	sort.Strings(out)

	return out
}

// Tables returns the base table followed by every extended table in
// sub-kind order.
func (e *Endpoint) Tables() []*FieldTable {
	out := []*FieldTable{e.fields}
	for _, s := range e.ExtendedSubKinds() {
		out = append(out, e.extensions[s].fields)
	}

	return out
}

type kindSubKind struct {
	kind    string
	subKind string
}

// Scope is a named group of endpoints with its reverse indexes.
type Scope struct {
	Name string

	endpoints map[string]*Endpoint
	mounts    []string
	byKind    map[string]string
	bySubKind map[kindSubKind]string
}

// Endpoint returns the endpoint mounted at mount.
func (s *Scope) Endpoint(mount string) (*Endpoint, bool) {
	e, ok := s.endpoints[mount]
	return e, ok
}

// Mounts returns every mount path, sorted.
func (s *Scope) Mounts() []string {
	return s.mounts
}

// EndpointFor finds the endpoint that renders records of (kind, subKind):
// a sub-kind-restricted endpoint first, then an unrestricted one.
func (s *Scope) EndpointFor(kind, subKind string) (*Endpoint, bool) {
	if mount, ok := s.bySubKind[kindSubKind{kind, subKind}]; ok {
		return s.endpoints[mount], true
	}

	if mount, ok := s.byKind[kind]; ok {
		return s.endpoints[mount], true
	}

	return nil, false
}

// FieldsFor returns the resolved table for (kind, subKind), or the minimal
// type/id table when no endpoint serves the kind.
func (s *Scope) FieldsFor(kind, subKind string) *FieldTable {
	e, ok := s.EndpointFor(kind, subKind)
	if !ok {
		return minimalTable
	}

	return e.FieldsFor(subKind)
}

// DefaultIncludeFor returns the resolved default includes for (kind, subKind).
func (s *Scope) DefaultIncludeFor(kind, subKind string) []string {
	e, ok := s.EndpointFor(kind, subKind)
	if !ok {
		return nil
	}

	return e.DefaultIncludeFor(subKind)
}

// Schema is the compiled form of a schema file.
type Schema struct {
	scopes map[string]*Scope
	names  []string
	// Warnings holds non-fatal findings from compilation.
	Warnings diagnostic.Diagnostics
}

// Scope returns a scope by name.
func (s *Schema) Scope(name string) (*Scope, bool) {
	sc, ok := s.scopes[name]
	return sc, ok
}

// ScopeNames returns every scope name, sorted.
func (s *Schema) ScopeNames() []string {
	return s.names
}

// ConfigError reports every problem found while compiling a schema.
type ConfigError struct {
	Diagnostics diagnostic.Diagnostics
}

func (e *ConfigError) Error() string {
	return "invalid schema: " + e.Diagnostics.Error().Error()
}
