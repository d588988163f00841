package schema

import (
	"fmt"
	"sort"

	"resource-mapper/internal/diagnostic"
	"resource-mapper/internal/match"
	"resource-mapper/internal/transform"
)

// Diagnostic codes reported by Compile.
const (
	CodeDuplicateExposedName    = "duplicate_exposed_name"
	CodeUnknownTransform        = "unknown_transform"
	CodeMissingKind             = "missing_kind"
	CodeInvalidIncludePath      = "invalid_include_path"
	CodeInvalidFieldEntry       = "invalid_field_entry"
	CodeUnknownSubKindExtension = "unknown_sub_kind_extension"
	CodeShadowedEndpoint        = "shadowed_endpoint"
)

// Compile validates a parsed file and builds the immutable Schema. Every
// problem found is reported in one *ConfigError.
func Compile(f *File, transforms *transform.Registry) (*Schema, error) {
	c := &compiler{transforms: transforms}

	s := &Schema{scopes: map[string]*Scope{}}

	if f != nil {
		for _, name := range sortedKeys(f.Scopes) {
			s.scopes[name] = c.scope(name, f.Scopes[name])
			s.names = append(s.names, name)
		}
	}

	if c.diags.HasErrors() {
		return nil, &ConfigError{Diagnostics: c.diags}
	}

	s.Warnings.Warnings = c.diags.Warnings

	return s, nil
}

type compiler struct {
	transforms *transform.Registry
	diags      diagnostic.Diagnostics
}

func (c *compiler) scope(name string, decls map[string]*Declaration) *Scope {
	sc := &Scope{
		Name:      name,
		endpoints: map[string]*Endpoint{},
		byKind:    map[string]string{},
		bySubKind: map[kindSubKind]string{},
	}

	for _, mount := range sortedKeys(decls) {
		ep := c.endpoint(name, mount, decls[mount])
		if ep == nil {
			continue
		}

		sc.endpoints[mount] = ep
		sc.mounts = append(sc.mounts, mount)
		c.index(sc, ep)
	}

	return sc
}

// index registers ep in the reverse indexes. Mounts are visited in sorted
// order, so the first claimant of a key wins.
func (c *compiler) index(sc *Scope, ep *Endpoint) {
	label := endpointLabel(ep.Scope, ep.Mount)

	if !ep.Restricted() {
		if prev, ok := sc.byKind[ep.Kind]; ok {
			c.diags.AddWarning(CodeShadowedEndpoint,
				fmt.Sprintf("kind %q is already served by %q", ep.Kind, prev), label, "")

			return
		}

		sc.byKind[ep.Kind] = ep.Mount

		return
	}

	for _, sub := range ep.SubKinds {
		key := kindSubKind{ep.Kind, sub}
		if prev, ok := sc.bySubKind[key]; ok {
			c.diags.AddWarning(CodeShadowedEndpoint,
				fmt.Sprintf("%s/%s is already served by %q", ep.Kind, sub, prev), label, sub)

			continue
		}

		sc.bySubKind[key] = ep.Mount
	}
}

func (c *compiler) endpoint(scope, mount string, decl *Declaration) *Endpoint {
	label := endpointLabel(scope, mount)

	if decl == nil || decl.Kind == "" {
		c.diags.AddError(CodeMissingKind, "endpoint declares no kind", label, "")
		return nil
	}

	base := c.fieldMappings(label, decl.Fields)
	base = injectDefaults(base)
	c.checkUnique(label, "", base)

	ep := &Endpoint{
		Scope:      scope,
		Mount:      mount,
		Kind:       decl.Kind,
		SubKinds:   append([]string(nil), decl.SubKinds...),
		fields:     newFieldTable(base),
		include:    append([]string(nil), decl.Include...),
		extensions: map[string]*extension{},
	}

	c.checkIncludes(label, ep.include, ep.fields)

	for _, sub := range sortedKeys(decl.Extensions) {
		if !ep.Allows(sub) {
			c.diags.AddErrorWithSuggestions(CodeUnknownSubKindExtension,
				fmt.Sprintf("extension for sub-kind %q outside the endpoint's sub_kinds", sub),
				label, sub, match.Suggest(sub, ep.SubKinds, 2))

			continue
		}

		ext := decl.Extensions[sub]
		if ext == nil {
			ext = &Extension{}
		}

		merged := mergeMappings(base, c.fieldMappings(label, ext.Fields))
		c.checkUnique(label, sub, merged)

		include := make([]string, 0, len(ep.include)+len(ext.Include))
		include = append(include, ep.include...)
		include = append(include, ext.Include...)

		table := newFieldTable(merged)
		c.checkIncludes(label, ext.Include, table)

		ep.extensions[sub] = &extension{fields: table, include: include}
	}

	return ep
}

// fieldMappings turns declared entries into mappings, reporting malformed
// entries, repeated sources and unknown transforms.
func (c *compiler) fieldMappings(label string, entries FieldList) []FieldMapping {
	out := make([]FieldMapping, 0, len(entries))
	seen := map[string]bool{}

	for _, e := range entries {
		if e.Problem != "" {
			c.diags.AddError(CodeInvalidFieldEntry, fmt.Sprintf("line %d: %s", e.Line, e.Problem), label, e.Source)
			continue
		}

		if e.Source == "" {
			c.diags.AddError(CodeInvalidFieldEntry, fmt.Sprintf("line %d: empty field source", e.Line), label, "")
			continue
		}

		if seen[e.Source] {
			c.diags.AddError(CodeInvalidFieldEntry, fmt.Sprintf("field %q declared twice", e.Source), label, e.Source)
			continue
		}

		seen[e.Source] = true

		if e.Transform != "" && (c.transforms == nil || !c.transforms.Has(e.Transform)) {
			var known []string
			if c.transforms != nil {
				known = c.transforms.Names()
			}

			c.diags.AddErrorWithSuggestions(CodeUnknownTransform,
				fmt.Sprintf("unknown transform %q", e.Transform), label, e.Source,
				match.Suggest(e.Transform, known, 2))

			continue
		}

		exposed := e.As
		if exposed == "" {
			exposed = DefaultExposedName(e.Source)
		}

		out = append(out, FieldMapping{Source: e.Source, Exposed: exposed, Transform: e.Transform})
	}

	return out
}

// injectDefaults adds entity-type -> type and id -> id when nothing is
// exposed under those names and the core source is still free.
func injectDefaults(mappings []FieldMapping) []FieldMapping {
	exposed := map[string]bool{}
	sources := map[string]bool{}

	for _, m := range mappings {
		exposed[m.Exposed] = true
		sources[m.Source] = true
	}

	if !exposed[ExposedType] && !sources[CoreEntityType] {
		mappings = append(mappings, FieldMapping{Source: CoreEntityType, Exposed: ExposedType, Injected: true})
	}

	if !exposed[ExposedID] && !sources[CoreID] {
		mappings = append(mappings, FieldMapping{Source: CoreID, Exposed: ExposedID, Injected: true})
	}

	return mappings
}

// mergeMappings returns base overlaid with ext. An extension entry replaces
// the base entry with the same source; injected defaults give way to an
// extension entry exposed under the same name.
func mergeMappings(base, ext []FieldMapping) []FieldMapping {
	extSources := map[string]bool{}
	extExposed := map[string]bool{}

	for _, m := range ext {
		extSources[m.Source] = true
		extExposed[m.Exposed] = true
	}

	out := make([]FieldMapping, 0, len(base)+len(ext))

	for _, m := range base {
		if extSources[m.Source] || (m.Injected && extExposed[m.Exposed]) {
			continue
		}

		out = append(out, m)
	}

	return append(out, ext...)
}

func (c *compiler) checkUnique(label, subKind string, mappings []FieldMapping) {
	bySource := map[string]string{}

	sorted := append([]FieldMapping(nil), mappings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Source < sorted[j].Source })

	for _, m := range sorted {
		prev, dup := bySource[m.Exposed]
		if !dup {
			bySource[m.Exposed] = m.Source
			continue
		}

		where := ""
		if subKind != "" {
			where = fmt.Sprintf(" (sub-kind %q)", subKind)
		}

		c.diags.AddError(CodeDuplicateExposedName,
			fmt.Sprintf("exposed name %q used by both %q and %q%s", m.Exposed, prev, m.Source, where),
			label, m.Exposed)
	}

	for _, name := range []string{ExposedType, ExposedID} {
		if _, ok := bySource[name]; !ok {
			c.diags.AddError(CodeInvalidFieldEntry,
				fmt.Sprintf("nothing is exposed as %q and its core source is mapped elsewhere", name), label, subKind)
		}
	}
}

// checkIncludes validates path syntax and that each path starts with a name
// the table exposes. Deeper segments belong to other kinds.
func (c *compiler) checkIncludes(label string, paths []string, table *FieldTable) {
	for _, p := range paths {
		segs, err := ParseIncludePath(p)
		if err != nil {
			c.diags.AddError(CodeInvalidIncludePath, err.Error(), label, p)
			continue
		}

		if _, ok := table.ByExposed(segs[0]); ok {
			continue
		}

		exposed := make([]string, 0, table.Len())
		for _, m := range table.Mappings() {
			exposed = append(exposed, m.Exposed)
		}

		c.diags.AddErrorWithSuggestions(CodeInvalidIncludePath,
			fmt.Sprintf("include path %q starts with %q, which is not exposed", p, segs[0]),
			label, p, match.Suggest(segs[0], exposed, 2))
	}
}

func endpointLabel(scope, mount string) string {
	return scope + "/" + mount
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
