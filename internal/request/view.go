package request

import (
	"slices"
	"sort"
	"strings"

	"resource-mapper/internal/apierr"
	"resource-mapper/internal/common"
	"resource-mapper/internal/host"
	"resource-mapper/internal/schema"
)

// View is the schema as seen by one operation.
type View struct {
	scope    *schema.Scope
	endpoint *schema.Endpoint
	opts     Options
	include  [][]string
}

// New builds the view for the endpoint mounted at mount. Malformed include
// paths are a BadRequest.
func New(scope *schema.Scope, mount string, opts Options) (*View, error) {
	ep, ok := scope.Endpoint(mount)
	if !ok {
		return nil, apierr.NotFound("Not Found", "no endpoint is mounted at "+scope.Name+"/"+mount)
	}

	v := &View{scope: scope, endpoint: ep, opts: opts}

	if opts.Include != nil {
		v.include = make([][]string, 0, len(opts.Include))

		for _, p := range opts.Include {
			segs, err := schema.ParseIncludePath(p)
			if err != nil {
				return nil, apierr.BadRequest("invalid include: %v", err)
			}

			v.include = append(v.include, segs)
		}
	}

	return v, nil
}

// Endpoint returns the addressed endpoint.
func (v *View) Endpoint() *schema.Endpoint { return v.endpoint }

// Scope returns the scope the endpoint lives in.
func (v *View) Scope() *schema.Scope { return v.scope }

// Options returns the parsed client options.
func (v *View) Options() Options { return v.opts }

// Debug reports whether debug annotations were requested.
func (v *View) Debug() bool { return v.opts.Debug }

// FieldsFor returns the field table for a record of (kind, subKind). The
// addressed endpoint is used when it serves the record; otherwise the
// scope's reverse indexes pick the endpoint.
func (v *View) FieldsFor(kind, subKind string) *schema.FieldTable {
	if v.serves(kind, subKind) {
		return v.endpoint.FieldsFor(subKind)
	}

	return v.scope.FieldsFor(kind, subKind)
}

// DefaultIncludeFor returns the default include paths for (kind, subKind),
// resolved like FieldsFor.
func (v *View) DefaultIncludeFor(kind, subKind string) []string {
	if v.serves(kind, subKind) {
		return v.endpoint.DefaultIncludeFor(subKind)
	}

	return v.scope.DefaultIncludeFor(kind, subKind)
}

func (v *View) serves(kind, subKind string) bool {
	return v.endpoint.Kind == kind && v.endpoint.Allows(subKind)
}

// ShouldIncludeField reports whether exposed name may appear on a resource
// of the given type under the client's sparse fieldsets.
func (v *View) ShouldIncludeField(typ, name string) bool {
	if name == schema.ExposedID {
		return true
	}

	allowed, ok := v.opts.Fields[typ]

	return !ok || slices.Contains(allowed, name)
}

// ShouldInclude reports whether the record reached through path is expanded
// into the included side-table. Client include paths replace defaults.
func (v *View) ShouldInclude(path []string, defaults []string) bool {
	include := v.include
	if v.opts.Include == nil {
		include = make([][]string, 0, len(defaults))
		for _, d := range defaults {
			include = append(include, strings.Split(d, "."))
		}
	}

	for _, p := range include {
		if common.HasPrefix(p, path) {
			return true
		}
	}

	return false
}

// HostField maps an exposed name to its host field for one sub-kind of the
// addressed endpoint.
func (v *View) HostField(subKind, exposed string) (string, bool) {
	m, ok := v.endpoint.FieldsFor(subKind).ByExposed(exposed)
	if !ok {
		return "", false
	}

	return m.Source, true
}

// HostFields maps an exposed name to every host field it denotes across the
// base table and all sub-kind extensions.
func (v *View) HostFields(exposed string) []string {
	var out []string

	for _, t := range v.endpoint.Tables() {
		if m, ok := t.ByExposed(exposed); ok {
			out = append(out, m.Source)
		}
	}

	return common.Dedup(out)
}

// SortKey is one client sort token.
type SortKey struct {
	Name string
	Desc bool
}

// SortKeys returns the sort tokens in order; a leading "-" means descending.
func (v *View) SortKeys() []SortKey {
	keys := make([]SortKey, 0, len(v.opts.Sort))

	for _, s := range v.opts.Sort {
		if name, ok := strings.CutPrefix(s, "-"); ok {
			keys = append(keys, SortKey{Name: name, Desc: true})
		} else {
			keys = append(keys, SortKey{Name: s})
		}
	}

	return keys
}

// Filter is one client filter: the exposed name and accepted values.
type Filter struct {
	Name   string
	Values []string
}

// Filters returns the client filters ordered by name.
func (v *View) Filters() []Filter {
	out := make([]Filter, 0, len(v.opts.Filter))
	for name, values := range v.opts.Filter {
		out = append(out, Filter{Name: name, Values: values})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// StorageField translates a schema source name into the host field the
// storage collaborator understands. Core identity and sub-kind sources map
// to the kind's identity and bundle keys; the remaining core sources have no
// storage column.
func StorageField(meta host.Metadata, kind, source string) (string, bool) {
	switch source {
	case schema.CoreID:
		return meta.IdentityKeyOf(kind), true
	case schema.CoreBundle, meta.BundleLabelOf(kind):
		return meta.BundleKeyOf(kind), true
	case schema.CoreEntityType, schema.CoreBundleLabel:
		return "", false
	default:
		return source, true
	}
}
