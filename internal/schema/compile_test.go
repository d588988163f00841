package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-mapper/internal/transform"
)

func compile(t *testing.T, src string) (*Schema, error) {
	t.Helper()

	f, err := Parse([]byte(src))
	require.NoError(t, err)

	return Compile(f, transform.Default())
}

func mustCompile(t *testing.T, src string) *Schema {
	t.Helper()

	s, err := compile(t, src)
	require.NoError(t, err)

	return s
}

func configErr(t *testing.T, err error) *ConfigError {
	t.Helper()

	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)

	return ce
}

func TestCompile_InjectsTypeAndID(t *testing.T) {
	s := mustCompile(t, `
scopes:
  api:
    articles:
      kind: article
      fields: [title, {field_byline: byline}]
`)

	scope, ok := s.Scope("api")
	require.True(t, ok)

	ep, ok := scope.Endpoint("articles")
	require.True(t, ok)

	table := ep.Fields()
	assert.Equal(t, []string{"entity-type", "field_byline", "id", "title"}, table.Sources())
	assert.Equal(t, "entity-type", table.TypeSource())

	m, ok := table.ByExposed("id")
	require.True(t, ok)
	assert.Equal(t, "id", m.Source)
	assert.True(t, m.Injected)

	m, ok = table.Lookup("field_byline")
	require.True(t, ok)
	assert.Equal(t, "byline", m.Exposed)
	assert.False(t, m.Injected)
}

func TestCompile_DeclaredTypeSuppressesInjection(t *testing.T) {
	s := mustCompile(t, `
scopes:
  api:
    articles:
      kind: node
      fields: [{type: type}, {nid: id}]
`)

	scope, _ := s.Scope("api")
	ep, _ := scope.Endpoint("articles")

	assert.Equal(t, "type", ep.Fields().TypeSource())
	assert.Equal(t, 2, ep.Fields().Len())

	_, ok := ep.Fields().Lookup(CoreEntityType)
	assert.False(t, ok)
}

func TestDefaultExposedName(t *testing.T) {
	tests := map[string]string{
		"title":             "title",
		"field_byline":      "byline",
		"field_publishedAt": "published-at",
		"body_value":        "body-value",
		"entity-type":       "entity-type",
		"field_":            "field",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, DefaultExposedName(in))
		})
	}
}

func TestCompile_Extensions(t *testing.T) {
	s := mustCompile(t, `
scopes:
  api:
    content:
      kind: node
      fields: [title, {type: type}, {field_image: image}, {field_teaser: teaser}]
      include: [image]
      extensions:
        article:
          fields: [{field_tags: tags}, {field_teaser: summary}]
          include: [tags, image]
        page:
          fields: [field_summary]
`)

	scope, _ := s.Scope("api")
	ep, _ := scope.Endpoint("content")

	article := ep.FieldsFor("article")
	m, ok := article.Lookup("field_teaser")
	require.True(t, ok)
	assert.Equal(t, "summary", m.Exposed, "extension wins on source collision")

	_, ok = article.ByExposed("tags")
	assert.True(t, ok)

	_, ok = ep.Fields().ByExposed("tags")
	assert.False(t, ok, "base table is not modified")

	assert.Equal(t, []string{"image", "tags", "image"}, ep.DefaultIncludeFor("article"))
	assert.Equal(t, []string{"image"}, ep.DefaultIncludeFor("page"))
	assert.Equal(t, []string{"image"}, ep.DefaultIncludeFor("other"))

	_, ok = ep.FieldsFor("page").ByExposed("summary")
	assert.True(t, ok)
	assert.Same(t, ep.Fields(), ep.FieldsFor("other"))

	assert.Equal(t, []string{"article", "page"}, ep.ExtendedSubKinds())
	assert.Len(t, ep.Tables(), 3)
}

func TestCompile_ExtensionReplacesInjectedDefault(t *testing.T) {
	s := mustCompile(t, `
scopes:
  api:
    terms:
      kind: taxonomy_term
      extensions:
        tags:
          fields: [{vid: type}]
`)

	scope, _ := s.Scope("api")
	ep, _ := scope.Endpoint("terms")

	assert.Equal(t, "entity-type", ep.Fields().TypeSource())
	assert.Equal(t, "vid", ep.FieldsFor("tags").TypeSource())
}

func TestCompile_ReverseIndexes(t *testing.T) {
	s := mustCompile(t, `
scopes:
  api:
    articles: {kind: node, sub_kinds: [article]}
    content: {kind: node}
    pages: {kind: node, sub_kinds: [page, landing]}
    z-content: {kind: node}
`)

	scope, _ := s.Scope("api")

	ep, ok := scope.EndpointFor("node", "article")
	require.True(t, ok)
	assert.Equal(t, "articles", ep.Mount)

	ep, ok = scope.EndpointFor("node", "landing")
	require.True(t, ok)
	assert.Equal(t, "pages", ep.Mount)

	ep, ok = scope.EndpointFor("node", "blog")
	require.True(t, ok)
	assert.Equal(t, "content", ep.Mount)

	_, ok = scope.EndpointFor("user", "user")
	assert.False(t, ok)

	assert.Same(t, MinimalTable(), scope.FieldsFor("user", "user"))
	assert.Nil(t, scope.DefaultIncludeFor("user", "user"))

	assert.True(t, s.Warnings.HasCode(CodeShadowedEndpoint))
	assert.Equal(t, []string{"articles", "content", "pages", "z-content"}, scope.Mounts())
	assert.Equal(t, []string{"api"}, s.ScopeNames())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		code        string
		suggestions []string
	}{
		{
			name: "duplicate exposed name",
			yaml: `
scopes:
  api:
    articles:
      kind: node
      fields: [{title: name}, {field_name: name}]
`,
			code: CodeDuplicateExposedName,
		},
		{
			name: "duplicate exposed name in extension",
			yaml: `
scopes:
  api:
    articles:
      kind: node
      fields: [title]
      extensions:
        article:
          fields: [{field_heading: title}]
`,
			code: CodeDuplicateExposedName,
		},
		{
			name: "unknown transform",
			yaml: `
scopes:
  api:
    articles:
      kind: node
      fields: [{field_body: {as: body, transform: jsn}}]
`,
			code:        CodeUnknownTransform,
			suggestions: []string{"json"},
		},
		{
			name: "missing kind",
			yaml: `
scopes:
  api:
    articles:
      fields: [title]
`,
			code: CodeMissingKind,
		},
		{
			name: "empty declaration",
			yaml: `
scopes:
  api:
    articles:
`,
			code: CodeMissingKind,
		},
		{
			name: "include path not exposed",
			yaml: `
scopes:
  api:
    articles:
      kind: node
      fields: [{uid: author}]
      include: [autor]
`,
			code:        CodeInvalidIncludePath,
			suggestions: []string{"author"},
		},
		{
			name: "include path syntax",
			yaml: `
scopes:
  api:
    articles:
      kind: node
      fields: [{uid: author}]
      include: [author..picture]
`,
			code: CodeInvalidIncludePath,
		},
		{
			name: "malformed field entry",
			yaml: `
scopes:
  api:
    articles:
      kind: node
      fields: [[a, b]]
`,
			code: CodeInvalidFieldEntry,
		},
		{
			name: "repeated source",
			yaml: `
scopes:
  api:
    articles:
      kind: node
      fields: [title, {title: heading}]
`,
			code: CodeInvalidFieldEntry,
		},
		{
			name: "extension outside restriction",
			yaml: `
scopes:
  api:
    articles:
      kind: node
      sub_kinds: [article]
      extensions:
        articel:
          fields: [field_tags]
`,
			code:        CodeUnknownSubKindExtension,
			suggestions: []string{"article"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, tt.yaml)
			ce := configErr(t, err)

			require.True(t, ce.Diagnostics.HasCode(tt.code), ce.Error())

			if tt.suggestions != nil {
				for _, d := range ce.Diagnostics.Errors {
					if d.Code == tt.code {
						assert.Equal(t, tt.suggestions, d.Suggestions)
					}
				}
			}
		})
	}
}

func TestCompile_ReportsAllErrors(t *testing.T) {
	_, err := compile(t, `
scopes:
  api:
    a: {fields: [title]}
    b: {kind: node, fields: [{x: {transform: nope}}]}
`)

	ce := configErr(t, err)
	assert.Len(t, ce.Diagnostics.Errors, 2)
	assert.Contains(t, err.Error(), "api/a")
	assert.Contains(t, err.Error(), "api/b")
}

func TestParseIncludePath(t *testing.T) {
	segs, err := ParseIncludePath("author.picture")
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "picture"}, segs)

	for _, bad := range []string{"", ".a", "a.", "a b"} {
		_, err := ParseIncludePath(bad)
		assert.Error(t, err, bad)
	}
}
