package decode

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-mapper/internal/apierr"
	"resource-mapper/internal/catalog"
	"resource-mapper/internal/document"
	"resource-mapper/internal/encode"
	"resource-mapper/internal/host"
	"resource-mapper/internal/request"
	"resource-mapper/internal/schema"
	"resource-mapper/internal/transform"
)

const testCatalog = `
kinds:
  article:
    sub_kinds:
      article: [title, field_byline]
  node:
    bundle_label: Content type
    identity_key: nid
    bundle_key: type
    sub_kinds:
      article:
        - title
        - {name: uid, references: user}
        - {name: field_tags, references: taxonomy_term, multiple: true}
        - field_published
        - field_meta
      page:
        - title
        - field_summary
  user:
    sub_kinds:
      user: [name]
  taxonomy_term:
    identity_key: tid
    bundle_key: vid
    sub_kinds:
      tags: [name]
`

const testSchema = `
scopes:
  api:
    simple:
      kind: article
      sub_kinds: [article]
      fields: [title, {field_byline: byline}]
    articles:
      kind: node
      sub_kinds: [article]
      fields:
        - title
        - {nid: id}
        - {uid: author}
        - {field_tags: tags}
        - {field_published: {as: published, transform: timestamp}}
        - {field_meta: {as: meta, transform: json}}
    content:
      kind: node
      fields:
        - title
        - {type: type}
        - {nid: id}
      extensions:
        article:
          fields: [{uid: author}]
        page:
          fields: [{field_summary: summary}]
    by-label:
      kind: node
      sub_kinds: [article, page]
      fields: [title, {content-type: kind}]
    ambiguous:
      kind: node
      sub_kinds: [article, page]
      fields: [title]
`

type fixture struct {
	t     *testing.T
	cat   *catalog.Catalog
	scope *schema.Scope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	f, err := schema.Parse([]byte(testSchema))
	require.NoError(t, err)

	s, err := schema.Compile(f, transform.Default())
	require.NoError(t, err)

	scope, ok := s.Scope("api")
	require.True(t, ok)

	return &fixture{t: t, cat: cat, scope: scope}
}

func (f *fixture) view(mount, query string) *request.View {
	f.t.Helper()

	q, err := url.ParseQuery(query)
	require.NoError(f.t, err)

	v, err := request.New(f.scope, mount, request.ParseOptions(q))
	require.NoError(f.t, err)

	return v
}

func (f *fixture) decode(mount, payload string) (*Result, error) {
	f.t.Helper()

	doc, err := document.Parse(strings.NewReader(payload))
	require.NoError(f.t, err)

	ro, ok := doc.Data.One()
	require.True(f.t, ok)

	return New(f.view(mount, ""), f.cat, transform.Default()).Decode(ro)
}

func TestDecode_Scenario(t *testing.T) {
	f := newFixture(t)

	res, err := f.decode("simple", `{"data":{"type":"article","attributes":{"byline":"New"}}}`)
	require.NoError(t, err)

	assert.Equal(t, "article", res.SubKind)
	assert.Equal(t, host.Input{"field_byline": "New", "type": "article"}, res.Input)
	assert.Equal(t, "byline", res.Sources["field_byline"])
}

func TestDecode_FieldsAndRelationships(t *testing.T) {
	f := newFixture(t)

	res, err := f.decode("articles", `{"data":{
		"type":"article","id":"9",
		"attributes":{"title":"T","published":"2023-11-14T22:13:20Z","meta":{"a":1},"ignored":true},
		"relationships":{
			"author":{"data":{"type":"user","id":"2"}},
			"tags":{"data":[{"type":"taxonomy_term","id":"10"},{"type":"taxonomy_term","id":"11"}]}
		}
	}}`)
	require.NoError(t, err)

	assert.Equal(t, host.Input{
		"title":           "T",
		"nid":             "9",
		"uid":             host.Target("2"),
		"field_tags":      []host.TargetRef{host.Target("10"), host.Target("11")},
		"field_published": int64(1700000000),
		"field_meta":      `{"a":1}`,
		"type":            "article",
	}, res.Input)

	assert.Equal(t, "id", res.Sources["nid"])
	assert.NotContains(t, res.Input, "entity-type")
	assert.NotContains(t, res.Input, "id")
}

func TestDecode_NullToOne(t *testing.T) {
	f := newFixture(t)

	res, err := f.decode("articles", `{"data":{"type":"article","relationships":{"author":{"data":null}}}}`)
	require.NoError(t, err)

	assert.Equal(t, host.TargetRef{}, res.Input["uid"])
	assert.NotContains(t, res.Input, "nid")
}

func TestDecode_SubKindFromType(t *testing.T) {
	f := newFixture(t)

	res, err := f.decode("content", `{"data":{"type":"page","attributes":{"title":"P","summary":"S"}}}`)
	require.NoError(t, err)

	assert.Equal(t, "page", res.SubKind)
	assert.Equal(t, host.Input{"title": "P", "field_summary": "S", "type": "page"}, res.Input)

	res, err = f.decode("content", `{"data":{"type":"article","relationships":{"author":{"data":{"type":"user","id":"2"}}}}}`)
	require.NoError(t, err)
	assert.Equal(t, host.Target("2"), res.Input["uid"])
}

func TestDecode_SubKindFromAttribute(t *testing.T) {
	f := newFixture(t)

	res, err := f.decode("by-label", `{"data":{"type":"node","attributes":{"title":"P","kind":"page"}}}`)
	require.NoError(t, err)

	assert.Equal(t, "page", res.SubKind)
	assert.Equal(t, host.Input{"title": "P", "type": "page"}, res.Input)
	assert.Equal(t, "kind", res.Sources["type"])
}

func TestDecode_SubKindErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		mount   string
		payload string
	}{
		{"ambiguous endpoint", "ambiguous", `{"data":{"type":"node","attributes":{"title":"x"}}}`},
		{"missing attribute", "by-label", `{"data":{"type":"node","attributes":{"title":"x"}}}`},
		{"non-string attribute", "by-label", `{"data":{"type":"node","attributes":{"kind":5}}}`},
		{"unknown sub-kind", "content", `{"data":{"type":"blog"}}`},
		{"outside restriction", "by-label", `{"data":{"type":"node","attributes":{"kind":"landing"}}}`},
		{"to-one given list", "articles", `{"data":{"type":"article","relationships":{"author":{"data":[]}}}}`},
		{"to-many given one", "articles", `{"data":{"type":"article","relationships":{"tags":{"data":{"type":"t","id":"1"}}}}}`},
		{"plain field as relationship", "articles", `{"data":{"type":"article","relationships":{"title":{"data":null}}}}`},
		{"malformed timestamp", "articles", `{"data":{"type":"article","attributes":{"published":"soon"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.decode(tt.mount, tt.payload)
			require.Error(t, err)
			assert.True(t, apierr.IsBadRequest(err), err.Error())
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	f := newFixture(t)

	related := map[string]host.Record{}
	resolve := func(kind, id string) (host.Record, bool) {
		r, ok := related[kind+"/"+id]
		return r, ok
	}

	author, err := f.cat.NewRecord("user", "user", "2", map[string]any{"name": "Ann"}, resolve)
	require.NoError(t, err)

	related["user/2"] = author

	for _, id := range []string{"1", "3"} {
		term, err := f.cat.NewRecord("taxonomy_term", "tags", id, map[string]any{"name": "t" + id}, resolve)
		require.NoError(t, err)

		related["taxonomy_term/"+id] = term
	}

	tests := []struct {
		name    string
		mount   string
		subKind string
		values  map[string]any
		sources []string
	}{
		{
			name:    "plain and numeric attributes",
			mount:   "content",
			subKind: "page",
			values:  map[string]any{"title": "Round", "field_summary": 3},
			sources: []string{"field_summary", "nid", "title", "type"},
		},
		{
			name:    "relationships and transforms",
			mount:   "articles",
			subKind: "article",
			values: map[string]any{
				"title":           "Trip",
				"uid":             "2",
				"field_tags":      []any{"1", "3"},
				"field_published": 1700000000,
				"field_meta":      `{"words":120}`,
			},
			sources: []string{"field_meta", "field_published", "field_tags", "nid", "title", "type", "uid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original, err := f.cat.NewRecord("node", tt.subKind, "4", tt.values, resolve)
			require.NoError(t, err)

			view := f.view(tt.mount, "")

			doc, err := encode.New(view, f.cat, f.cat, transform.Default()).Document(original)
			require.NoError(t, err)

			b, err := json.Marshal(doc)
			require.NoError(t, err)

			parsed, err := document.Parse(strings.NewReader(string(b)))
			require.NoError(t, err)

			ro, _ := parsed.Data.One()

			res, err := New(view, f.cat, transform.Default()).Decode(ro)
			require.NoError(t, err)

			got := make([]string, 0, len(res.Input))
			for source := range res.Input {
				got = append(got, source)
			}

			assert.ElementsMatch(t, tt.sources, got)

			for source, decoded := range res.Input {
				want, ok := original.Field(source)
				require.True(t, ok, source)

				switch v := want.(type) {
				case host.Scalar:
					assert.Equal(t, v.Value, decoded, source)
				case host.Reference:
					assert.Equal(t, host.Target(f.cat.IdentityOf(v.Target)), decoded, source)
				case host.References:
					refs := make([]host.TargetRef, 0, len(v.Targets))
					for _, target := range v.Targets {
						refs = append(refs, host.Target(f.cat.IdentityOf(target)))
					}

					assert.Equal(t, refs, decoded, source)
				default:
					t.Fatalf("unexpected %s value %T", source, want)
				}
			}
		})
	}
}

func TestTargets(t *testing.T) {
	f := newFixture(t)
	dec := New(f.view("articles", ""), f.cat, transform.Default())

	doc, err := document.Parse(strings.NewReader(`{"data":[{"type":"taxonomy_term","id":"1"},{"type":"taxonomy_term","id":"3"}]}`))
	require.NoError(t, err)

	refs, err := dec.Targets(doc.Data)
	require.NoError(t, err)
	assert.Equal(t, []host.TargetRef{host.Target("1"), host.Target("3")}, refs)

	refs, err = dec.Targets(document.LinkageData(document.ToMany(nil)))
	require.NoError(t, err)
	assert.Empty(t, refs)

	doc, err = document.Parse(strings.NewReader(`{"data":{"type":"taxonomy_term","id":"1"}}`))
	require.NoError(t, err)

	_, err = dec.Targets(doc.Data)
	assert.True(t, apierr.IsBadRequest(err))
}
