package encode

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"resource-mapper/internal/catalog"
	"resource-mapper/internal/host"
	"resource-mapper/internal/request"
	"resource-mapper/internal/schema"
	"resource-mapper/internal/transform"
)

const blogCatalog = `
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
        - {name: field_meta}
        - {name: field_keywords, multiple: true}
        - {name: field_secret, hidden: true}
  user:
    sub_kinds:
      user:
        - name
        - {name: friend, references: user}
  taxonomy_term:
    bundle_label: Vocabulary
    identity_key: tid
    bundle_key: vid
    sub_kinds:
      tags: [name]
`

const blogSchema = `
scopes:
  api:
    simple:
      kind: article
      fields: [title, {field_byline: byline}]
    articles:
      kind: node
      sub_kinds: [article]
      fields:
        - title
        - {type: type}
        - {nid: id}
        - {uid: author}
        - {field_tags: tags}
        - {field_meta: {as: meta, transform: json}}
        - field_keywords
      include: [author]
    users:
      kind: user
      fields: [name, friend]
`

// graph is an in-memory record set for tests.
type graph struct {
	t       *testing.T
	cat     *catalog.Catalog
	scope   *schema.Scope
	records map[string]host.Record
}

func newGraph(t *testing.T) *graph {
	t.Helper()

	cat, err := catalog.Parse([]byte(blogCatalog))
	require.NoError(t, err)

	f, err := schema.Parse([]byte(blogSchema))
	require.NoError(t, err)

	s, err := schema.Compile(f, transform.Default())
	require.NoError(t, err)

	scope, ok := s.Scope("api")
	require.True(t, ok)

	return &graph{t: t, cat: cat, scope: scope, records: map[string]host.Record{}}
}

func (g *graph) resolve(kind, id string) (host.Record, bool) {
	r, ok := g.records[kind+"/"+id]
	return r, ok
}

func (g *graph) add(kind, sub, id string, values map[string]any) host.Record {
	g.t.Helper()

	r, err := g.cat.NewRecord(kind, sub, id, values, g.resolve)
	require.NoError(g.t, err)

	g.records[kind+"/"+id] = r

	return r
}

func (g *graph) encoder(mount, query string) *Encoder {
	g.t.Helper()

	q, err := url.ParseQuery(query)
	require.NoError(g.t, err)

	view, err := request.New(g.scope, mount, request.ParseOptions(q))
	require.NoError(g.t, err)

	return New(view, g.cat, g.cat, transform.Default())
}

// blog builds two articles by the same author, who is friends with a
// second user who is friends back.
func (g *graph) blog() (first, second host.Record) {
	g.add("user", "user", "2", map[string]any{"name": "Ann", "friend": "3"})
	g.add("user", "user", "3", map[string]any{"name": "Bob", "friend": "2"})
	g.add("taxonomy_term", "tags", "10", map[string]any{"name": "go"})
	g.add("taxonomy_term", "tags", "11", map[string]any{"name": "json"})

	first = g.add("node", "article", "1", map[string]any{
		"title":          "First",
		"uid":            "2",
		"field_tags":     []any{"10", "11"},
		"field_meta":     `{"words":120}`,
		"field_keywords": []any{"a", "b"},
		"field_secret":   "hunter2",
	})

	second = g.add("node", "article", "2", map[string]any{
		"title":      "Second",
		"uid":        "2",
		"field_tags": []any{"11"},
	})

	return first, second
}
