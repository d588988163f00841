package memstore

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-mapper/internal/catalog"
	"resource-mapper/internal/host"
	"resource-mapper/internal/idgen"
)

const testCatalog = `
kinds:
  node:
    bundle_label: Content type
    identity_key: nid
    sub_kinds:
      article:
        - title
        - weight
        - {name: uid, references: user}
        - {name: field_tags, references: tag, multiple: true}
      page:
        - title
        - weight
  user:
    sub_kinds:
      user: [name]
  tag:
    sub_kinds:
      tag: [name]
`

const testSeed = `
records:
  - {kind: user, id: u1, fields: {name: ann}}
  - {kind: tag, id: t1, fields: {name: go}}
  - {kind: tag, id: t2, fields: {name: yaml}}
  - kind: node
    sub_kind: article
    id: "1"
    fields: {title: First, weight: 10, uid: u1, field_tags: [t1, t2]}
  - kind: node
    sub_kind: page
    id: "2"
    fields: {title: About, weight: 2}
  - kind: node
    sub_kind: article
    id: "3"
    fields: {title: Second, weight: 2, field_tags: [t2]}
`

func newStore(t *testing.T) *Store {
	t.Helper()

	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	s := New(cat, &idgen.Sequence{})
	n, err := s.Seed([]byte(testSeed))
	require.NoError(t, err)
	require.Equal(t, 6, n)

	return s
}

func storageOf(t *testing.T, s *Store, kind string) host.Storage {
	t.Helper()

	st, err := s.StorageFor(kind)
	require.NoError(t, err)

	return st
}

func TestStorageFor_UnknownKind(t *testing.T) {
	s := newStore(t)

	_, err := s.StorageFor("comment")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	r, err := storageOf(t, s, "node").Load(ctx, "1")
	require.NoError(t, err)

	title, ok := r.Field("title")
	require.True(t, ok)
	assert.Equal(t, host.Scalar{Value: "First"}, title)

	uid, _ := r.Field("uid")
	ref, ok := uid.(host.Reference)
	require.True(t, ok)
	require.NotNil(t, ref.Target)
	assert.Equal(t, "u1", s.cat.IdentityOf(ref.Target))

	tags, _ := r.Field("field_tags")
	assert.Len(t, tags.(host.References).Targets, 2)

	_, err = storageOf(t, s, "node").Load(ctx, "99")
	assert.ErrorIs(t, err, host.ErrNotFound)
}

func TestLoadMany(t *testing.T) {
	s := newStore(t)

	recs, err := storageOf(t, s, "node").LoadMany(context.Background(), []string{"3", "99", "1"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "3", s.cat.IdentityOf(recs[0]))
	assert.Equal(t, "1", s.cat.IdentityOf(recs[1]))
}

func TestQuery(t *testing.T) {
	tests := map[string]struct {
		query host.Query
		want  []string
	}{
		"all in insertion order": {
			want: []string{"1", "2", "3"},
		},
		"sub-kind restriction": {
			query: host.Query{SubKinds: []string{"article"}},
			want:  []string{"1", "3"},
		},
		"filter on a plain field": {
			query: host.Query{Filters: []host.Filter{{Fields: []string{"title"}, Values: []string{"About", "Second"}}}},
			want:  []string{"2", "3"},
		},
		"filter on a multi-valued reference": {
			query: host.Query{Filters: []host.Filter{{Fields: []string{"field_tags"}, Values: []string{"t1"}}}},
			want:  []string{"1"},
		},
		"filter over several fields": {
			query: host.Query{Filters: []host.Filter{{Fields: []string{"title", "uid"}, Values: []string{"u1", "About"}}}},
			want:  []string{"1", "2"},
		},
		"filters are anded": {
			query: host.Query{Filters: []host.Filter{
				{Fields: []string{"weight"}, Values: []string{"2"}},
				{Fields: []string{"type"}, Values: []string{"article"}},
			}},
			want: []string{"3"},
		},
		"numeric sort": {
			query: host.Query{Sort: []host.SortKey{{Field: "weight"}}},
			want:  []string{"2", "3", "1"},
		},
		"multi-key sort": {
			query: host.Query{Sort: []host.SortKey{{Field: "weight"}, {Field: "title", Desc: true}}},
			want:  []string{"3", "2", "1"},
		},
		"sort by identity descending": {
			query: host.Query{Sort: []host.SortKey{{Field: "nid", Desc: true}}},
			want:  []string{"3", "2", "1"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			got, err := storageOf(t, s, "node").Query(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateSaveDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	st := storageOf(t, s, "node")

	r, err := st.Create(ctx, host.Input{"type": "page", "title": "New"})
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, r))

	assert.Equal(t, "4", s.cat.IdentityOf(r), "taken ids are skipped")
	assert.Equal(t, 4, s.Len("node"))

	r, err = st.Create(ctx, host.Input{"type": "page", "title": "Other"})
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, r))
	assert.Equal(t, "5", s.cat.IdentityOf(r))

	loaded, err := st.Load(ctx, "5")
	require.NoError(t, err)
	title, _ := loaded.Field("title")
	assert.Equal(t, host.Scalar{Value: "Other"}, title)

	require.NoError(t, st.Delete(ctx, loaded))
	_, err = st.Load(ctx, "5")
	assert.ErrorIs(t, err, host.ErrNotFound)
	assert.ErrorIs(t, st.Delete(ctx, loaded), host.ErrNotFound)
}

// pairedIDs hands out every id twice: "n1", "n1", "n2", "n2", ...
type pairedIDs struct {
	mu    sync.Mutex
	calls int
}

func (p *pairedIDs) Generate(string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++

	return "n" + strconv.Itoa((p.calls+1)/2), nil
}

func TestSave_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	s := New(cat, &pairedIDs{})
	st := storageOf(t, s, "node")
	ctx := context.Background()

	const n = 20

	var wg sync.WaitGroup

	errs := make(chan error, n)

	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			r, err := st.Create(ctx, host.Input{"type": "page", "title": strconv.Itoa(i)})
			if err != nil {
				errs <- err
				return
			}

			errs <- st.Save(ctx, r)
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, n, s.Len("node"))
}

func TestSave_KeepsInsertionOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	st := storageOf(t, s, "node")

	r, err := st.Load(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, r.(host.MutableRecord).Set("title", "Edited"))
	require.NoError(t, st.Save(ctx, r))

	ids, err := st.Query(ctx, host.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestSeed_Errors(t *testing.T) {
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	tests := map[string]string{
		"missing id":       "records:\n  - {kind: user}\n",
		"unknown kind":     "records:\n  - {kind: comment, id: c1}\n",
		"unknown sub-kind": "records:\n  - {kind: node, sub_kind: blog, id: n1}\n",
		"bad yaml":         "records: [",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(cat, nil).Seed([]byte(data))
			assert.Error(t, err)
		})
	}
}
