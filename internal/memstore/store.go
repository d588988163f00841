// Package memstore keeps catalog records in memory. It backs the demo
// service and the request-layer tests.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"resource-mapper/internal/catalog"
	"resource-mapper/internal/host"
	"resource-mapper/internal/idgen"
)

type row struct {
	sub    string
	values map[string]any
	seq    int
}

// Store holds every kind's records.
type Store struct {
	cat *catalog.Catalog
	ids idgen.Generator

	mu   sync.RWMutex
	rows map[string]map[string]*row
	seq  int
}

var _ host.Stores = (*Store)(nil)

// New creates an empty store. A nil generator uses nanoid ids.
func New(cat *catalog.Catalog, ids idgen.Generator) *Store {
	if ids == nil {
		ids = idgen.Nanoid{}
	}

	return &Store{cat: cat, ids: ids, rows: map[string]map[string]*row{}}
}

// StorageFor returns the storage of a catalog kind.
func (s *Store) StorageFor(kind string) (host.Storage, error) {
	if _, ok := s.cat.Kind(kind); !ok {
		return nil, fmt.Errorf("no storage for kind %q", kind)
	}

	return &storage{s: s, kind: kind}, nil
}

// Len returns the number of stored records of kind.
func (s *Store) Len(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rows[kind])
}

func (s *Store) resolve(kind, id string) (host.Record, bool) {
	r, err := s.load(kind, id)
	if err != nil {
		return nil, false
	}

	return r, true
}

func (s *Store) load(kind, id string) (*catalog.Record, error) {
	s.mu.RLock()
	rw, ok := s.rows[kind][id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s %q: %w", kind, id, host.ErrNotFound)
	}

	return s.cat.NewRecord(kind, rw.sub, id, rw.values, s.resolve)
}

func (s *Store) put(kind string, r *catalog.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putLocked(kind, r)
}

// putLocked stores r. The caller holds s.mu for writing.
func (s *Store) putLocked(kind string, r *catalog.Record) {
	byID := s.rows[kind]
	if byID == nil {
		byID = map[string]*row{}
		s.rows[kind] = byID
	}

	rw := &row{sub: r.RecordSubKind(), values: r.Values()}
	if old, ok := byID[r.RecordID()]; ok {
		rw.seq = old.seq
	} else {
		s.seq++
		rw.seq = s.seq
	}

	byID[r.RecordID()] = rw
}

type storage struct {
	s    *Store
	kind string
}

func (st *storage) Load(_ context.Context, id string) (host.Record, error) {
	r, err := st.s.load(st.kind, id)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (st *storage) LoadMany(_ context.Context, ids []string) ([]host.Record, error) {
	out := make([]host.Record, 0, len(ids))

	for _, id := range ids {
		r, err := st.s.load(st.kind, id)
		if err != nil {
			continue
		}

		out = append(out, r)
	}

	return out, nil
}

func (st *storage) Query(_ context.Context, q host.Query) ([]string, error) {
	st.s.mu.RLock()
	var recs []*catalog.Record
	seqs := map[string]int{}

	for id, rw := range st.s.rows[st.kind] {
		if len(q.SubKinds) > 0 && !slices.Contains(q.SubKinds, rw.sub) {
			continue
		}

		r, err := st.s.cat.NewRecord(st.kind, rw.sub, id, rw.values, nil)
		if err != nil {
			st.s.mu.RUnlock()
			return nil, err
		}

		recs = append(recs, r)
		seqs[id] = rw.seq
	}
	st.s.mu.RUnlock()

	recs = slices.DeleteFunc(recs, func(r *catalog.Record) bool {
		return !matches(r, q.Filters)
	})

	slices.SortFunc(recs, func(a, b *catalog.Record) int {
		for _, key := range q.Sort {
			c := compareValues(first(a.Strings(key.Field)), first(b.Strings(key.Field)))
			if key.Desc {
				c = -c
			}

			if c != 0 {
				return c
			}
		}

		return cmp.Compare(seqs[a.RecordID()], seqs[b.RecordID()])
	})

	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.RecordID()
	}

	return out, nil
}

func (st *storage) Create(_ context.Context, input host.Input) (host.MutableRecord, error) {
	return st.s.cat.FromInput(st.kind, input, st.s.resolve)
}

func (st *storage) Save(_ context.Context, r host.Record) error {
	rec, ok := r.(*catalog.Record)
	if !ok || rec.RecordKind() != st.kind {
		return fmt.Errorf("cannot save %T as %s", r, st.kind)
	}

	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	if rec.RecordID() == "" {
		id, err := st.newIDLocked()
		if err != nil {
			return err
		}

		rec.SetID(id)
	}

	st.s.putLocked(st.kind, rec)

	return nil
}

// maxIDAttempts bounds the retries on a generated id that is already taken.
const maxIDAttempts = 16

// newIDLocked returns a generated id no stored record uses. The caller holds
// s.mu for writing, so the id stays free until the record is stored.
func (st *storage) newIDLocked() (string, error) {
	for range maxIDAttempts {
		id, err := st.s.ids.Generate(st.kind)
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}

		if _, taken := st.s.rows[st.kind][id]; !taken {
			return id, nil
		}
	}

	return "", fmt.Errorf("generate id: no free %s id after %d attempts", st.kind, maxIDAttempts)
}

func (st *storage) Delete(_ context.Context, r host.Record) error {
	id := st.s.cat.IdentityOf(r)

	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	if _, ok := st.s.rows[st.kind][id]; !ok {
		return fmt.Errorf("%s %q: %w", st.kind, id, host.ErrNotFound)
	}

	delete(st.s.rows[st.kind], id)

	return nil
}

// matches reports whether r passes every filter. Within one filter any field
// holding any of the values matches.
func matches(r *catalog.Record, filters []host.Filter) bool {
	for _, f := range filters {
		if !matchesOne(r, f) {
			return false
		}
	}

	return true
}

func matchesOne(r *catalog.Record, f host.Filter) bool {
	for _, field := range f.Fields {
		for _, v := range r.Strings(field) {
			if slices.Contains(f.Values, v) {
				return true
			}
		}
	}

	return false
}

// compareValues orders numerically when both sides are numbers.
func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)

	if errA == nil && errB == nil {
		return cmp.Compare(fa, fb)
	}

	return cmp.Compare(a, b)
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
