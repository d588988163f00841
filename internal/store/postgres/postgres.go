// Package postgres stores catalog records in a single PostgreSQL table with
// the field values kept in a JSONB column.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"resource-mapper/internal/catalog"
	"resource-mapper/internal/host"
	"resource-mapper/internal/idgen"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// maxIDAttempts bounds the inserts tried for a new record whose generated
// ids keep colliding.
const maxIDAttempts = 16

// Store implements host.Stores backed by a PostgreSQL database.
type Store struct {
	db  *sql.DB
	cat *catalog.Catalog
	ids idgen.Generator
	now func() time.Time
}

var _ host.Stores = (*Store)(nil)

// Open connects to the database at databaseURL, configures the connection
// pool and runs any pending migrations.
func Open(databaseURL string, cat *catalog.Catalog, ids idgen.Generator) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return New(db, cat, ids), nil
}

// New wraps an open, migrated database. A nil generator uses nanoid ids.
func New(db *sql.DB, cat *catalog.Catalog, ids idgen.Generator) *Store {
	if ids == nil {
		ids = idgen.Nanoid{}
	}

	return &Store{db: db, cat: cat, ids: ids, now: time.Now}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StorageFor returns the storage of a catalog kind.
func (s *Store) StorageFor(kind string) (host.Storage, error) {
	k, ok := s.cat.Kind(kind)
	if !ok {
		return nil, fmt.Errorf("no storage for kind %q", kind)
	}

	return &storage{s: s, kind: k}, nil
}

type storage struct {
	s    *Store
	kind *catalog.Kind
}

// resolver loads reference targets on demand. Loaded targets carry the same
// resolver, so references are followed to any depth.
func (st *storage) resolver(ctx context.Context) catalog.ResolverFunc {
	var resolve catalog.ResolverFunc

	resolve = func(kind, id string) (host.Record, bool) {
		r, err := queryLoad(ctx, st.s.db, st.s.cat, kind, id, resolve)
		if err != nil {
			return nil, false
		}

		return r, true
	}

	return resolve
}

func (st *storage) Load(ctx context.Context, id string) (host.Record, error) {
	r, err := queryLoad(ctx, st.s.db, st.s.cat, st.kind.Name, id, st.resolver(ctx))
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (st *storage) LoadMany(ctx context.Context, ids []string) ([]host.Record, error) {
	recs, err := queryLoadMany(ctx, st.s.db, st.s.cat, st.kind.Name, ids, st.resolver(ctx))
	if err != nil {
		return nil, err
	}

	out := make([]host.Record, len(recs))
	for i, r := range recs {
		out[i] = r
	}

	return out, nil
}

func (st *storage) Query(ctx context.Context, q host.Query) ([]string, error) {
	return queryIDs(ctx, st.s.db, st.kind, q)
}

func (st *storage) Create(ctx context.Context, input host.Input) (host.MutableRecord, error) {
	return st.s.cat.FromInput(st.kind.Name, input, st.resolver(ctx))
}

func (st *storage) Save(ctx context.Context, r host.Record) error {
	rec, ok := r.(*catalog.Record)
	if !ok || rec.RecordKind() != st.kind.Name {
		return fmt.Errorf("cannot save %T as %s", r, st.kind.Name)
	}

	if rec.RecordID() != "" {
		return queryUpsert(ctx, st.s.db, rec, st.s.now().UTC())
	}

	for range maxIDAttempts {
		id, err := st.s.ids.Generate(st.kind.Name)
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}

		rec.SetID(id)

		err = queryInsert(ctx, st.s.db, rec, st.s.now().UTC())
		if !errors.Is(err, errIDTaken) {
			return err
		}
	}

	rec.SetID("")

	return fmt.Errorf("no free %s id after %d attempts", st.kind.Name, maxIDAttempts)
}

func (st *storage) Delete(ctx context.Context, r host.Record) error {
	return queryDelete(ctx, st.s.db, st.kind.Name, st.s.cat.IdentityOf(r))
}
