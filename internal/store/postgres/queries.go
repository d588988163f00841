package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"resource-mapper/internal/catalog"
	"resource-mapper/internal/host"
)

// recordColumns is the column list used for SELECT statements on records.
const recordColumns = `id, sub_kind, fields`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryLoad(ctx context.Context, db executor, cat *catalog.Catalog, kind, id string, resolve catalog.ResolverFunc) (*catalog.Record, error) {
	row := db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE kind = $1 AND id = $2`, kind, id)

	r, err := scanRecord(row, cat, kind, resolve)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", kind, id, host.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("load %s %q: %w", kind, id, err)
	}

	return r, nil
}

// queryLoadMany returns the records in the order of ids, skipping missing ones.
func queryLoadMany(ctx context.Context, db executor, cat *catalog.Catalog, kind string, ids []string, resolve catalog.ResolverFunc) ([]*catalog.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE kind = $1 AND id = ANY($2)`,
		kind, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load %s records: %w", kind, err)
	}
	defer rows.Close()

	byID := make(map[string]*catalog.Record, len(ids))

	for rows.Next() {
		r, err := scanRecord(rows, cat, kind, resolve)
		if err != nil {
			return nil, fmt.Errorf("scan %s record: %w", kind, err)
		}

		byID[r.RecordID()] = r
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s records: %w", kind, err)
	}

	out := make([]*catalog.Record, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
			delete(byID, id)
		}
	}

	return out, nil
}

func queryIDs(ctx context.Context, db executor, kind *catalog.Kind, q host.Query) ([]string, error) {
	query, args := buildSelectIDs(kind, q)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind.Name, err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", kind.Name, err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", kind.Name, err)
	}

	return ids, nil
}

// buildSelectIDs renders a host query as a parameterized statement. Field
// names are always bound as arguments, never spliced into the SQL.
func buildSelectIDs(kind *catalog.Kind, q host.Query) (string, []any) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func(v any) string {
		argIdx++
		args = append(args, v)

		return fmt.Sprintf("$%d", argIdx)
	}

	whereClauses = append(whereClauses, "kind = "+nextArg(kind.Name))

	if len(q.SubKinds) > 0 {
		whereClauses = append(whereClauses, "sub_kind = ANY("+nextArg(pq.Array(q.SubKinds))+")")
	}

	for _, f := range q.Filters {
		var alternatives []string

		values := nextArg(pq.Array(f.Values))

		for _, field := range f.Fields {
			switch field {
			case kind.IdentityKey:
				alternatives = append(alternatives, "id = ANY("+values+")")
			case kind.BundleKey:
				alternatives = append(alternatives, "sub_kind = ANY("+values+")")
			default:
				name := nextArg(field)
				alternatives = append(alternatives, fmt.Sprintf(
					"(fields->>%[1]s = ANY(%[2]s) OR (jsonb_typeof(fields->%[1]s) = 'array' AND fields->%[1]s ?| %[2]s))",
					name, values))
			}
		}

		if len(alternatives) == 0 {
			whereClauses = append(whereClauses, "FALSE")
			continue
		}

		whereClauses = append(whereClauses, "("+strings.Join(alternatives, " OR ")+")")
	}

	var orderBy []string

	for _, key := range q.Sort {
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}

		switch key.Field {
		case kind.IdentityKey:
			orderBy = append(orderBy, "id "+dir)
		case kind.BundleKey:
			orderBy = append(orderBy, "sub_kind "+dir)
		default:
			name := nextArg(key.Field)
			orderBy = append(orderBy,
				fmt.Sprintf("CASE WHEN jsonb_typeof(fields->%[1]s) = 'number' THEN (fields->>%[1]s)::numeric END %[2]s", name, dir),
				fmt.Sprintf("fields->>%s %s", name, dir))
		}
	}

	orderBy = append(orderBy, "created_at ASC", "id ASC")

	query := "SELECT id FROM records WHERE " + strings.Join(whereClauses, " AND ") +
		" ORDER BY " + strings.Join(orderBy, ", ")

	return query, args
}

func queryUpsert(ctx context.Context, db executor, r *catalog.Record, now time.Time) error {
	fields, err := json.Marshal(r.Values())
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", r.RecordKind(), r.RecordID(), err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO records (kind, id, sub_kind, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (kind, id) DO UPDATE SET
			sub_kind = EXCLUDED.sub_kind,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at`,
		r.RecordKind(), r.RecordID(), r.RecordSubKind(), fields, now)
	if err != nil {
		return fmt.Errorf("save %s %q: %w", r.RecordKind(), r.RecordID(), err)
	}

	return nil
}

// uniqueViolation is the SQLSTATE of a duplicate key.
const uniqueViolation = "23505"

// errIDTaken reports an insert whose id is already stored.
var errIDTaken = errors.New("id already taken")

// queryInsert stores a new record. An existing row with the same id is left
// alone and errIDTaken is returned.
func queryInsert(ctx context.Context, db executor, r *catalog.Record, now time.Time) error {
	fields, err := json.Marshal(r.Values())
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", r.RecordKind(), r.RecordID(), err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO records (kind, id, sub_kind, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		r.RecordKind(), r.RecordID(), r.RecordSubKind(), fields, now)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("insert %s %q: %w", r.RecordKind(), r.RecordID(), errIDTaken)
	}

	if err != nil {
		return fmt.Errorf("insert %s %q: %w", r.RecordKind(), r.RecordID(), err)
	}

	return nil
}

func queryDelete(ctx context.Context, db executor, kind, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM records WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", kind, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", kind, id, err)
	}

	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, host.ErrNotFound)
	}

	return nil
}
