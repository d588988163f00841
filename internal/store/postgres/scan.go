package postgres

import (
	"encoding/json"
	"fmt"

	"resource-mapper/internal/catalog"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanRecord scans a row in recordColumns order into a catalog record.
func scanRecord(row scannable, cat *catalog.Catalog, kind string, resolve catalog.ResolverFunc) (*catalog.Record, error) {
	var (
		id     string
		sub    string
		fields []byte
	)

	if err := row.Scan(&id, &sub, &fields); err != nil {
		return nil, err
	}

	values, err := decodeFields(fields)
	if err != nil {
		return nil, fmt.Errorf("decode fields of %s %q: %w", kind, id, err)
	}

	return cat.NewRecord(kind, sub, id, values, resolve)
}

// decodeFields unmarshals a JSONB column. NULL or empty input yields an
// empty map.
func decodeFields(data []byte) (map[string]any, error) {
	values := map[string]any{}
	if len(data) == 0 {
		return values, nil
	}

	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}

	if values == nil {
		values = map[string]any{}
	}

	return values, nil
}
