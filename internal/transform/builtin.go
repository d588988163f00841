package transform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"resource-mapper/internal/apierr"
)

// JSON stores structured values as JSON text on the host side.
type JSON struct{}

func (JSON) Name() string { return "json" }

// Normalize parses host JSON text. Empty text and nil become nil.
func (JSON) Normalize(host any) (any, error) {
	var text string

	switch v := host.(type) {
	case nil:
		return nil, nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return nil, fmt.Errorf("json transform: unsupported host value %T", host)
	}

	if text == "" {
		return nil, nil
	}

	var out any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("json transform: %w", err)
	}

	return out, nil
}

// Denormalize serializes a wire value back to JSON text.
func (JSON) Denormalize(wire any) (any, error) {
	if wire == nil {
		return nil, nil
	}

	b, err := json.Marshal(wire)
	if err != nil {
		return nil, apierr.BadRequest("json transform: %v", err)
	}

	return string(b), nil
}

// Timestamp maps host unix seconds to RFC 3339 strings in UTC.
type Timestamp struct{}

func (Timestamp) Name() string { return "timestamp" }

// Normalize formats unix seconds. Numeric strings are accepted.
func (Timestamp) Normalize(host any) (any, error) {
	if host == nil {
		return nil, nil
	}

	secs, err := unixSeconds(host)
	if err != nil {
		return nil, err
	}

	return time.Unix(secs, 0).UTC().Format(time.RFC3339), nil
}

// Denormalize parses an RFC 3339 string into unix seconds.
func (Timestamp) Denormalize(wire any) (any, error) {
	if wire == nil {
		return nil, nil
	}

	s, ok := wire.(string)
	if !ok {
		return nil, apierr.BadRequest("timestamp must be a string, got %T", wire)
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apierr.BadRequest("malformed timestamp %q", s)
	}

	return t.Unix(), nil
}

func unixSeconds(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case string:
		secs, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("timestamp transform: %q is not unix seconds", n)
		}

		return secs, nil
	default:
		return 0, fmt.Errorf("timestamp transform: unsupported host value %T", v)
	}
}

// Boolean maps host flags stored as "1"/"0" to wire booleans.
type Boolean struct{}

func (Boolean) Name() string { return "boolean" }

// Normalize accepts "1"/"0", integers and booleans.
func (Boolean) Normalize(host any) (any, error) {
	switch v := host.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		return v != "" && v != "0", nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return nil, fmt.Errorf("boolean transform: unsupported host value %T", host)
	}
}

// Denormalize turns a wire boolean into "1" or "0".
func (Boolean) Denormalize(wire any) (any, error) {
	switch v := wire.(type) {
	case nil:
		return nil, nil
	case bool:
		if v {
			return "1", nil
		}

		return "0", nil
	default:
		return nil, apierr.BadRequest("boolean field must be true or false, got %T", wire)
	}
}
