package host

import (
	"encoding/json"
	"math"
	"strconv"
)

// Canonical rewrites the numbers in v to one representation: integral values
// become int64 and the rest float64. Lists and maps are returned as
// copies with their elements rewritten; other values are returned unchanged.
func Canonical(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n)
		}

		return float64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}

		return float64(n)
	case float32:
		return canonicalFloat(float64(n))
	case float64:
		return canonicalFloat(n)
	case json.Number:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return i
		}

		if f, err := strconv.ParseFloat(string(n), 64); err == nil {
			return canonicalFloat(f)
		}

		return string(n)
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = Canonical(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[k] = Canonical(e)
		}

		return out
	default:
		return v
	}
}

// maxExactInt is the largest magnitude below which every integral float64
// converts to int64 without loss.
const maxExactInt = 1 << 53

func canonicalFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
		return int64(f)
	}

	return f
}
