package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-mapper/internal/apierr"
)

func TestRegistry(t *testing.T) {
	r := Default()

	assert.Equal(t, []string{"boolean", "json", "timestamp"}, r.Names())
	assert.True(t, r.Has("json"))
	assert.False(t, r.Has("jsn"))
	assert.Nil(t, r.Get("missing"))

	r.Add(upper{})
	assert.True(t, r.Has("upper"))

	got, err := r.Normalize("upper", "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)

	got, err = r.Normalize("", "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = r.Denormalize("missing", "abc")
	assert.Error(t, err)
}

func TestInverseLaw(t *testing.T) {
	tests := []struct {
		name  string
		tr    Transform
		value any
	}{
		{"json object", JSON{}, `{"a":1,"b":[true,null]}`},
		{"json nil", JSON{}, nil},
		{"timestamp", Timestamp{}, int64(1700000000)},
		{"timestamp epoch", Timestamp{}, int64(0)},
		{"timestamp nil", Timestamp{}, nil},
		{"boolean true", Boolean{}, "1"},
		{"boolean false", Boolean{}, "0"},
		{"boolean nil", Boolean{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := tt.tr.Normalize(tt.value)
			require.NoError(t, err)

			back, err := tt.tr.Denormalize(wire)
			require.NoError(t, err)
			assert.Equal(t, tt.value, back)
		})
	}
}

func TestNormalizeValues(t *testing.T) {
	wire, err := JSON{}.Normalize(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, wire)

	wire, err = JSON{}.Normalize("")
	require.NoError(t, err)
	assert.Nil(t, wire)

	_, err = JSON{}.Normalize("{not json")
	assert.Error(t, err)

	wire, err = Timestamp{}.Normalize("1700000000")
	require.NoError(t, err)
	assert.Equal(t, "2023-11-14T22:13:20Z", wire)

	wire, err = Boolean{}.Normalize(1)
	require.NoError(t, err)
	assert.Equal(t, true, wire)
}

func TestDenormalizeRejectsMalformedWire(t *testing.T) {
	_, err := Timestamp{}.Denormalize("yesterday")
	require.Error(t, err)
	assert.True(t, apierr.IsBadRequest(err))

	_, err = Timestamp{}.Denormalize(12)
	assert.True(t, apierr.IsBadRequest(err))

	_, err = Boolean{}.Denormalize("yes")
	assert.True(t, apierr.IsBadRequest(err))

	got, err := Timestamp{}.Denormalize("2023-11-14T23:13:20+01:00")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got)
}

type upper struct{}

func (upper) Name() string { return "upper" }

func (upper) Normalize(v any) (any, error) {
	s, _ := v.(string)
	out := []rune(s)

	for i, r := range out {
		if r >= 'a' && r <= 'z' {
			out[i] = r - 32
		}
	}

	return string(out), nil
}

func (upper) Denormalize(v any) (any, error) { return v, nil }
