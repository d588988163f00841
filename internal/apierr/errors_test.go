package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"resource-mapper/internal/host"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		title  string
	}{
		{"bad request", BadRequest("missing %s", "data"), http.StatusBadRequest, "Bad Request"},
		{"wrapped bad request", fmt.Errorf("decode: %w", BadRequest("x")), http.StatusBadRequest, "Bad Request"},
		{"not found sentinel", fmt.Errorf("load 7: %w", host.ErrNotFound), http.StatusNotFound, "Not Found"},
		{"forbidden sentinel", host.ErrForbidden, http.StatusForbidden, "Forbidden"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Unexpected error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.title, got.Title)
		})
	}
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("db exploded")
	e := Internal(cause)

	assert.Equal(t, "See server logs", e.Detail)
	assert.ErrorIs(t, e, cause)
	assert.NotContains(t, e.Error(), "db exploded")
}

func TestIsBadRequest(t *testing.T) {
	assert.True(t, IsBadRequest(fmt.Errorf("wrap: %w", BadRequest("x"))))
	assert.False(t, IsBadRequest(Forbidden("x")))
	assert.False(t, IsBadRequest(errors.New("x")))
}
