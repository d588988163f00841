package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNanoid(t *testing.T) {
	gen := Nanoid{Prefixes: map[string]string{"node": "n-"}}

	id, err := gen.Generate("node")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^n-[a-zA-Z0-9]{12}$`), id)

	id, err = gen.Generate("user")
	require.NoError(t, err)
	assert.Len(t, id, Length)
}

func TestNanoid_Uniqueness(t *testing.T) {
	const count = 5000

	seen := make(map[string]struct{}, count)

	for i := range count {
		id, err := GenerateWithPrefix("")
		require.NoError(t, err)

		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q after %d generations", id, i)

		seen[id] = struct{}{}
	}
}

func TestSequence(t *testing.T) {
	var s Sequence

	a, _ := s.Generate("node")
	b, _ := s.Generate("node")
	c, _ := s.Generate("user")

	assert.Equal(t, []string{"1", "2", "1"}, []string{a, b, c})
}
