package schema

import (
	"errors"
	"fmt"
	"strings"

	"resource-mapper/internal/match"
)

// ParseIncludePath splits a dotted include path such as "author.picture"
// into its exposed relationship names.
func ParseIncludePath(path string) ([]string, error) {
	if path == "" {
		return nil, errors.New("empty path")
	}

	segments := strings.Split(path, ".")

	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", path)
		}

		if strings.ContainsAny(seg, " \t,") {
			return nil, fmt.Errorf("invalid path %q: invalid segment %q", path, seg)
		}
	}

	return segments, nil
}

// DefaultExposedName derives the exposed name of a host field declared
// without one: a "field_" prefix is dropped and the rest kebab-cased.
func DefaultExposedName(source string) string {
	name := strings.TrimPrefix(source, "field_")
	if name == "" {
		name = source
	}

	if kebab := match.Kebab(name); kebab != "" {
		return kebab
	}

	return name
}
