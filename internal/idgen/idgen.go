// Package idgen generates short, URL-safe record identities backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the character set of generated ids.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters, excluding any prefix.
const Length = 12

// Generator produces record identities.
type Generator interface {
	Generate(kind string) (string, error)
}

// Nanoid generates random ids, optionally prefixed per kind.
type Nanoid struct {
	// Prefixes maps a kind to the prefix of its ids.
	Prefixes map[string]string
}

// Generate returns a new id for a record of kind.
func (n Nanoid) Generate(kind string) (string, error) {
	return GenerateWithPrefix(n.Prefixes[kind])
}

// GenerateWithPrefix returns a new id with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}

	return prefix + id, nil
}

// Sequence hands out "1", "2", ... per kind. It is deterministic and meant
// for fixtures and tests; it is not safe for concurrent use.
type Sequence struct {
	next map[string]int
}

// Generate returns the next number for kind.
func (s *Sequence) Generate(kind string) (string, error) {
	if s.next == nil {
		s.next = map[string]int{}
	}

	s.next[kind]++

	return fmt.Sprint(s.next[kind]), nil
}
