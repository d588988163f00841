// Package match provides identifier tokenization, kebab-casing of host field
// names, and Levenshtein-based "did you mean" suggestions for schema
// diagnostics and request errors.
package match
