package match

import "sort"

// Levenshtein computes the Levenshtein distance (edit distance) between two strings.
// The distance is the minimum number of single-character edits (insertions, deletions,
// or substitutions) required to transform one string into the other.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}

	if len(a) == 0 {
		return len(b)
	}

	if len(b) == 0 {
		return len(a)
	}

	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)

	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j

		for i := 1; i <= len(a); i++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(a)]
}

// Suggest returns the candidates whose normalized form is within maxDistance
// edits of name, closest first (ties broken alphabetically). It is used to
// attach "did you mean" hints to unknown transform, filter and sort names.
func Suggest(name string, candidates []string, maxDistance int) []string {
	type scored struct {
		value string
		dist  int
	}

	norm := NormalizeIdent(name)

	var hits []scored

	for _, c := range candidates {
		if d := Levenshtein(norm, NormalizeIdent(c)); d <= maxDistance {
			hits = append(hits, scored{value: c, dist: d})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}

		return hits[i].value < hits[j].value
	})

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.value
	}

	return out
}
