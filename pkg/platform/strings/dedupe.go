// Package strings provides small string-slice utilities shared across
// services, primarily for cleaning human-facing lists such as compliance
// recommendations.
package strings

import "strings"

// DedupeAndTrim trims whitespace, drops blanks, and removes duplicates while
// keeping first-occurrence order. Per-violation remediations come ahead of
// the generic recommendations, so keeping the first occurrence keeps the
// specific wording.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
