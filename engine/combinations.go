package engine

import "strings"

// Pattern is one inclusion pattern: slot i holds the i-th grouping dimension
// name when that dimension is broken out, or "" when it collapses to Total.
type Pattern []string

// Present reports whether slot i is broken out.
func (p Pattern) Present(i int) bool { return p[i] != "" }

func (p Pattern) String() string {
	parts := make([]string, len(p))
	for i, name := range p {
		if name == "" {
			name = "*"
		}
		parts[i] = name
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Combinations enumerates all 2^n inclusion patterns of group in binary
// counting order: pattern k has slot i present iff bit i of k is set.
// An empty group yields exactly one empty pattern.
func Combinations(group []string) []Pattern {
	n := len(group)
	patterns := make([]Pattern, 0, 1<<n)
	for k := 0; k < 1<<n; k++ {
		p := make(Pattern, n)
		for i := range group {
			if k>>i&1 == 1 {
				p[i] = group[i]
			}
		}
		patterns = append(patterns, p)
	}
	return patterns
}
