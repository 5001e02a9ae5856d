package scrape

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanName normalizes a person or company name to NFC and collapses whitespace
func CleanName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// cleanNames applies CleanName and drops blanks and repeats, keeping order
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = CleanName(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
