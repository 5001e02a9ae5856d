// Package patentid derives canonical lookup keys from pool patent numbers.
//
// The pool lists some European patents under the number of a related national
// filing, e.g. "KR10-1234567-EP2345678". The canonical key for those is the EP
// number, and the record's jurisdiction becomes "EP". Korean numbers carry a
// "10-" registration prefix that the lookup site does not use, so hyphens are
// removed from them.
package patentid

import "strings"

const (
	epMarker = "-EP"
	krMarker = "KR10-"
)

// CountryEP is the jurisdiction assigned to numbers carrying an EP suffix
const CountryEP = "EP"

// Normalize returns the canonical ID and jurisdiction for a raw patent number.
// country is the value listed alongside the number and is returned unchanged
// unless the number itself encodes the jurisdiction. When the marker repeats,
// the last EP number is taken so the result is stable under re-normalization.
func Normalize(raw, country string) (string, string) {
	id := strings.TrimSpace(raw)

	if pos := strings.LastIndex(id, epMarker); pos > 0 {
		return id[pos+1:], CountryEP
	}

	if strings.Contains(id, krMarker) {
		return strings.ReplaceAll(id, "-", ""), country
	}

	return id, country
}

// Canonical returns only the canonical ID for raw
func Canonical(raw string) string {
	id, _ := Normalize(raw, "")
	return id
}

// LookupKeys returns the distinct keys to try when fetching metadata for raw,
// canonical key first. The raw number is kept as a fallback when it differs.
func LookupKeys(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	canonical := Canonical(trimmed)
	if trimmed == "" {
		return nil
	}
	if canonical == trimmed {
		return []string{canonical}
	}
	return []string{canonical, trimmed}
}

// Dedup removes duplicate and empty IDs, keeping first occurrence order
func Dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
