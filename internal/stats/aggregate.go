package stats

import (
	"math"
	"sort"

	"github.com/ppiankov/hevcstat/internal/model"
)

// Aggregate groups the table by dim and returns one row per distinct value,
// ordered by count descending and then by value ascending.
//
// For country and licensor every record counts once and NormalizedRatio equals
// Ratio. For inventors a record counts once for each listed inventor, and the
// normalized share splits the record's unit weight equally among its k
// inventors. Records without inventors are attributed to model.UnknownInventor.
func Aggregate(table model.Table, dim model.Dimension) []model.AggregationRow {
	total := len(table)
	if total == 0 {
		return []model.AggregationRow{}
	}

	counts := make(map[string]int)
	weights := make(map[string]float64)

	for _, rec := range table {
		switch dim {
		case model.DimensionCountry:
			counts[rec.Country]++
			weights[rec.Country]++
		case model.DimensionLicensor:
			counts[rec.Licensor]++
			weights[rec.Licensor]++
		case model.DimensionInventor:
			names := uniqueNames(rec.InventorList())
			share := 1 / float64(len(names))
			for _, name := range names {
				counts[name]++
				weights[name] += share
			}
		}
	}

	rows := make([]model.AggregationRow, 0, len(counts))
	for value, count := range counts {
		rows = append(rows, model.AggregationRow{
			Value:           value,
			Count:           count,
			Ratio:           percent(float64(count), total),
			NormalizedRatio: percent(weights[value], total),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Value < rows[j].Value
	})
	return rows
}

// Summarize returns the subset size and the number of distinct group values
func Summarize(table model.Table, dim model.Dimension) model.Summary {
	return model.Summary{
		Dimension: dim,
		Total:     len(table),
		Unique:    len(Aggregate(table, dim)),
	}
}

// Options returns the distinct selector values present in the table.
// Profiles follow the pool's canonical order; other values are sorted.
func Options(table model.Table) model.Options {
	profiles := make(map[string]bool)
	countries := make(map[string]bool)
	licensors := make(map[string]bool)
	for _, rec := range table {
		profiles[rec.Profile] = true
		countries[rec.Country] = true
		licensors[rec.Licensor] = true
	}

	var ordered []string
	for _, p := range model.Profiles {
		if profiles[p] {
			ordered = append(ordered, p)
			delete(profiles, p)
		}
	}
	ordered = append(ordered, sortedKeys(profiles)...)

	return model.Options{
		Profiles:  ordered,
		Countries: sortedKeys(countries),
		Licensors: sortedKeys(licensors),
	}
}

// Top returns at most n rows; n <= 0 returns all of them
func Top(rows []model.AggregationRow, n int) []model.AggregationRow {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

func percent(v float64, total int) float64 {
	return round2(v / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// uniqueNames drops repeated names so one record never counts twice for the same inventor
func uniqueNames(names []string) []string {
	if len(names) < 2 {
		return names
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
