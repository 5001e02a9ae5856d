package model

import "strings"

// Dimension is a grouping attribute for aggregation
type Dimension string

const (
	DimensionCountry  Dimension = "country"
	DimensionLicensor Dimension = "licensor"
	DimensionInventor Dimension = "inventor"
)

// Dimensions lists every dimension in display order
var Dimensions = []Dimension{DimensionCountry, DimensionLicensor, DimensionInventor}

// ParseDimension validates a dimension name
func ParseDimension(s string) (Dimension, bool) {
	switch Dimension(s) {
	case DimensionCountry, DimensionLicensor, DimensionInventor:
		return Dimension(s), true
	default:
		return "", false
	}
}

// Label returns the column header used for the dimension
func (d Dimension) Label() string {
	switch d {
	case DimensionCountry:
		return "Country"
	case DimensionLicensor:
		return "Licensor"
	case DimensionInventor:
		return "Inventor"
	default:
		return string(d)
	}
}

// Plural returns the lowercase plural used in summary lines
func (d Dimension) Plural() string {
	switch d {
	case DimensionCountry:
		return "countries"
	case DimensionLicensor:
		return "licensors"
	case DimensionInventor:
		return "inventors"
	default:
		return strings.ToLower(string(d))
	}
}

// Query selects a subset of the patent table. Empty or All means no constraint.
type Query struct {
	Profile  string `json:"profile"`
	Country  string `json:"country"`
	Licensor string `json:"licensor"`
	Inventor string `json:"inventor"` // Case-sensitive substring
}

// AggregationRow is one group of an aggregation result
type AggregationRow struct {
	Value           string  `json:"value"`
	Count           int     `json:"count"`
	Ratio           float64 `json:"ratio"`            // count / total * 100
	NormalizedRatio float64 `json:"normalized_ratio"` // equal-share attribution / total * 100
}

// Summary carries the totals shown above an aggregation table
type Summary struct {
	Dimension Dimension `json:"dimension"`
	Total     int       `json:"total"`  // Patents in the subset
	Unique    int       `json:"unique"` // Distinct group values
}

// Options are the selector values available in a table
type Options struct {
	Profiles  []string `json:"profiles"`
	Countries []string `json:"countries"`
	Licensors []string `json:"licensors"`
}
