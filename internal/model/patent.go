package model

import "strings"

// Sentinel selector and lookup values
const (
	All             = "All"     // No constraint for a selector
	UnknownInventor = "UNKNOWN" // Inventor placeholder when metadata is missing
)

// InventorDelimiter joins a record's inventors into a single column value
const InventorDelimiter = "; "

// Profiles lists the HEVC Advance profiles in selector order
var Profiles = []string{"Main/Main10", "Multiview", "Optional", "Range Extension", "Scalability"}

// PatentRecord is one row of the cleaned patent-pool dataset
type PatentRecord struct {
	RawNumber  string   `json:"raw_number"`          // Patent Number as listed by the pool
	Number     string   `json:"number"`              // Canonical lookup ID
	Profile    string   `json:"profile"`             // HEVC profile the patent is listed under
	Country    string   `json:"country"`             // Derived jurisdiction
	RawCountry string   `json:"raw_country"`         // Country column as listed by the pool
	Licensor   string   `json:"licensor"`            // Contributing licensor
	Inventors  []string `json:"inventors,omitempty"` // Joined from the metadata cache

	Extra map[string]string `json:"extra,omitempty"` // Remaining source columns
}

// InventorColumn returns the inventors joined with InventorDelimiter,
// or UnknownInventor when none are known.
func (r *PatentRecord) InventorColumn() string {
	if len(r.Inventors) == 0 {
		return UnknownInventor
	}
	return strings.Join(r.Inventors, InventorDelimiter)
}

// InventorList returns the inventors, substituting UnknownInventor for an empty list
func (r *PatentRecord) InventorList() []string {
	if len(r.Inventors) == 0 {
		return []string{UnknownInventor}
	}
	return r.Inventors
}

// Table is an ordered set of patent records.
// Filtered tables share record pointers with the table they came from.
type Table []*PatentRecord
