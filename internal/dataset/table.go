package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/hevcstat/internal/cache"
	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/patentid"
)

// Source column names
const (
	ColPatentNumber = "Patent Number"
	ColProfile      = "Profile"
	ColLicensor     = "Licensor"
	ColCountry      = "Country"

	// Derived columns written on export
	ColCountryNew      = "Country New"
	ColPatentNumberNew = "Patent Number New"
	ColInventor        = "Inventor"
)

// Columns the dashboard never shows
var droppedColumns = []string{
	"Count (Claims)",
	"Claim Number",
	"Category",
	"Representative HEVC/H.265 Sections (Version 2, unless otherwise specified)",
	"Count (Patents)",
	"Est. Exp. Date",
}

var derivedColumns = map[string]bool{
	ColCountryNew:      true,
	ColPatentNumberNew: true,
	ColInventor:        true,
}

// TableFromFrame builds normalized patent records from a cleaned frame.
// Duplicate canonical IDs keep their first record.
func TableFromFrame(f *Frame) (model.Table, error) {
	idxNumber := f.Index(ColPatentNumber)
	if idxNumber < 0 {
		return nil, fmt.Errorf("column %q not found", ColPatentNumber)
	}
	idxProfile := f.Index(ColProfile)
	idxLicensor := f.Index(ColLicensor)
	idxCountry := f.Index(ColCountry)

	get := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	seen := make(map[string]bool, len(f.Rows))
	table := make(model.Table, 0, len(f.Rows))
	for _, row := range f.Rows {
		raw := get(row, idxNumber)
		if raw == "" {
			continue
		}

		rawCountry := get(row, idxCountry)
		id, country := patentid.Normalize(raw, rawCountry)
		if seen[id] {
			continue
		}
		seen[id] = true

		rec := &model.PatentRecord{
			RawNumber:  raw,
			Number:     id,
			Profile:    get(row, idxProfile),
			Country:    country,
			RawCountry: rawCountry,
			Licensor:   get(row, idxLicensor),
		}

		for i, h := range f.Header {
			if i == idxNumber || i == idxProfile || i == idxLicensor || i == idxCountry || derivedColumns[h] {
				continue
			}
			if v := get(row, i); v != "" {
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[h] = v
			}
		}
		table = append(table, rec)
	}
	return table, nil
}

// LoadTable reads the cleaned dataset at path
func LoadTable(path string) (model.Table, error) {
	frame, err := ReadFrameFile(path, 0)
	if err != nil {
		return nil, err
	}
	return TableFromFrame(frame)
}

// Join copies inventors from the metadata cache onto each record and returns
// how many records had no cache entry.
func Join(table model.Table, meta cache.Metadata) int {
	missing := 0
	for _, rec := range table {
		entry, ok := meta[rec.Number]
		if !ok {
			missing++
			rec.Inventors = nil
			continue
		}
		rec.Inventors = append([]string(nil), entry.Inventors...)
	}
	return missing
}

// LoadJoined loads the cleaned dataset and joins the metadata cache files
// onto it. Files are merged in order and later files win. Missing cache
// files are skipped.
func LoadJoined(tablePath string, metadataPaths ...string) (model.Table, int, error) {
	table, err := LoadTable(tablePath)
	if err != nil {
		return nil, 0, err
	}
	meta, err := cache.LoadAll(metadataPaths...)
	if err != nil {
		return nil, 0, fmt.Errorf("load metadata: %w", err)
	}
	return table, Join(table, meta), nil
}

// TableHeader is the column order used when exporting records
var TableHeader = []string{
	ColProfile,
	ColLicensor,
	ColPatentNumber,
	ColCountry,
	ColCountryNew,
	ColPatentNumberNew,
	ColInventor,
}

// WriteTableCSV writes records in table order with TableHeader columns
func WriteTableCSV(w io.Writer, table model.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(TableHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range table {
		row := []string{
			rec.Profile,
			rec.Licensor,
			rec.RawNumber,
			rec.RawCountry,
			rec.Country,
			rec.Number,
			rec.InventorColumn(),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", rec.Number, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
