package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MetadataEntry holds the metadata scraped for one canonical patent ID.
// An empty Inventors list means the page was fetched but listed no inventors.
type MetadataEntry struct {
	Inventors       []string  `json:"inventor_name"`
	Assignees       []string  `json:"assignees,omitempty"`
	Title           string    `json:"title,omitempty"`
	PublicationDate string    `json:"publication_date,omitempty"`
	SourceURL       string    `json:"source_url,omitempty"`
	FetchedAt       time.Time `json:"fetched_at,omitzero"`

	// Extra keeps fields written by other tools so they survive a rewrite
	Extra map[string]json.RawMessage `json:"-"`
}

var metadataKeys = []string{"inventor_name", "assignees", "title", "publication_date", "source_url", "fetched_at"}

// MarshalJSON writes the known fields followed by any preserved extra fields
func (e MetadataEntry) MarshalJSON() ([]byte, error) {
	type plain MetadataEntry
	data, err := json.Marshal(plain(e))
	if err != nil || len(e.Extra) == 0 {
		return data, err
	}

	fields := make(map[string]json.RawMessage, len(e.Extra)+len(metadataKeys))
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if _, known := fields[k]; !known {
			fields[k] = v
		}
	}
	return json.Marshal(fields)
}

// UnmarshalJSON accepts inventor_name either as a list of strings or as the
// legacy string holding a JSON list of {"inventor_name": ...} objects.
func (e *MetadataEntry) UnmarshalJSON(data []byte) error {
	type plain MetadataEntry
	var raw struct {
		plain
		Inventors json.RawMessage `json:"inventor_name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = MetadataEntry(raw.plain)
	inventors, err := decodeInventors(raw.Inventors)
	if err != nil {
		return fmt.Errorf("decode inventor_name: %w", err)
	}
	e.Inventors = inventors

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, k := range metadataKeys {
		delete(fields, k)
	}
	if len(fields) > 0 {
		e.Extra = fields
	}
	return nil
}

func decodeInventors(data json.RawMessage) ([]string, error) {
	if len(data) == 0 || string(data) == "null" {
		return []string{}, nil
	}

	// Plain list of names
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		return names, nil
	}

	// Legacy: a string containing an encoded list of objects
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, err
	}
	if encoded == "" {
		return []string{}, nil
	}

	var objects []struct {
		InventorName string `json:"inventor_name"`
	}
	if err := json.Unmarshal([]byte(encoded), &objects); err != nil {
		return nil, err
	}

	names = make([]string, 0, len(objects))
	for _, o := range objects {
		if o.InventorName != "" {
			names = append(names, o.InventorName)
		}
	}
	return names, nil
}
