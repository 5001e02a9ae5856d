package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ppiankov/hevcstat/internal/model"
)

// Metadata maps canonical patent IDs to their scraped metadata
type Metadata map[string]model.MetadataEntry

// Merge returns a new mapping with incoming entries overriding existing ones
func Merge(existing, incoming Metadata) Metadata {
	merged := make(Metadata, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}

// Missing returns the IDs that have no entry in m, in input order without duplicates
func Missing(ids []string, m Metadata) []string {
	seen := make(map[string]bool, len(ids))
	var missing []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := m[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// MetadataFile persists Metadata as an indented JSON object
type MetadataFile struct {
	path string
}

// NewMetadataFile creates a store backed by the JSON file at path
func NewMetadataFile(path string) *MetadataFile {
	return &MetadataFile{path: path}
}

// Path returns the backing file path
func (f *MetadataFile) Path() string {
	return f.path
}

// Load reads the cache file. A missing file yields an empty mapping.
func (f *MetadataFile) Load() (Metadata, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Metadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata cache: %w", err)
	}

	m := Metadata{}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode metadata cache %s: %w", f.path, err)
	}
	return m, nil
}

// LoadAll loads and merges several cache files in order; later files win.
func LoadAll(paths ...string) (Metadata, error) {
	merged := Metadata{}
	for _, p := range paths {
		m, err := NewMetadataFile(p).Load()
		if err != nil {
			return nil, err
		}
		merged = Merge(merged, m)
	}
	return merged, nil
}

// Persist overwrites the cache file with m. The data is written to a
// temporary file first and renamed into place.
func (f *MetadataFile) Persist(m Metadata) error {
	out := make(Metadata, len(m))
	for k, v := range m {
		if v.Inventors == nil {
			v.Inventors = []string{}
		}
		out[k] = v
	}

	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal metadata cache: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write metadata cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metadata cache: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod metadata cache: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace metadata cache: %w", err)
	}
	return nil
}
