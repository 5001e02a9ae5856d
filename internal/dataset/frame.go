// Package dataset loads, cleans and exports the patent-pool CSV.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ErrMissingDataset is returned when the primary dataset file does not exist
var ErrMissingDataset = errors.New("dataset file not found")

// Frame is a CSV table held as rows of strings
type Frame struct {
	Header []string
	Rows   [][]string
}

// ReadFrame parses CSV from r after skipping skip leading lines
func ReadFrame(r io.Reader, skip int) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for i := 0; i < skip; i++ {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return &Frame{}, nil
			}
			return nil, fmt.Errorf("skip line %d: %w", i+1, err)
		}
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Frame{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	frame := &Frame{Header: header}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(frame.Rows)+1, err)
		}
		if isBlank(rec) {
			continue
		}
		// Pad short rows so column lookups never go out of range
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		frame.Rows = append(frame.Rows, rec)
	}
	return frame, nil
}

// ReadFrameFile reads a CSV file. A missing file wraps ErrMissingDataset.
func ReadFrameFile(path string, skip int) (*Frame, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingDataset, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	frame, err := ReadFrame(f, skip)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return frame, nil
}

// Index returns the position of column name, or -1
func (f *Frame) Index(name string) int {
	for i, h := range f.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Drop removes the named columns; names not present are ignored.
// It returns the columns actually removed.
func (f *Frame) Drop(names ...string) []string {
	drop := make(map[int]bool)
	var dropped []string
	for _, name := range names {
		if idx := f.Index(name); idx >= 0 && !drop[idx] {
			drop[idx] = true
			dropped = append(dropped, name)
		}
	}
	if len(drop) == 0 {
		return nil
	}

	f.Header = keep(f.Header, drop)
	for i, row := range f.Rows {
		f.Rows[i] = keep(row, drop)
	}
	return dropped
}

// DedupBy keeps the first row for each distinct value of column name and
// returns the number of rows removed.
func (f *Frame) DedupBy(name string) (int, error) {
	idx := f.Index(name)
	if idx < 0 {
		return 0, fmt.Errorf("column %q not found", name)
	}

	seen := make(map[string]bool, len(f.Rows))
	rows := f.Rows[:0]
	removed := 0
	for _, row := range f.Rows {
		key := strings.TrimSpace(row[idx])
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		rows = append(rows, row)
	}
	f.Rows = rows
	return removed, nil
}

// Write serializes the frame as CSV with a header row
func (f *Frame) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writer.WriteAll(f.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteFile writes the frame to path, replacing any existing file
func (f *Frame) WriteFile(path string) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return f.Write(out)
}

func keep(row []string, drop map[int]bool) []string {
	out := make([]string, 0, len(row))
	for i, v := range row {
		if !drop[i] {
			out = append(out, v)
		}
	}
	return out
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
