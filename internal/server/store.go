package server

import (
	"sync"
	"time"

	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/stats"
)

// Loader produces the joined patent table
type Loader func() (model.Table, error)

// Store holds the table the dashboard serves and swaps it on reload
type Store struct {
	load Loader

	mu       sync.RWMutex
	table    model.Table
	options  model.Options
	loadedAt time.Time
	gen      uint64
}

// NewStore creates a store. Call Reload before serving.
func NewStore(load Loader) *Store {
	return &Store{load: load}
}

// Reload replaces the table with a fresh one from the loader. The previous
// table stays in place when loading fails.
func (s *Store) Reload() (int, error) {
	table, err := s.load()
	if err != nil {
		return 0, err
	}
	opts := stats.Options(table)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	s.options = opts
	s.loadedAt = time.Now()
	s.gen++
	return len(table), nil
}

// Table returns the current table. Callers must not modify it.
func (s *Store) Table() model.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Snapshot returns the current table with its load generation. The
// generation changes on every successful reload.
func (s *Store) Snapshot() (model.Table, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table, s.gen
}

// Options returns the selector values of the current table
func (s *Store) Options() model.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options
}

// LoadedAt returns when the table was last loaded
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
