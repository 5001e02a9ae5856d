package ledger

import (
	"context"
	"sync"

	"github.com/ppiankov/hevcstat/internal/model"
)

// Memory is a Ledger that lives for the duration of the process
type Memory struct {
	mu     sync.RWMutex
	states map[string]model.CrawlState
}

// NewMemory creates an empty in-memory ledger
func NewMemory() *Memory {
	return &Memory{states: make(map[string]model.CrawlState)}
}

// Get returns the state for id
func (m *Memory) Get(ctx context.Context, id string) (model.CrawlState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.states[id]; ok {
		return st, nil
	}
	return unseen(id), nil
}

// States returns the state of every id
func (m *Memory) States(ctx context.Context, ids []string) (map[string]model.CrawlState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]model.CrawlState, len(ids))
	for _, id := range ids {
		if st, ok := m.states[id]; ok {
			out[id] = st
		} else {
			out[id] = unseen(id)
		}
	}
	return out, nil
}

// Put stores states, replacing earlier ones
func (m *Memory) Put(ctx context.Context, states ...model.CrawlState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range states {
		m.states[st.PatentID] = st
	}
	return nil
}

// Counts returns the number of IDs in each status
func (m *Memory) Counts(ctx context.Context) (map[model.CrawlStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[model.CrawlStatus]int)
	for _, st := range m.states {
		counts[st.Status]++
	}
	return counts, nil
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}
