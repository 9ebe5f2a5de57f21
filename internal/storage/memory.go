package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a thread-safe in-memory HistoryStore used by tests and by the
// CLI when no database is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]HistoryEntry
}

var _ HistoryStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]HistoryEntry)}
}

// RecordOutcome stores entry, assigning an id and finish time when missing.
func (m *Memory) RecordOutcome(_ context.Context, entry HistoryEntry) (HistoryEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	return entry, nil
}

// GetEntry returns the entry with the given id.
func (m *Memory) GetEntry(_ context.Context, id string) (HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return HistoryEntry{}, ErrNotFound
	}
	return e, nil
}

// ListEntries returns matching entries, most recently finished first.
func (m *Memory) ListEntries(_ context.Context, filter ListFilter) ([]HistoryEntry, error) {
	m.mu.RLock()
	out := make([]HistoryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if filter.Program != "" && e.Program != filter.Program {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FinishedAt.Equal(out[j].FinishedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	if len(out) > filter.limit() {
		out = out[:filter.limit()]
	}
	return out, nil
}
