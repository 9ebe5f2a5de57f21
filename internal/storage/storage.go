// Package storage persists the terminal outcomes of submitted transactions.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a history entry does not exist.
var ErrNotFound = errors.New("history entry not found")

// HistoryEntry is one finished transaction.
type HistoryEntry struct {
	ID          string    `db:"id" json:"id"`
	Generation  int64     `db:"generation" json:"generation"`
	Program     string    `db:"program" json:"program"`
	Function    string    `db:"function" json:"function"`
	LocalID     string    `db:"local_id" json:"local_id"`
	ConfirmedID string    `db:"confirmed_id" json:"confirmed_id,omitempty"`
	Status      string    `db:"status" json:"status"`
	ErrorKind   string    `db:"error_kind" json:"error_kind,omitempty"`
	Error       string    `db:"error" json:"error,omitempty"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
	FinishedAt  time.Time `db:"finished_at" json:"finished_at"`
}

// ListFilter narrows ListEntries. Zero values match everything; Limit <= 0
// means DefaultListLimit.
type ListFilter struct {
	Program string
	Status  string
	Limit   int
}

// DefaultListLimit caps unbounded history listings.
const DefaultListLimit = 100

// HistoryStore persists transaction history.
type HistoryStore interface {
	RecordOutcome(ctx context.Context, entry HistoryEntry) (HistoryEntry, error)
	GetEntry(ctx context.Context, id string) (HistoryEntry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]HistoryEntry, error)
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
