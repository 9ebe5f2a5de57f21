// Package postgres implements storage.HistoryStore on PostgreSQL via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/R3E-Network/zkfactor/internal/storage"
)

// Store implements storage.HistoryStore backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.HistoryStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn, configures the pool and pings the server.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	const (
		maxOpenConnections = 20
		maxIdleConnections = 5
		maxConnLifetime    = time.Hour
		maxConnIdleTime    = 5 * time.Minute
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConnections)
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxLifetime(maxConnLifetime)
	db.SetConnMaxIdleTime(maxConnIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

const insertEntry = `
	INSERT INTO tx_history (id, generation, program, function, local_id, confirmed_id,
		status, error_kind, error, started_at, finished_at)
	VALUES (:id, :generation, :program, :function, :local_id, :confirmed_id,
		:status, :error_kind, :error, :started_at, :finished_at)
	ON CONFLICT (id) DO UPDATE SET
		confirmed_id = EXCLUDED.confirmed_id,
		status = EXCLUDED.status,
		error_kind = EXCLUDED.error_kind,
		error = EXCLUDED.error,
		finished_at = EXCLUDED.finished_at
`

const selectColumns = `id, generation, program, function, local_id, confirmed_id,
	status, error_kind, error, started_at, finished_at`

// RecordOutcome upserts entry, assigning an id and finish time when missing.
func (s *Store) RecordOutcome(ctx context.Context, entry storage.HistoryEntry) (storage.HistoryEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now().UTC()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = entry.FinishedAt
	}

	if _, err := s.db.NamedExecContext(ctx, insertEntry, entry); err != nil {
		return storage.HistoryEntry{}, fmt.Errorf("insert history entry: %w", err)
	}
	return entry, nil
}

// GetEntry returns the entry with the given id.
func (s *Store) GetEntry(ctx context.Context, id string) (storage.HistoryEntry, error) {
	var e storage.HistoryEntry
	err := s.db.GetContext(ctx, &e, `SELECT `+selectColumns+` FROM tx_history WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.HistoryEntry{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.HistoryEntry{}, fmt.Errorf("get history entry: %w", err)
	}
	return e, nil
}

// ListEntries returns matching entries, most recently finished first.
func (s *Store) ListEntries(ctx context.Context, filter storage.ListFilter) ([]storage.HistoryEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	entries := []storage.HistoryEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT `+selectColumns+`
		FROM tx_history
		WHERE ($1 = '' OR program = $1) AND ($2 = '' OR status = $2)
		ORDER BY finished_at DESC, id
		LIMIT $3
	`, filter.Program, filter.Status, limit)
	if err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	return entries, nil
}
