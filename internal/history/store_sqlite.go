package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SQLite has a default limit of 999 bindable parameters per query (SQLITE_MAX_VARIABLE_NUMBER).
// With 8 columns per history entry, we can safely insert up to 124 entries per batch (124 * 8 = 992).
const (
	maxSQLiteParams    = 999
	columnsPerEntry    = 8
	maxEntriesPerBatch = maxSQLiteParams / columnsPerEntry // 124 entries
)

// SQLiteStore implements Store for SQLite databases.
type SQLiteStore struct {
	db            *sql.DB
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the refresh_history table if it doesn't exist and starts
// a background cleanup goroutine if retention is configured.
func NewSQLiteStore(db *sql.DB, retentionDays int) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS refresh_history (
			id TEXT PRIMARY KEY,
			pass_id TEXT NOT NULL,
			domain TEXT NOT NULL,
			topic TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT DEFAULT ''
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh_history table: %w", err)
	}

	// Create indexes for common queries
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_refresh_history_timestamp ON refresh_history(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_refresh_history_pass_id ON refresh_history(pass_id)",
		"CREATE INDEX IF NOT EXISTS idx_refresh_history_domain ON refresh_history(domain)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &SQLiteStore{
		db:            db,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}

	// Start background cleanup if retention is configured
	if retentionDays > 0 {
		go RunCleanupLoop(store.stopCleanup, store.cleanup)
	}

	return store, nil
}

// WriteBatch writes multiple history entries to SQLite using batch insert.
// Entries are chunked to stay within SQLite's parameter limit.
func (s *SQLiteStore) WriteBatch(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	for i := 0; i < len(entries); i += maxEntriesPerBatch {
		end := i + maxEntriesPerBatch
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[i:end]

		placeholders := make([]string, len(chunk))
		values := make([]interface{}, 0, len(chunk)*columnsPerEntry)

		for j, e := range chunk {
			placeholders[j] = "(?, ?, ?, ?, ?, ?, ?, ?)"

			values = append(values,
				e.ID,
				e.PassID,
				e.Domain,
				e.Topic,
				e.Timestamp.UTC().Format(time.RFC3339Nano),
				e.DurationMS,
				e.Status,
				e.Error,
			)
		}

		query := `INSERT OR IGNORE INTO refresh_history (id, pass_id, domain, topic,
			timestamp, duration_ms, status, error) VALUES ` +
			strings.Join(placeholders, ",")

		_, err := s.db.ExecContext(ctx, query, values...)
		if err != nil {
			return fmt.Errorf("failed to insert history batch %d: %w", i/maxEntriesPerBatch, err)
		}
	}

	return nil
}

// Recent returns the most recent history entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pass_id, domain, topic, timestamp, duration_ms, status, error
		FROM refresh_history
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.PassID, &e.Domain, &e.Topic, &ts, &e.DurationMS, &e.Status, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			// Fall back to the common DATETIME format SQLite may return
			parsed, _ = time.Parse("2006-01-02 15:04:05", ts)
		}
		e.Timestamp = parsed
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Flush is a no-op for SQLite as writes are synchronous.
func (s *SQLiteStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine.
// Note: We don't close the DB here as it's managed by the storage layer.
// Safe to call multiple times.
func (s *SQLiteStore) Close() error {
	if s.retentionDays > 0 && s.stopCleanup != nil {
		s.closeOnce.Do(func() {
			close(s.stopCleanup)
		})
	}
	return nil
}

// cleanup deletes history entries older than the retention period.
func (s *SQLiteStore) cleanup() {
	if s.retentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays).UTC().Format(time.RFC3339Nano)

	result, err := s.db.Exec("DELETE FROM refresh_history WHERE timestamp < ?", cutoff)
	if err != nil {
		slog.Error("failed to cleanup old history entries", "error", err)
		return
	}

	if rowsAffected, err := result.RowsAffected(); err == nil && rowsAffected > 0 {
		slog.Info("cleaned up old history entries", "deleted", rowsAffected)
	}
}
