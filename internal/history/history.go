// Package history provides optional auditing of refresh outcomes.
// Every produce attempt made by the scheduler (or a miss-triggered handler
// write) can be recorded for later inspection: which topic, how long the
// produce took, and whether it failed. Records are buffered and written in
// batches so history never slows the refresh path.
package history

import (
	"context"
	"time"
)

// Store defines the interface for history storage backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// WriteBatch writes multiple history entries to storage.
	// This is called by the Logger when flushing buffered entries.
	WriteBatch(ctx context.Context, entries []*Entry) error

	// Recent returns the most recent entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Flush forces any pending writes to complete.
	Flush(ctx context.Context) error

	// Close releases resources and flushes pending writes.
	Close() error
}

// Entry records the outcome of one produce attempt.
type Entry struct {
	// ID is a unique identifier for this entry (UUID)
	ID string `json:"id" bson:"_id"`

	// PassID groups entries produced in the same refresh pass (UUID).
	// Miss-triggered writes from request handlers carry an empty PassID.
	PassID string `json:"pass_id" bson:"pass_id"`

	Domain string `json:"domain" bson:"domain"`
	Topic  string `json:"topic" bson:"topic"`

	// Timestamp is when the produce attempt completed
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`

	// DurationMS is how long the produce took, in milliseconds
	DurationMS int64 `json:"duration_ms" bson:"duration_ms"`

	// Status is "ok" or "error"
	Status string `json:"status" bson:"status"`

	// Error holds the produce error text when Status is "error"
	Error string `json:"error,omitempty" bson:"error,omitempty"`
}

// Statuses for Entry.Status.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Config holds refresh history configuration
type Config struct {
	// Enabled controls whether history recording is active
	Enabled bool

	// BufferSize is the number of entries to buffer before dropping
	BufferSize int

	// FlushInterval is how often to flush buffered entries
	FlushInterval time.Duration

	// RetentionDays is how long to keep history data (0 = forever)
	RetentionDays int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		RetentionDays: 30,
	}
}
