package ports

import (
	"context"
	"time"
)

// HistoryEntry is one line of the append-only activity log.
type HistoryEntry struct {
	ID        string
	Timestamp time.Time
	Level     string
	Message   string
}

// HistoryStore persists the human-readable activity log across the process
// lifetime. Append order is preserved.
type HistoryStore interface {
	// Append records one activity entry
	Append(ctx context.Context, entry HistoryEntry) error

	// Recent returns the most recent entries in chronological order;
	// limit <= 0 returns everything
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
}
