package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/ports"
)

// SQLiteHistory is a SQLite implementation of the HistoryStore interface.
type SQLiteHistory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteHistory creates a new SQLite history store
func NewSQLiteHistory(dbPath string, logger *zap.Logger) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS activity_log (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP,
			level TEXT,
			message TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Create index on created_at so Recent stays cheap as the log grows
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_created_at ON activity_log(created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteHistory{
		db:     db,
		logger: logger,
	}, nil
}

// Append records one activity entry
func (h *SQLiteHistory) Append(ctx context.Context, entry ports.HistoryEntry) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, created_at, level, message)
		VALUES (?, ?, ?, ?)
	`, entry.ID, entry.Timestamp.Format(time.RFC3339), entry.Level, entry.Message)

	if err != nil {
		return fmt.Errorf("failed to insert activity entry: %w", err)
	}
	return nil
}

// Recent returns the most recent entries in chronological order
func (h *SQLiteHistory) Recent(ctx context.Context, limit int) ([]ports.HistoryEntry, error) {
	query := `
		SELECT id, created_at, level, message
		FROM activity_log
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}
	defer rows.Close()

	var entries []ports.HistoryEntry
	for rows.Next() {
		var entry ports.HistoryEntry
		var createdAt string
		if err := rows.Scan(&entry.ID, &createdAt, &entry.Level, &entry.Message); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			h.logger.Warn("Failed to parse activity timestamp", zap.Error(err))
		}
		entry.Timestamp = ts
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	// Flip newest-first query order back to chronological
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Stop closes the database connection
func (h *SQLiteHistory) Stop() {
	if err := h.db.Close(); err != nil {
		h.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
