package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/ports"
)

// MySQLHistory is a MySQL implementation of the HistoryStore interface, for
// deployments that keep the activity log on a shared server.
type MySQLHistory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLHistory creates a new MySQL history store
func NewMySQLHistory(dsn string, logger *zap.Logger) (*MySQLHistory, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS activity_log (
			id VARCHAR(36) PRIMARY KEY,
			created_at TIMESTAMP,
			level VARCHAR(16),
			message TEXT,
			INDEX idx_created_at (created_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLHistory{
		db:     db,
		logger: logger,
	}, nil
}

// Append records one activity entry
func (h *MySQLHistory) Append(ctx context.Context, entry ports.HistoryEntry) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, created_at, level, message)
		VALUES (?, ?, ?, ?)
	`, entry.ID, entry.Timestamp.UTC(), entry.Level, entry.Message)

	if err != nil {
		return fmt.Errorf("failed to insert activity entry: %w", err)
	}
	return nil
}

// Recent returns the most recent entries in chronological order
func (h *MySQLHistory) Recent(ctx context.Context, limit int) ([]ports.HistoryEntry, error) {
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
		var createdAt time.Time
		if err := rows.Scan(&entry.ID, &createdAt, &entry.Level, &entry.Message); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entry.Timestamp = createdAt
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Stop closes the database connection
func (h *MySQLHistory) Stop() {
	if err := h.db.Close(); err != nil {
		h.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
