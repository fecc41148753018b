package history

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/ports"
)

// MemoryHistory is an in-memory implementation of the HistoryStore interface.
// Entries live only as long as the process.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []ports.HistoryEntry
	logger  *zap.Logger
}

// NewMemoryHistory creates a new in-memory history store
func NewMemoryHistory(logger *zap.Logger) *MemoryHistory {
	return &MemoryHistory{
		logger: logger,
	}
}

// Append records one activity entry
func (h *MemoryHistory) Append(_ context.Context, entry ports.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	return nil
}

// Recent returns the most recent entries in chronological order
func (h *MemoryHistory) Recent(_ context.Context, limit int) ([]ports.HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start := 0
	if limit > 0 && len(h.entries) > limit {
		start = len(h.entries) - limit
	}

	out := make([]ports.HistoryEntry, len(h.entries)-start)
	copy(out, h.entries[start:])
	return out, nil
}
