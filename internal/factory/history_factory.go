package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/adapters/history"
	"github.com/mikey/llm-followup/internal/config"
	"github.com/mikey/llm-followup/internal/ports"
)

// HistoryFactory creates activity history stores
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHistoryStore creates a new history store based on the configuration
func (f *HistoryFactory) CreateHistoryStore() (ports.HistoryStore, error) {
	historyConfig := f.cfg.GetHistory()

	switch historyConfig.Type {
	case "memory":
		return history.NewMemoryHistory(f.logger), nil
	case "sqlite":
		return history.NewSQLiteHistory(historyConfig.SQLitePath, f.logger)
	case "mysql":
		return history.NewMySQLHistory(historyConfig.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported history store type: %s", historyConfig.Type)
	}
}
