package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/adapters/surface"
	"github.com/mikey/llm-followup/internal/config"
	"github.com/mikey/llm-followup/internal/core"
	"github.com/mikey/llm-followup/internal/events"
	"github.com/mikey/llm-followup/internal/factory"
	"github.com/mikey/llm-followup/internal/ignore"
	"github.com/mikey/llm-followup/internal/logging"
	"github.com/mikey/llm-followup/internal/ports"
	"github.com/mikey/llm-followup/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailboxFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewHistoryFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register mailbox reader and sender
	if err := container.Provide(func(f *factory.MailboxFactory) (core.MailboxReader, error) {
		return f.CreateReader()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.MailboxFactory) (core.MailboxSender, error) {
		return f.CreateSender()
	}); err != nil {
		return nil, err
	}

	// Register history store
	if err := container.Provide(func(f *factory.HistoryFactory) (ports.HistoryStore, error) {
		return f.CreateHistoryStore()
	}); err != nil {
		return nil, err
	}

	// Register ignored sender domains
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.SenderFilter {
		ignoredDomains := cfg.GetScan().IgnoredDomains
		if len(ignoredDomains) > 0 {
			logger.Info("Loaded ignored domains", zap.Strings("domains", ignoredDomains))
		}
		return ignore.NewChecker(ignoredDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register event queue
	if err := container.Provide(events.NewQueue); err != nil {
		return nil, err
	}

	// Register follow-up oracle
	if err := container.Provide(core.NewFollowupOracle); err != nil {
		return nil, err
	}

	// Register draft composer and reviser
	if err := container.Provide(func(llmClient core.LLMClient, cfg *config.Config, logger *zap.Logger) *core.DraftComposer {
		return core.NewDraftComposer(llmClient, logger, cfg.GetScan().Signature)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(llmClient core.LLMClient, cfg *config.Config, logger *zap.Logger) *core.DraftReviser {
		return core.NewDraftReviser(llmClient, logger, cfg.GetScan().Signature)
	}); err != nil {
		return nil, err
	}

	// Register pipeline coordinator and dispatcher
	if err := container.Provide(core.NewPipelineCoordinator); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewDispatcher); err != nil {
		return nil, err
	}

	// Register console surface
	if err := container.Provide(func(
		coordinator *core.PipelineCoordinator,
		dispatcher *core.Dispatcher,
		reviser *core.DraftReviser,
		queue *events.Queue,
		history ports.HistoryStore,
		cfg *config.Config,
		logger *zap.Logger,
	) ports.Surface {
		mailbox := cfg.GetMailbox()
		scan := cfg.GetScan()
		return surface.NewConsoleSurface(
			coordinator,
			dispatcher,
			reviser,
			queue,
			history,
			mailbox.Address,
			scan.LookbackDays,
			cfg.GetString("logging.activity_file"),
			logger,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
