package di

import (
	"flag"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/config"
	"github.com/mikey/llm-followup/internal/core"
	"github.com/mikey/llm-followup/internal/events"
	"github.com/mikey/llm-followup/internal/factory"
	"github.com/mikey/llm-followup/internal/ignore"
	"github.com/mikey/llm-followup/internal/logging"
	"github.com/mikey/llm-followup/internal/utils"
)

// CLIFlags contains all command line flags for the one-shot scan application
type CLIFlags struct {
	// LLM provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Mailbox flags
	MailboxAddress  string
	MailboxPassword string
	IMAPHost        string
	IMAPPort        string
	SMTPHost        string
	SMTPPort        string
	UseTLS          bool

	// Scan flags
	LookbackDays   int
	Signature      string
	IgnoredDomains string
	Send           bool

	// Output flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// LLM provider flags
	flag.StringVar(&flags.Provider, "provider", "openai", "LLM provider (bedrock, gemini, openai)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 500, "Maximum tokens for LLM response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.2, "Temperature for LLM generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")
	flag.IntVar(&flags.MaxBodySize, "max-body-size", 8192, "Maximum conversation size to send to LLM")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-3.5-turbo", "OpenAI model name")

	// Mailbox flags
	flag.StringVar(&flags.MailboxAddress, "address", "", "Mailbox address to scan")
	flag.StringVar(&flags.MailboxPassword, "password", "", "Mailbox password (keyring is used if empty)")
	flag.StringVar(&flags.IMAPHost, "imap-host", "", "IMAP server host")
	flag.StringVar(&flags.IMAPPort, "imap-port", "993", "IMAP server port")
	flag.StringVar(&flags.SMTPHost, "smtp-host", "", "SMTP server host")
	flag.StringVar(&flags.SMTPPort, "smtp-port", "587", "SMTP server port")
	flag.BoolVar(&flags.UseTLS, "tls", true, "Use implicit TLS for IMAP")

	// Scan flags
	flag.IntVar(&flags.LookbackDays, "lookback", 1, "How many days back to scan")
	flag.StringVar(&flags.Signature, "signature", "", "Name to sign drafted follow-ups with")
	flag.StringVar(&flags.IgnoredDomains, "ignore", "", "Comma-separated list of ignored sender domains")
	flag.BoolVar(&flags.Send, "send", false, "Send drafted follow-ups after the scan")

	// Output flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container
// for the one-shot scan application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
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

	// Register ignored sender domains
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.SenderFilter {
		return ignore.NewChecker(cfg.GetScan().IgnoredDomains, logger)
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

	// Register draft composer
	if err := container.Provide(func(llmClient core.LLMClient, cfg *config.Config, logger *zap.Logger) *core.DraftComposer {
		return core.NewDraftComposer(llmClient, logger, cfg.GetScan().Signature)
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

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set LLM provider
	v.Set("llm.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_body_size", flags.MaxBodySize)
	}

	// Set mailbox configuration
	v.Set("mailbox.address", flags.MailboxAddress)
	v.Set("mailbox.password", flags.MailboxPassword)
	v.Set("mailbox.imap_host", flags.IMAPHost)
	v.Set("mailbox.imap_port", flags.IMAPPort)
	v.Set("mailbox.smtp_host", flags.SMTPHost)
	v.Set("mailbox.smtp_port", flags.SMTPPort)
	v.Set("mailbox.use_tls", flags.UseTLS)

	// Set scan configuration
	v.Set("scan.lookback_days", flags.LookbackDays)
	v.Set("scan.signature", flags.Signature)
	if flags.IgnoredDomains != "" {
		domains := strings.Split(flags.IgnoredDomains, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("scan.ignored_domains", domains)
	} else {
		v.Set("scan.ignored_domains", []string{})
	}

	return config.NewFromViper(v)
}
