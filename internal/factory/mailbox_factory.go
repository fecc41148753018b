package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/adapters/mailbox"
	"github.com/mikey/llm-followup/internal/config"
	"github.com/mikey/llm-followup/internal/core"
	"github.com/mikey/llm-followup/internal/credential"
)

// MailboxFactory creates mailbox readers and senders
type MailboxFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailboxFactory creates a new mailbox factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger) *MailboxFactory {
	return &MailboxFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReader creates an IMAP mailbox reader
func (f *MailboxFactory) CreateReader() (core.MailboxReader, error) {
	mailboxConfig, password, err := f.resolveCredentials()
	if err != nil {
		return nil, err
	}
	return mailbox.NewIMAPReader(
		mailboxConfig.IMAPHost,
		mailboxConfig.IMAPPort,
		mailboxConfig.Address,
		password,
		mailboxConfig.UseTLS,
		f.logger,
	), nil
}

// CreateSender creates an SMTP mailbox sender
func (f *MailboxFactory) CreateSender() (core.MailboxSender, error) {
	mailboxConfig, password, err := f.resolveCredentials()
	if err != nil {
		return nil, err
	}
	return mailbox.NewSMTPSender(
		mailboxConfig.SMTPHost,
		mailboxConfig.SMTPPort,
		mailboxConfig.Address,
		password,
		f.logger,
	), nil
}

// resolveCredentials returns the mailbox config and its password, falling
// back to the system keyring when the password is not set in the config.
func (f *MailboxFactory) resolveCredentials() (config.MailboxConfig, string, error) {
	mailboxConfig := f.cfg.GetMailbox()
	if mailboxConfig.Address == "" {
		return mailboxConfig, "", fmt.Errorf("mailbox address is not configured")
	}

	password := mailboxConfig.Password
	if password == "" {
		stored, err := credential.Get(mailboxConfig.Address)
		if err != nil {
			return mailboxConfig, "", fmt.Errorf("no password configured for %s: %w", mailboxConfig.Address, err)
		}
		password = stored
	}

	return mailboxConfig, password, nil
}
