package core

import (
	"context"
	"time"
)

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends a prompt to the model and returns the completion text
	Complete(ctx context.Context, prompt string) (string, error)
}

// MailboxReader defines the interface for fetching messages from a mailbox
type MailboxReader interface {
	// Fetch returns the messages received inside [since, until] in
	// chronological order
	Fetch(ctx context.Context, since, until time.Time) ([]Message, error)
}

// MailboxSender defines the interface for sending a composed email.
// Send never panics or propagates transport errors; failure is reported
// through the returned boolean.
type MailboxSender interface {
	Send(ctx context.Context, subject, body string, recipients []string) bool
}
