package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/events"
)

// Dispatcher sends approved drafts through the mail transport, counting
// outcomes instead of aborting on failure.
type Dispatcher struct {
	sender MailboxSender
	queue  *events.Queue
	logger *zap.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(sender MailboxSender, queue *events.Queue, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		queue:  queue,
		logger: logger,
	}
}

// Dispatch sends every candidate that carries a draft, in list order.
// Candidates without a draft are skipped and count toward neither total.
// A failed send is counted and logged; the iteration always completes.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []*FollowupCandidate) (sent, failed int) {
	for i, candidate := range candidates {
		if candidate.Draft == nil {
			continue
		}

		d.queue.Progress(fmt.Sprintf("Sending email %d/%d...", i+1, len(candidates)))

		draft := candidate.Draft
		if d.sender.Send(ctx, draft.Subject, draft.Body, draft.Recipients) {
			sent++
			d.queue.Log(events.LevelInfo,
				fmt.Sprintf("Successfully sent follow-up for: %s", candidate.Conversation.Subject))
		} else {
			failed++
			d.queue.Log(events.LevelError,
				fmt.Sprintf("Failed to send follow-up for: %s", candidate.Conversation.Subject))
		}
	}

	d.logger.Info("Dispatch finished",
		zap.Int("sent", sent),
		zap.Int("failed", failed))

	return sent, failed
}
