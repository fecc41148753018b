package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrNoDraft is returned when revision is requested without a draft.
	ErrNoDraft = errors.New("no draft selected for revision")
	// ErrEmptyInstruction is returned when the revision instruction is blank.
	ErrEmptyInstruction = errors.New("revision instruction is empty")
)

const revisionPromptFormat = `You are an AI assistant. Here is a follow-up email draft:

Subject: %s

%s

User request: %s

Please revise the email accordingly. Start with 'Subject: ' for the subject line.`

// DraftReviser rewrites a draft according to a free-text operator
// instruction. Revision replaces subject and body but never the recipients.
type DraftReviser struct {
	llmClient LLMClient
	logger    *zap.Logger
	signature string
}

// NewDraftReviser creates a new draft reviser
func NewDraftReviser(llmClient LLMClient, logger *zap.Logger, signature string) *DraftReviser {
	return &DraftReviser{
		llmClient: llmClient,
		logger:    logger,
		signature: signature,
	}
}

// Revise produces a new draft from the current one plus the instruction.
// Unlike composition, a missing draft or blank instruction is a caller error
// and is reported rather than recovered.
func (r *DraftReviser) Revise(ctx context.Context, draft *Draft, instruction string) (*Draft, error) {
	if draft == nil {
		return nil, ErrNoDraft
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrEmptyInstruction
	}

	prompt := fmt.Sprintf(revisionPromptFormat, draft.Subject, draft.Body, instruction)

	raw, err := r.llmClient.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("revising draft: %w", err)
	}

	subject, body, ok := parseSubjectBody(raw)
	if !ok {
		// Keep the current subject; treat the whole output as the body.
		subject = draft.Subject
		body = strings.TrimSpace(raw)
	}

	if !strings.Contains(body, r.signature) {
		body += "\n\nBest regards,\n" + r.signature
	}

	recipients := make([]string, len(draft.Recipients))
	copy(recipients, draft.Recipients)

	return &Draft{
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
	}, nil
}
