package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// unableRationale is the rationale reported when the model call fails during
// classification. A failed classification never fails the run and never
// counts as "needs follow-up".
const unableRationale = "unable to analyze"

// FollowupOracle decides whether a conversation still needs a human
// follow-up. The model is an opaque judge; the oracle owns only the prompt
// contract and the parsing of the verdict.
type FollowupOracle struct {
	llmClient    LLMClient
	logger       *zap.Logger
	promptFormat string
}

// NewFollowupOracle creates a new follow-up oracle
func NewFollowupOracle(llmClient LLMClient, logger *zap.Logger) *FollowupOracle {
	return &FollowupOracle{
		llmClient: llmClient,
		logger:    logger,
		promptFormat: `Analyze the following email conversation and determine if it requires a follow-up email.

A follow-up is needed if:
- There are action items or commitments mentioned that need tracking
- Questions were asked but not fully answered
- Decisions were made that require confirmation or next steps
- Meeting outcomes or project status updates are needed
- There are pending deliverables or deadlines

Respond with only "YES" or "NO" followed by a brief explanation.

Conversation:
%s`,
	}
}

// Classify asks the model whether the conversation needs a follow-up and
// returns the verdict with a rationale. The verdict is true iff the first
// token of the response is "YES" (any case). The rationale is the text after
// the first line break, or the whole response when there is none.
func (o *FollowupOracle) Classify(ctx context.Context, conversationText string) (bool, string) {
	prompt := fmt.Sprintf(o.promptFormat, conversationText)

	response, err := o.llmClient.Complete(ctx, prompt)
	if err != nil {
		o.logger.Warn("Classification call failed, treating as no follow-up",
			zap.Error(err))
		return false, unableRationale
	}

	response = strings.TrimSpace(response)
	needsFollowup := firstToken(response) == "YES"

	rationale := response
	if idx := strings.Index(response, "\n"); idx >= 0 {
		rationale = strings.TrimSpace(response[idx+1:])
	}

	return needsFollowup, rationale
}

// firstToken returns the first whitespace-separated token of s, upper-cased
// and stripped of trailing punctuation.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimRight(fields[0], ".,:;!"))
}
