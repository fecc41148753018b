package core

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// subjectBodyPattern captures the "Subject: <line>\n\n<body>" shape the
// drafting and revision prompts ask the model for. The body match is greedy
// across the rest of the text.
var subjectBodyPattern = regexp.MustCompile(`(?s)Subject: (.+?)\n\n(.+)`)

const (
	actionPromptFormat = `You are an AI assistant designed to identify action items and the person responsible for each from a conversation. For each action, also note any mentioned deadlines. Output your findings as a JSON array of objects, where each object has the keys "action", "responsible_person", and "deadline". If no responsible person is explicitly mentioned, use "unspecified". If no deadline is mentioned, use null.

Here is the conversation:
%s`

	summaryPromptFormat = `Summarize the following conversation concisely, highlighting the main points and overall outcome.

Conversation:
%s`

	topicPromptFormat = `Summarize the main topic of this conversation in one or two sentences.

Conversation:
%s`

	draftPromptFormat = `You are an AI assistant tasked with drafting a professional follow-up email based on the following conversation summary and action items.

Conversation Summary:
%s

Action Items:
%s

Key Participants: %s

Draft the follow-up email, including a suitable subject line. Start with "Subject: " for the subject line. Make the email professional and concise. End the email with "Best regards,
%s".`
)

// DraftComposer turns a follow-up candidate into a ready-to-review draft by
// running the extraction, summarization and drafting prompts in sequence.
type DraftComposer struct {
	llmClient LLMClient
	logger    *zap.Logger
	signature string
}

// NewDraftComposer creates a new draft composer. signature is the operator's
// sign-off name appended to every drafted body.
func NewDraftComposer(llmClient LLMClient, logger *zap.Logger, signature string) *DraftComposer {
	return &DraftComposer{
		llmClient: llmClient,
		logger:    logger,
		signature: signature,
	}
}

// Compose generates a follow-up draft for the candidate. Recipients always
// come from the candidate's participant set, never from model output. A model
// transport failure aborts this draft only; malformed model output never does.
func (c *DraftComposer) Compose(ctx context.Context, candidate *FollowupCandidate) (*Draft, error) {
	conversationText := candidate.Conversation.Text()

	actions := c.extractActions(ctx, conversationText)

	summary, err := c.llmClient.Complete(ctx, fmt.Sprintf(summaryPromptFormat, conversationText))
	if err != nil {
		return nil, fmt.Errorf("summarizing conversation: %w", err)
	}

	prompt := fmt.Sprintf(draftPromptFormat,
		strings.TrimSpace(summary),
		formatActions(actions),
		strings.Join(candidate.Participants, ", "),
		c.signature)

	raw, err := c.llmClient.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("drafting follow-up email: %w", err)
	}

	subject, body, ok := parseSubjectBody(raw)
	if !ok {
		// Best-effort parse: keep the whole output as the body rather
		// than discarding the draft.
		subject = "Follow-up on: " + candidate.Conversation.Subject
		body = strings.TrimSpace(raw)
	}

	return &Draft{
		Subject:    subject,
		Body:       c.ensureSignature(body),
		Recipients: candidate.Participants,
	}, nil
}

// SummarizeTopic produces the one-line topic shown alongside classification
// results. Failures degrade to an empty topic.
func (c *DraftComposer) SummarizeTopic(ctx context.Context, conversationText string) string {
	topic, err := c.llmClient.Complete(ctx, fmt.Sprintf(topicPromptFormat, conversationText))
	if err != nil {
		c.logger.Warn("Topic summarization failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(topic)
}

// extractActions runs the extraction prompt and parses its JSON array.
// Malformed JSON yields an empty action list.
func (c *DraftComposer) extractActions(ctx context.Context, conversationText string) []ActionItem {
	raw, err := c.llmClient.Complete(ctx, fmt.Sprintf(actionPromptFormat, conversationText))
	if err != nil {
		c.logger.Warn("Action extraction call failed", zap.Error(err))
		return nil
	}

	var actions []ActionItem
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &actions); err != nil {
		c.logger.Warn("Failed to parse action items, continuing without them",
			zap.Error(err))
		return nil
	}
	return actions
}

// ensureSignature appends the operator's sign-off block when the body does
// not already mention the signature. Applying it twice is a no-op.
func (c *DraftComposer) ensureSignature(body string) string {
	if strings.Contains(body, c.signature) {
		return body
	}
	return body + "\n\nBest regards,\n" + c.signature
}

// parseSubjectBody splits model output into a subject line and a body.
func parseSubjectBody(raw string) (subject, body string, ok bool) {
	m := subjectBodyPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// formatActions renders action items as the bullet list the drafting prompt
// expects.
func formatActions(actions []ActionItem) string {
	lines := make([]string, 0, len(actions))
	for _, item := range actions {
		due := "N/A"
		if item.Deadline != nil && *item.Deadline != "" {
			due = *item.Deadline
		}
		lines = append(lines, fmt.Sprintf("- %s (Responsible: %s, Due: %s)",
			item.Action, item.ResponsiblePerson, due))
	}
	return strings.Join(lines, "\n")
}

// extractJSONArray trims surrounding prose from a model response that should
// contain a JSON array, mirroring the brace-scanning fallback used for JSON
// object responses.
func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
