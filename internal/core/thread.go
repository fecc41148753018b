package core

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// PlaceholderSubject keys conversations whose messages carry no usable
// subject line.
const PlaceholderSubject = "No Subject"

// replyPrefixPattern matches one or more leading reply/forward markers.
var replyPrefixPattern = regexp.MustCompile(`(?i)^((re|fwd):\s*)+`)

var subjectFolder = cases.Fold()

// NormalizeSubject strips leading "Re:"/"Fwd:" markers (repeated, any case)
// and surrounding whitespace. An empty result becomes PlaceholderSubject.
// Normalization is idempotent.
func NormalizeSubject(subject string) string {
	normalized := strings.TrimSpace(replyPrefixPattern.ReplaceAllString(subject, ""))
	if normalized == "" {
		return PlaceholderSubject
	}
	return normalized
}

// subjectKey case-folds a normalized subject so that "Budget" and "BUDGET"
// land in the same conversation.
func subjectKey(normalized string) string {
	return subjectFolder.String(normalized)
}

// GroupMessages partitions a chronologically ordered message list into
// conversations keyed by folded normalized subject. Order within each
// conversation follows the input order; groupOrder records first-sight order
// of the keys so callers can iterate deterministically.
func GroupMessages(messages []Message) (map[string]*Conversation, []string) {
	conversations := make(map[string]*Conversation)
	var groupOrder []string

	for _, msg := range messages {
		normalized := NormalizeSubject(msg.Subject)
		key := subjectKey(normalized)

		conv, ok := conversations[key]
		if !ok {
			conv = &Conversation{Subject: normalized}
			conversations[key] = conv
			groupOrder = append(groupOrder, key)
		}
		conv.Append(msg)
	}

	return conversations, groupOrder
}
