package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// stageLLM routes prompts to canned responses by recognizing which pipeline
// stage produced them.
func stageLLM(actions, summary, draft string) *fakeLLM {
	return &fakeLLM{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "identify action items"):
			return actions, nil
		case strings.Contains(prompt, "Summarize the following conversation"):
			return summary, nil
		case strings.Contains(prompt, "drafting a professional follow-up email"):
			return draft, nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}}
}

func testCandidate() *FollowupCandidate {
	conv := &Conversation{Subject: "Budget Q3"}
	conv.Append(Message{Sender: "alice@example.com", SenderName: "Alice", Content: "Can you send the numbers?"})
	conv.Append(Message{Sender: "me@example.com", SenderName: "Me", Content: "Will do by Friday."})
	return &FollowupCandidate{
		Conversation: conv,
		Rationale:    "pending deliverable",
		Participants: []string{"alice@example.com"},
	}
}

func TestComposeParsesSubjectAndBody(t *testing.T) {
	llm := stageLLM(
		`[{"action": "send numbers", "responsible_person": "Me", "deadline": "Friday"}]`,
		"Alice asked for the Q3 numbers; they are due Friday.",
		"Subject: Q3 numbers\n\nHi Alice,\n\nThe numbers are on their way.\n\nBest regards,\nJane",
	)
	composer := NewDraftComposer(llm, zap.NewNop(), "Jane")

	draft, err := composer.Compose(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if draft.Subject != "Q3 numbers" {
		t.Errorf("subject = %q, want %q", draft.Subject, "Q3 numbers")
	}
	if !strings.HasPrefix(draft.Body, "Hi Alice,") {
		t.Errorf("body does not start with greeting: %q", draft.Body)
	}
	if len(draft.Recipients) != 1 || draft.Recipients[0] != "alice@example.com" {
		t.Errorf("recipients = %v, want participants", draft.Recipients)
	}
}

func TestComposeFallbackSubjectWhenUnparseable(t *testing.T) {
	llm := stageLLM(
		`[]`,
		"Summary.",
		"Here is your follow-up email without the requested format.",
	)
	composer := NewDraftComposer(llm, zap.NewNop(), "Jane")

	draft, err := composer.Compose(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if draft.Subject != "Follow-up on: Budget Q3" {
		t.Errorf("subject = %q, want fallback subject", draft.Subject)
	}
	if !strings.HasPrefix(draft.Body, "Here is your follow-up email") {
		t.Errorf("body should keep the raw output, got %q", draft.Body)
	}
}

func TestComposeSignatureAppendedOnce(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing signature appended",
			body: "Subject: Ping\n\nJust checking in.",
		},
		{
			name: "existing signature kept",
			body: "Subject: Ping\n\nJust checking in.\n\nBest regards,\nJane",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			llm := stageLLM(`[]`, "Summary.", tt.body)
			composer := NewDraftComposer(llm, zap.NewNop(), "Jane")

			draft, err := composer.Compose(context.Background(), testCandidate())
			if err != nil {
				t.Fatalf("Compose() error = %v", err)
			}
			if got := strings.Count(draft.Body, "Jane"); got != 1 {
				t.Errorf("signature appears %d times, want 1:\n%s", got, draft.Body)
			}
			if !strings.HasSuffix(draft.Body, "Best regards,\nJane") {
				t.Errorf("body does not end with sign-off:\n%s", draft.Body)
			}
		})
	}
}

func TestComposeToleratesMalformedActionJSON(t *testing.T) {
	llm := stageLLM(
		"I could not find any action items in this conversation.",
		"Summary.",
		"Subject: Ping\n\nChecking in.",
	)
	composer := NewDraftComposer(llm, zap.NewNop(), "Jane")

	draft, err := composer.Compose(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if draft.Subject != "Ping" {
		t.Errorf("subject = %q, want %q", draft.Subject, "Ping")
	}
}

func TestComposeExtractsEmbeddedJSONArray(t *testing.T) {
	llm := stageLLM(
		"Here are the items:\n[{\"action\": \"review\", \"responsible_person\": \"Alice\", \"deadline\": null}]\nDone.",
		"Summary.",
		"Subject: Ping\n\nChecking in.",
	)
	composer := NewDraftComposer(llm, zap.NewNop(), "Jane")

	if _, err := composer.Compose(context.Background(), testCandidate()); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	// The drafting prompt should carry the extracted action item.
	var draftPrompt string
	for _, p := range llm.prompts {
		if strings.Contains(p, "drafting a professional follow-up email") {
			draftPrompt = p
		}
	}
	if !strings.Contains(draftPrompt, "- review (Responsible: Alice, Due: N/A)") {
		t.Errorf("drafting prompt missing formatted action item:\n%s", draftPrompt)
	}
}

func TestComposeSummaryFailureAborts(t *testing.T) {
	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Summarize the following conversation") {
			return "", errors.New("model unavailable")
		}
		return "[]", nil
	}}
	composer := NewDraftComposer(llm, zap.NewNop(), "Jane")

	if _, err := composer.Compose(context.Background(), testCandidate()); err == nil {
		t.Fatal("Compose() error = nil, want summarization failure")
	}
}

func TestSummarizeTopic(t *testing.T) {
	composer := NewDraftComposer(staticLLM("  Quarterly budget review.  "), zap.NewNop(), "Jane")
	if got := composer.SummarizeTopic(context.Background(), "text"); got != "Quarterly budget review." {
		t.Errorf("SummarizeTopic() = %q", got)
	}

	failing := &fakeLLM{respond: func(string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	composer = NewDraftComposer(failing, zap.NewNop(), "Jane")
	if got := composer.SummarizeTopic(context.Background(), "text"); got != "" {
		t.Errorf("SummarizeTopic() after failure = %q, want empty", got)
	}
}
