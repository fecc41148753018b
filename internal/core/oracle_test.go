package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// fakeLLM answers prompts through a test-supplied function and records every
// prompt it sees.
type fakeLLM struct {
	respond func(prompt string) (string, error)
	prompts []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.respond(prompt)
}

func staticLLM(response string) *fakeLLM {
	return &fakeLLM{respond: func(string) (string, error) {
		return response, nil
	}}
}

func TestOracleClassify(t *testing.T) {
	tests := []struct {
		name          string
		response      string
		wantFollowup  bool
		wantRationale string
	}{
		{
			name:          "yes with rationale on next line",
			response:      "YES\nAwaiting client signature",
			wantFollowup:  true,
			wantRationale: "Awaiting client signature",
		},
		{
			name:          "no with rationale on next line",
			response:      "NO\nThe thread is closed",
			wantFollowup:  false,
			wantRationale: "The thread is closed",
		},
		{
			name:          "single line verdict keeps whole text as rationale",
			response:      "YES, the client asked a question",
			wantFollowup:  true,
			wantRationale: "YES, the client asked a question",
		},
		{
			name:          "lower case verdict",
			response:      "yes\nneed confirmation",
			wantFollowup:  true,
			wantRationale: "need confirmation",
		},
		{
			name:          "trailing punctuation on verdict",
			response:      "YES.\nDeadline pending",
			wantFollowup:  true,
			wantRationale: "Deadline pending",
		},
		{
			name:          "verdict not in first token",
			response:      "Definitely YES\nSomething pending",
			wantFollowup:  false,
			wantRationale: "Something pending",
		},
		{
			name:          "surrounding whitespace",
			response:      "  NO  ",
			wantFollowup:  false,
			wantRationale: "NO",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			oracle := NewFollowupOracle(staticLLM(tt.response), zap.NewNop())

			followup, rationale := oracle.Classify(context.Background(), "Alice: ping\n")
			if followup != tt.wantFollowup {
				t.Errorf("followup = %v, want %v", followup, tt.wantFollowup)
			}
			if rationale != tt.wantRationale {
				t.Errorf("rationale = %q, want %q", rationale, tt.wantRationale)
			}
		})
	}
}

func TestOracleClassifyModelFailure(t *testing.T) {
	llm := &fakeLLM{respond: func(string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	oracle := NewFollowupOracle(llm, zap.NewNop())

	followup, rationale := oracle.Classify(context.Background(), "Alice: ping\n")
	if followup {
		t.Error("followup = true after model failure, want false")
	}
	if rationale != "unable to analyze" {
		t.Errorf("rationale = %q, want %q", rationale, "unable to analyze")
	}
}

func TestOracleClassifyIncludesConversation(t *testing.T) {
	llm := staticLLM("NO\nnothing pending")
	oracle := NewFollowupOracle(llm, zap.NewNop())

	oracle.Classify(context.Background(), "Alice: see attachment\n")

	if len(llm.prompts) != 1 {
		t.Fatalf("got %d prompts, want 1", len(llm.prompts))
	}
	if got := llm.prompts[0]; !strings.Contains(got, "Alice: see attachment") {
		t.Errorf("prompt does not include the conversation text:\n%s", got)
	}
}
