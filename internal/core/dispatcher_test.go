package core

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/events"
)

// fakeSender reports success or failure per subject and records send order.
// When block is non-nil every send waits for it to close first.
type fakeSender struct {
	failSubjects map[string]bool
	sentSubjects []string
	block        chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, subject, body string, recipients []string) bool {
	if f.block != nil {
		<-f.block
	}
	f.sentSubjects = append(f.sentSubjects, subject)
	return !f.failSubjects[subject]
}

func draftedCandidate(subject string, recipients ...string) *FollowupCandidate {
	return &FollowupCandidate{
		Conversation: &Conversation{Subject: subject},
		Participants: recipients,
		Draft: &Draft{
			Subject:    subject,
			Body:       "body",
			Recipients: recipients,
		},
	}
}

func TestDispatchCountsOutcomes(t *testing.T) {
	sender := &fakeSender{failSubjects: map[string]bool{"Second": true}}
	queue := events.NewQueue()
	dispatcher := NewDispatcher(sender, queue, zap.NewNop())

	candidates := []*FollowupCandidate{
		draftedCandidate("First", "alice@example.com"),
		draftedCandidate("Second", "bob@example.com"),
		draftedCandidate("Third", "carol@example.com"),
	}

	sent, failed := dispatcher.Dispatch(context.Background(), candidates)

	if sent != 2 || failed != 1 {
		t.Errorf("Dispatch() = (%d, %d), want (2, 1)", sent, failed)
	}

	// A failed send never stops the iteration.
	want := []string{"First", "Second", "Third"}
	if len(sender.sentSubjects) != len(want) {
		t.Fatalf("sent %v, want %v", sender.sentSubjects, want)
	}
	for i := range want {
		if sender.sentSubjects[i] != want[i] {
			t.Errorf("send %d = %q, want %q", i, sender.sentSubjects[i], want[i])
		}
	}
}

func TestDispatchSkipsDraftlessCandidates(t *testing.T) {
	sender := &fakeSender{}
	queue := events.NewQueue()
	dispatcher := NewDispatcher(sender, queue, zap.NewNop())

	noDraft := &FollowupCandidate{
		Conversation: &Conversation{Subject: "Broken"},
		Participants: []string{"alice@example.com"},
	}
	candidates := []*FollowupCandidate{noDraft, draftedCandidate("Fine", "bob@example.com")}

	sent, failed := dispatcher.Dispatch(context.Background(), candidates)

	if sent != 1 || failed != 0 {
		t.Errorf("Dispatch() = (%d, %d), want (1, 0)", sent, failed)
	}
	if len(sender.sentSubjects) != 1 || sender.sentSubjects[0] != "Fine" {
		t.Errorf("sent %v, want only the drafted candidate", sender.sentSubjects)
	}
}

func TestDispatchReportsThroughQueue(t *testing.T) {
	sender := &fakeSender{failSubjects: map[string]bool{"Bad": true}}
	queue := events.NewQueue()
	dispatcher := NewDispatcher(sender, queue, zap.NewNop())

	dispatcher.Dispatch(context.Background(), []*FollowupCandidate{
		draftedCandidate("Good", "alice@example.com"),
		draftedCandidate("Bad", "bob@example.com"),
	})

	drained := queue.Drain()
	var logLevels []string
	for _, ev := range drained {
		if ev.Type == events.TypeLog {
			logLevels = append(logLevels, ev.Level)
		}
	}
	if len(logLevels) != 2 || logLevels[0] != events.LevelInfo || logLevels[1] != events.LevelError {
		t.Errorf("log levels = %v, want [INFO ERROR]", logLevels)
	}
}
