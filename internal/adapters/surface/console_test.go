package surface

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/adapters/history"
	"github.com/mikey/llm-followup/internal/core"
	"github.com/mikey/llm-followup/internal/events"
	"github.com/mikey/llm-followup/internal/ports"
)

type scriptedLLM struct{}

func (scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "determine if it requires a follow-up"):
		return "YES\npending reply", nil
	case strings.Contains(prompt, "Summarize the main topic"):
		return "Project handover.", nil
	case strings.Contains(prompt, "identify action items"):
		return "[]", nil
	case strings.Contains(prompt, "Summarize the following conversation"):
		return "Summary.", nil
	case strings.Contains(prompt, "Please revise the email"):
		return "Subject: Revised ping\n\nShorter.\n\nBest regards,\nJane", nil
	default:
		return "Subject: Checking in\n\nAny update?\n\nBest regards,\nJane", nil
	}
}

type fixedReader struct {
	messages []core.Message
}

func (f *fixedReader) Fetch(ctx context.Context, since, until time.Time) ([]core.Message, error) {
	return f.messages, nil
}

// recordingSender counts sends. When block is non-nil every send waits for
// it to close first.
type recordingSender struct {
	sends int
	block chan struct{}
}

func (r *recordingSender) Send(ctx context.Context, subject, body string, recipients []string) bool {
	if r.block != nil {
		<-r.block
	}
	r.sends++
	return true
}

func newTestConsole(t *testing.T, reader core.MailboxReader, sender core.MailboxSender) (*ConsoleSurface, *bytes.Buffer, ports.HistoryStore) {
	t.Helper()
	logger := zap.NewNop()
	queue := events.NewQueue()
	llm := scriptedLLM{}
	coordinator := core.NewPipelineCoordinator(
		reader,
		core.NewFollowupOracle(llm, logger),
		core.NewDraftComposer(llm, logger, "Jane"),
		nil,
		queue,
		logger,
	)
	dispatcher := core.NewDispatcher(sender, queue, logger)
	reviser := core.NewDraftReviser(llm, logger, "Jane")
	store := history.NewMemoryHistory(logger)

	console := NewConsoleSurface(coordinator, dispatcher, reviser, queue, store,
		"me@example.com", 1, "", logger)

	out := &bytes.Buffer{}
	console.out = out
	return console, out, store
}

// runAnalysis drives one analysis run to completion and applies its events.
func runAnalysis(t *testing.T, console *ConsoleSurface) {
	t.Helper()
	console.startAnalysis(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := console.coordinator.State()
		if state == core.StateComplete || state == core.StateFailed {
			console.applyEvents(context.Background(), console.queue.Drain())
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("analysis run did not finish")
}

func inboxMessages() []core.Message {
	return []core.Message{
		{
			ID:         "1",
			Subject:    "Handover",
			Sender:     "alice@example.com",
			SenderName: "Alice",
			ReceivedAt: time.Now().Add(-time.Hour),
			Content:    "Can you confirm the handover plan?",
		},
	}
}

func TestConsoleAnalyzeAndList(t *testing.T) {
	console, out, _ := newTestConsole(t, &fixedReader{messages: inboxMessages()}, &recordingSender{})

	runAnalysis(t, console)
	console.execute(context.Background(), "list")

	output := out.String()
	for _, fragment := range []string{
		"Starting email analysis...",
		"Analysis complete - 1 follow-ups needed",
		"Handover (1 messages) - Project handover.",
		"[drafted] - pending reply",
	} {
		if !strings.Contains(output, fragment) {
			t.Errorf("output missing %q:\n%s", fragment, output)
		}
	}
}

func TestConsoleShowAndRevise(t *testing.T) {
	console, out, _ := newTestConsole(t, &fixedReader{messages: inboxMessages()}, &recordingSender{})
	runAnalysis(t, console)

	console.execute(context.Background(), "show 1")
	if !strings.Contains(out.String(), "Subject: Checking in") {
		t.Errorf("show output missing draft subject:\n%s", out.String())
	}

	out.Reset()
	console.execute(context.Background(), "revise 1 make it shorter")
	if !strings.Contains(out.String(), "Subject: Revised ping") {
		t.Errorf("revise output missing revised subject:\n%s", out.String())
	}

	// The revision replaced the stored draft.
	draft := console.coordinator.Candidates()[0].Draft
	if draft.Subject != "Revised ping" {
		t.Errorf("stored draft subject = %q, want the revision", draft.Subject)
	}
	if len(draft.Recipients) != 1 || draft.Recipients[0] != "alice@example.com" {
		t.Errorf("stored draft recipients = %v, want unchanged", draft.Recipients)
	}
}

func TestConsoleReviseUsageErrors(t *testing.T) {
	console, out, _ := newTestConsole(t, &fixedReader{messages: inboxMessages()}, &recordingSender{})
	runAnalysis(t, console)

	out.Reset()
	console.execute(context.Background(), "revise 1")
	if !strings.Contains(out.String(), "Usage: revise N <instruction>") {
		t.Errorf("missing usage hint:\n%s", out.String())
	}

	out.Reset()
	console.execute(context.Background(), "revise 9 shorten")
	if !strings.Contains(out.String(), "No draft \"9\"") {
		t.Errorf("missing bad-index message:\n%s", out.String())
	}
}

func TestConsoleSend(t *testing.T) {
	sender := &recordingSender{}
	console, out, _ := newTestConsole(t, &fixedReader{messages: inboxMessages()}, sender)
	runAnalysis(t, console)

	console.execute(context.Background(), "send")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		console.applyEvents(context.Background(), console.queue.Drain())
		if strings.Contains(out.String(), "Email sending complete - 1 sent, 0 failed") {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !strings.Contains(out.String(), "Email sending complete - 1 sent, 0 failed") {
		t.Errorf("send summary not rendered:\n%s", out.String())
	}
	if sender.sends != 1 {
		t.Errorf("sends = %d, want 1", sender.sends)
	}
}

func TestConsoleReviseRefusedWhileSending(t *testing.T) {
	block := make(chan struct{})
	sender := &recordingSender{block: block}
	console, out, _ := newTestConsole(t, &fixedReader{messages: inboxMessages()}, sender)
	runAnalysis(t, console)

	console.execute(context.Background(), "send")

	out.Reset()
	console.execute(context.Background(), "revise 1 make it shorter")
	if !strings.Contains(out.String(), "Cannot revise draft") {
		t.Errorf("revise during send not refused:\n%s", out.String())
	}
	if got := console.coordinator.Candidates()[0].Draft.Subject; got != "Checking in" {
		t.Errorf("draft subject = %q, want the original while sending", got)
	}

	close(block)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		console.applyEvents(context.Background(), console.queue.Drain())
		if strings.Contains(out.String(), "Email sending complete - 1 sent, 0 failed") {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if sender.sends != 1 {
		t.Errorf("sends = %d, want 1", sender.sends)
	}
}

func TestConsoleSendWithoutDrafts(t *testing.T) {
	console, out, _ := newTestConsole(t, &fixedReader{messages: inboxMessages()}, &recordingSender{})

	console.execute(context.Background(), "send")
	if !strings.Contains(out.String(), "Cannot send follow-ups") {
		t.Errorf("missing send refusal:\n%s", out.String())
	}
}

func TestConsoleExport(t *testing.T) {
	console, out, _ := newTestConsole(t, &fixedReader{messages: inboxMessages()}, &recordingSender{})
	runAnalysis(t, console)

	path := filepath.Join(t.TempDir(), "activity.txt")
	console.execute(context.Background(), "export "+path)

	if !strings.Contains(out.String(), "log entries to "+path) {
		t.Errorf("missing export confirmation:\n%s", out.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if !strings.Contains(string(data), "Starting email analysis...") {
		t.Errorf("export missing activity lines:\n%s", data)
	}
}

func TestConsoleUnknownCommand(t *testing.T) {
	console, out, _ := newTestConsole(t, &fixedReader{}, &recordingSender{})

	if quit := console.execute(context.Background(), "frobnicate"); quit {
		t.Error("unknown command requested quit")
	}
	if !strings.Contains(out.String(), "Unknown command") {
		t.Errorf("missing unknown-command message:\n%s", out.String())
	}

	if quit := console.execute(context.Background(), "quit"); !quit {
		t.Error("quit did not request exit")
	}
}
