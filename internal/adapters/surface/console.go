// Package surface implements the interactive console the operator drives the
// pipeline from. All pipeline output arrives through the event queue; the
// console drains it on a fixed tick so background runs never write to the
// terminal directly.
package surface

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/core"
	"github.com/mikey/llm-followup/internal/events"
	"github.com/mikey/llm-followup/internal/ports"
)

const drainInterval = 100 * time.Millisecond

// ConsoleSurface reads commands from an input stream and renders pipeline
// events and drafts to an output stream.
type ConsoleSurface struct {
	coordinator *core.PipelineCoordinator
	dispatcher  *core.Dispatcher
	reviser     *core.DraftReviser
	queue       *events.Queue
	history     ports.HistoryStore
	operator    string
	lookback    time.Duration
	exportFile  string
	logger      *zap.Logger

	in  io.Reader
	out io.Writer

	outMu sync.Mutex
}

// NewConsoleSurface creates a console surface bound to stdin and stdout.
func NewConsoleSurface(
	coordinator *core.PipelineCoordinator,
	dispatcher *core.Dispatcher,
	reviser *core.DraftReviser,
	queue *events.Queue,
	history ports.HistoryStore,
	operator string,
	lookbackDays int,
	exportFile string,
	logger *zap.Logger,
) *ConsoleSurface {
	if lookbackDays <= 0 {
		lookbackDays = 1
	}
	return &ConsoleSurface{
		coordinator: coordinator,
		dispatcher:  dispatcher,
		reviser:     reviser,
		queue:       queue,
		history:     history,
		operator:    operator,
		lookback:    time.Duration(lookbackDays) * 24 * time.Hour,
		exportFile:  exportFile,
		logger:      logger,
		in:          os.Stdin,
		out:         os.Stdout,
	}
}

// Run drives the console until the operator quits or ctx is done.
func (s *ConsoleSurface) Run(ctx context.Context) error {
	pumpCtx, stopPump := context.WithCancel(ctx)
	var pumpDone sync.WaitGroup
	pumpDone.Add(1)
	go func() {
		defer pumpDone.Done()
		s.pumpEvents(pumpCtx)
	}()
	defer func() {
		stopPump()
		pumpDone.Wait()
		s.applyEvents(context.Background(), s.queue.Drain())
	}()

	s.printf("Email follow-up assistant. Type 'help' for commands.\n")

	scanner := bufio.NewScanner(s.in)
	for {
		s.printf("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := s.execute(ctx, line); quit {
			return nil
		}
	}
}

// pumpEvents drains the queue on a fixed tick and renders what it finds.
func (s *ConsoleSurface) pumpEvents(ctx context.Context) {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.applyEvents(ctx, s.queue.Drain())
		}
	}
}

// applyEvents renders drained events and records log lines in the activity
// history.
func (s *ConsoleSurface) applyEvents(ctx context.Context, drained []events.Event) {
	for _, ev := range drained {
		switch ev.Type {
		case events.TypeLog:
			s.printf("[%s] %s: %s\n", ev.Timestamp.Format("15:04:05"), ev.Level, ev.Text)
			s.record(ctx, ev.Timestamp, ev.Level, ev.Text)
		case events.TypeProgress:
			s.printf("... %s\n", ev.Text)
		case events.TypeComplete:
			s.printf("%s\n", ev.Text)
			s.record(ctx, ev.Timestamp, events.LevelInfo, ev.Text)
			s.renderCandidates()
		case events.TypeError:
			s.printf("Error: %s\n", ev.Text)
			s.record(ctx, ev.Timestamp, events.LevelError, ev.Text)
		}
	}
}

// record appends one line to the activity history. History failures are
// logged but never surface to the operator.
func (s *ConsoleSurface) record(ctx context.Context, at time.Time, level, message string) {
	entry := ports.HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: at,
		Level:     level,
		Message:   message,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to record activity entry", zap.Error(err))
	}
}

// execute runs one command line. It returns true when the operator quits.
func (s *ConsoleSurface) execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	command := strings.ToLower(fields[0])

	switch command {
	case "help":
		s.printHelp()
	case "analyze":
		s.startAnalysis(ctx)
	case "list":
		s.renderConversations()
		s.renderCandidates()
	case "show":
		s.showCandidate(fields[1:])
	case "revise":
		s.reviseCandidate(ctx, line, fields[1:])
	case "send":
		s.startDispatch(ctx)
	case "export":
		s.exportHistory(ctx, fields[1:])
	case "quit", "exit":
		return true
	default:
		s.printf("Unknown command %q. Type 'help' for commands.\n", command)
	}
	return false
}

func (s *ConsoleSurface) printHelp() {
	s.printf("Commands:\n")
	s.printf("  analyze                  scan the mailbox and draft follow-ups\n")
	s.printf("  list                     show conversations and follow-up drafts\n")
	s.printf("  show N                   show draft N in full\n")
	s.printf("  revise N <instruction>   rewrite draft N per the instruction\n")
	s.printf("  send                     send all drafted follow-ups\n")
	s.printf("  export [file]            write the activity log to a file\n")
	s.printf("  quit                     exit\n")
}

func (s *ConsoleSurface) startAnalysis(ctx context.Context) {
	now := time.Now()
	cfg := core.RunConfig{
		Operator: s.operator,
		Since:    now.Add(-s.lookback),
		Until:    now,
	}
	if err := s.coordinator.StartAnalysis(ctx, cfg); err != nil {
		s.printf("Cannot start analysis: %v\n", err)
	}
}

func (s *ConsoleSurface) startDispatch(ctx context.Context) {
	if err := s.coordinator.DispatchFollowups(ctx, s.dispatcher); err != nil {
		s.printf("Cannot send follow-ups: %v\n", err)
	}
}

func (s *ConsoleSurface) renderConversations() {
	conversations := s.coordinator.Conversations()
	if len(conversations) == 0 {
		s.printf("No conversations. Run 'analyze' first.\n")
		return
	}
	s.printf("Conversations:\n")
	for i, conv := range conversations {
		topic := conv.Topic
		if topic == "" {
			topic = "(no summary)"
		}
		s.printf("  %d. %s (%d messages) - %s\n", i+1, conv.Subject, len(conv.Messages), topic)
	}
}

func (s *ConsoleSurface) renderCandidates() {
	candidates := s.coordinator.Candidates()
	if len(candidates) == 0 {
		s.printf("No follow-ups needed.\n")
		return
	}
	s.printf("Follow-up drafts:\n")
	for i, candidate := range candidates {
		status := "drafted"
		if candidate.Draft == nil {
			status = "draft failed"
		}
		s.printf("  %d. %s [%s] - %s\n",
			i+1, candidate.Conversation.Subject, status, candidate.Rationale)
	}
}

func (s *ConsoleSurface) showCandidate(args []string) {
	candidate, ok := s.pickCandidate(args)
	if !ok {
		return
	}
	s.printf("Conversation: %s\n", candidate.Conversation.Subject)
	s.printf("Rationale: %s\n", candidate.Rationale)
	s.printf("Recipients: %s\n", strings.Join(candidate.Participants, ", "))
	if candidate.Draft == nil {
		s.printf("No draft was generated for this conversation.\n")
		return
	}
	s.printf("\nSubject: %s\n\n%s\n", candidate.Draft.Subject, candidate.Draft.Body)
}

func (s *ConsoleSurface) reviseCandidate(ctx context.Context, line string, args []string) {
	// A send run reads the drafts while it iterates; refuse before spending
	// a model call on a revision that could not be applied.
	if s.coordinator.Dispatching() {
		s.printf("Cannot revise draft: %v\n", core.ErrDispatchActive)
		return
	}

	candidate, ok := s.pickCandidate(args)
	if !ok {
		return
	}

	// Everything after the index is the instruction, whitespace intact.
	instruction := ""
	if idx := strings.Index(line, args[0]); idx >= 0 {
		instruction = strings.TrimSpace(line[idx+len(args[0]):])
	}

	revised, err := s.reviser.Revise(ctx, candidate.Draft, instruction)
	switch {
	case errors.Is(err, core.ErrNoDraft):
		s.printf("No draft was generated for this conversation.\n")
		return
	case errors.Is(err, core.ErrEmptyInstruction):
		s.printf("Usage: revise N <instruction>\n")
		return
	case err != nil:
		s.printf("Revision failed: %v\n", err)
		return
	}

	if err := s.coordinator.ReplaceDraft(candidate, revised); err != nil {
		s.printf("Cannot revise draft: %v\n", err)
		return
	}
	s.printf("Draft revised.\n\nSubject: %s\n\n%s\n", revised.Subject, revised.Body)
}

// pickCandidate resolves a 1-based candidate index from command arguments.
func (s *ConsoleSurface) pickCandidate(args []string) (*core.FollowupCandidate, bool) {
	if len(args) < 1 {
		s.printf("A draft number is required. Use 'list' to see drafts.\n")
		return nil, false
	}
	candidates := s.coordinator.Candidates()
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(candidates) {
		s.printf("No draft %q. Use 'list' to see drafts.\n", args[0])
		return nil, false
	}
	return candidates[n-1], true
}

func (s *ConsoleSurface) exportHistory(ctx context.Context, args []string) {
	target := s.exportFile
	if len(args) == 1 {
		target = args[0]
	}
	if len(args) > 1 || target == "" {
		s.printf("Usage: export <file>\n")
		return
	}

	entries, err := s.history.Recent(ctx, 0)
	if err != nil {
		s.printf("Cannot read activity log: %v\n", err)
		return
	}

	file, err := os.Create(target)
	if err != nil {
		s.printf("Cannot write %s: %v\n", target, err)
		return
	}
	defer file.Close()

	for _, entry := range entries {
		fmt.Fprintf(file, "[%s] %s: %s\n",
			entry.Timestamp.Format(time.RFC3339), entry.Level, entry.Message)
	}
	s.printf("Wrote %d log entries to %s\n", len(entries), target)
}

func (s *ConsoleSurface) printf(format string, args ...interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
