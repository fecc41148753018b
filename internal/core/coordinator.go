package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/events"
)

// RunState is the coordinator's position in the analysis pipeline.
type RunState int

const (
	StateIdle RunState = iota
	StateFetching
	StateGrouping
	StateClassifying
	StateDrafting
	StateComplete
	StateFailed
)

// String returns the lower-case state name used in logs and progress lines.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateGrouping:
		return "grouping"
	case StateClassifying:
		return "classifying"
	case StateDrafting:
		return "drafting"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrRunActive is returned when a run is requested while one is in flight.
	ErrRunActive = errors.New("an analysis run is already active")
	// ErrDispatchActive is returned when a send run overlaps another.
	ErrDispatchActive = errors.New("a send run is already active")
	// ErrNoCandidates is returned when dispatch is requested with nothing to send.
	ErrNoCandidates = errors.New("no follow-up drafts to send")
)

// SenderFilter excludes messages from the scan by sender address.
type SenderFilter interface {
	IsIgnored(sender string) bool
}

// RunConfig carries the per-run parameters. Each run gets its own value; the
// coordinator holds no mailbox or window configuration between runs.
type RunConfig struct {
	Operator string
	Since    time.Time
	Until    time.Time
}

// PipelineCoordinator drives one analysis run at a time through
// fetch → group → classify → draft, off the interactive control flow.
// All results reach the caller through the event queue; the working set may
// be read only after a complete event has been observed.
type PipelineCoordinator struct {
	reader   MailboxReader
	oracle   *FollowupOracle
	composer *DraftComposer
	filter   SenderFilter
	queue    *events.Queue
	logger   *zap.Logger

	mu            sync.Mutex
	state         RunState
	dispatching   bool
	runID         string
	conversations map[string]*Conversation
	order         []string
	candidates    []*FollowupCandidate
}

// NewPipelineCoordinator creates a new pipeline coordinator
func NewPipelineCoordinator(
	reader MailboxReader,
	oracle *FollowupOracle,
	composer *DraftComposer,
	filter SenderFilter,
	queue *events.Queue,
	logger *zap.Logger,
) *PipelineCoordinator {
	return &PipelineCoordinator{
		reader:   reader,
		oracle:   oracle,
		composer: composer,
		filter:   filter,
		queue:    queue,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the coordinator's current pipeline state.
func (p *PipelineCoordinator) State() RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// RunID returns the identifier of the most recent run.
func (p *PipelineCoordinator) RunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runID
}

// Candidates returns the follow-up candidates of the last completed run.
// Valid only once a complete event has been observed.
func (p *PipelineCoordinator) Candidates() []*FollowupCandidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.candidates
}

// Dispatching reports whether a send run is currently in flight.
func (p *PipelineCoordinator) Dispatching() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatching
}

// ReplaceDraft installs a revised draft on a candidate. Drafts may not
// change while an analysis or send run owns the working set, so the write
// is gated the same way run starts are.
func (p *PipelineCoordinator) ReplaceDraft(candidate *FollowupCandidate, draft *Draft) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.inProgress() {
		return ErrRunActive
	}
	if p.dispatching {
		return ErrDispatchActive
	}
	candidate.Draft = draft
	return nil
}

// Conversations returns the grouped conversations of the last completed run
// in first-sight order.
func (p *PipelineCoordinator) Conversations() []*Conversation {
	p.mu.Lock()
	defer p.mu.Unlock()

	ordered := make([]*Conversation, 0, len(p.order))
	for _, key := range p.order {
		ordered = append(ordered, p.conversations[key])
	}
	return ordered
}

// inProgress reports whether an analysis run currently owns the working set.
func (s RunState) inProgress() bool {
	return s == StateFetching || s == StateGrouping ||
		s == StateClassifying || s == StateDrafting
}

// StartAnalysis begins a new analysis run on a background goroutine. At most
// one run may be active; a second request is rejected, not queued.
func (p *PipelineCoordinator) StartAnalysis(ctx context.Context, cfg RunConfig) error {
	p.mu.Lock()
	if p.state.inProgress() {
		p.mu.Unlock()
		return ErrRunActive
	}
	p.state = StateFetching
	p.runID = uuid.NewString()
	p.conversations = nil
	p.order = nil
	p.candidates = nil
	runID := p.runID
	p.mu.Unlock()

	p.logger.Info("Starting analysis run",
		zap.String("run_id", runID),
		zap.Time("since", cfg.Since),
		zap.Time("until", cfg.Until))

	go p.run(ctx, cfg)
	return nil
}

// run executes the whole pipeline. It communicates only through the event
// queue and the coordinator's own (mutex-guarded) working set.
func (p *PipelineCoordinator) run(ctx context.Context, cfg RunConfig) {
	p.queue.Log(events.LevelInfo, "Starting email analysis...")
	p.queue.Progress("Connecting to email server...")

	messages, err := p.reader.Fetch(ctx, cfg.Since, cfg.Until)
	if err != nil {
		p.logger.Error("Mailbox fetch failed", zap.Error(err))
		p.fail("no messages found or connection failed")
		return
	}

	messages = p.dropIgnored(messages)
	if len(messages) == 0 {
		// An empty window is a run failure, not a silent no-op.
		p.fail("no messages found or connection failed")
		return
	}

	p.setState(StateGrouping)
	conversations, order := GroupMessages(messages)
	p.queue.Log(events.LevelInfo, fmt.Sprintf("Found %d conversations", len(order)))

	p.setState(StateClassifying)
	p.queue.Progress("Analyzing conversations...")

	var candidates []*FollowupCandidate
	for i, key := range order {
		conv := conversations[key]
		p.queue.Progress(fmt.Sprintf("Analyzing conversation %d/%d: %s...",
			i+1, len(order), truncate(conv.Subject, 50)))

		text := conv.Text()
		conv.Topic = p.composer.SummarizeTopic(ctx, text)

		needsFollowup, rationale := p.oracle.Classify(ctx, text)

		verdict := "NOT NEEDED"
		if needsFollowup {
			verdict = "NEEDED"
		}
		p.queue.Log(events.LevelInfo, fmt.Sprintf("Conversation %q: Follow-up %s - %s",
			conv.Subject, verdict, rationale))

		participants := conv.Participants(cfg.Operator)
		// A conversation with no one to follow up with is never a
		// candidate, whatever the verdict says.
		if needsFollowup && len(participants) > 0 {
			candidates = append(candidates, &FollowupCandidate{
				Conversation: conv,
				Rationale:    rationale,
				Participants: participants,
			})
		}
	}

	p.setState(StateDrafting)
	for i, candidate := range candidates {
		p.queue.Progress(fmt.Sprintf("Drafting follow-up %d/%d: %s...",
			i+1, len(candidates), truncate(candidate.Conversation.Subject, 50)))

		draft, err := p.composer.Compose(ctx, candidate)
		if err != nil {
			// The candidate stays on the list without a draft.
			p.queue.Log(events.LevelError, fmt.Sprintf(
				"Failed to generate email for %q: %v", candidate.Conversation.Subject, err))
			continue
		}
		candidate.Draft = draft
	}

	// The working set, the state flip and the completion event must become
	// visible together: a consumer that drains the complete event may read
	// the working set, and one that observes the state must find the event
	// already queued.
	p.mu.Lock()
	p.conversations = conversations
	p.order = order
	p.candidates = candidates
	p.state = StateComplete
	p.queue.Complete(fmt.Sprintf("Analysis complete - %d follow-ups needed", len(candidates)))
	p.mu.Unlock()
}

// DispatchFollowups sends the completed run's drafts on a background
// goroutine through the given dispatcher. It refuses to overlap an active
// analysis run or another send run.
func (p *PipelineCoordinator) DispatchFollowups(ctx context.Context, dispatcher *Dispatcher) error {
	p.mu.Lock()
	if p.state.inProgress() {
		p.mu.Unlock()
		return ErrRunActive
	}
	if p.dispatching {
		p.mu.Unlock()
		return ErrDispatchActive
	}
	candidates := p.candidates
	if len(candidates) == 0 {
		p.mu.Unlock()
		return ErrNoCandidates
	}
	p.dispatching = true
	p.mu.Unlock()

	go func() {
		sent, failed := dispatcher.Dispatch(ctx, candidates)

		p.mu.Lock()
		p.dispatching = false
		p.mu.Unlock()

		p.queue.Progress(fmt.Sprintf("Email sending complete - %d sent, %d failed", sent, failed))
		p.queue.Log(events.LevelInfo, fmt.Sprintf(
			"Email sending completed: %d successful, %d failed", sent, failed))
	}()
	return nil
}

// dropIgnored filters out messages whose sender domain is on the ignore list.
func (p *PipelineCoordinator) dropIgnored(messages []Message) []Message {
	if p.filter == nil {
		return messages
	}
	kept := messages[:0]
	for _, msg := range messages {
		if p.filter.IsIgnored(msg.Sender) {
			p.logger.Debug("Dropping message from ignored sender",
				zap.String("sender", msg.Sender))
			continue
		}
		kept = append(kept, msg)
	}
	return kept
}

// fail moves the run to the Failed state and reports the reason. The event
// is queued inside the same critical section so an observer of the state
// never misses it.
func (p *PipelineCoordinator) fail(reason string) {
	p.mu.Lock()
	p.state = StateFailed
	p.queue.Error(reason)
	p.mu.Unlock()
}

func (p *PipelineCoordinator) setState(next RunState) {
	p.mu.Lock()
	p.state = next
	p.mu.Unlock()
}

// truncate shortens s to at most n bytes for progress lines, backing up to
// a rune boundary so the result stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
