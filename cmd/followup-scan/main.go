package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-followup/internal/core"
	"github.com/mikey/llm-followup/internal/di"
	"github.com/mikey/llm-followup/internal/events"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Scan error: %v\n", err)
		os.Exit(1)
	}
}

// run performs a single synchronous scan and prints the results
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	coordinator *core.PipelineCoordinator,
	dispatcher *core.Dispatcher,
	queue *events.Queue,
	llmClient core.LLMClient,
) error {
	defer logger.Sync()

	ctx := context.Background()
	now := time.Now()
	lookbackDays := flags.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = 1
	}
	runCfg := core.RunConfig{
		Operator: flags.MailboxAddress,
		Since:    now.AddDate(0, 0, -lookbackDays),
		Until:    now,
	}

	if err := coordinator.StartAnalysis(ctx, runCfg); err != nil {
		return err
	}

	// The run executes in the background; follow it through the event queue
	// until it reaches a terminal state.
	failed := waitForRun(coordinator, queue)

	if closer, ok := llmClient.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close LLM client", zap.Error(err))
			}
		}()
	}

	if failed {
		return fmt.Errorf("analysis run failed")
	}

	printReport(coordinator)

	if flags.Send {
		candidates := coordinator.Candidates()
		if len(candidates) == 0 {
			fmt.Printf("Nothing to send.\n")
			return nil
		}
		sent, sendFailed := dispatcher.Dispatch(ctx, candidates)
		drainEvents(queue)
		fmt.Printf("\nSent %d follow-ups, %d failed\n", sent, sendFailed)
	}

	return nil
}

// waitForRun prints queued events until the coordinator reaches a terminal
// state. It reports whether the run failed.
func waitForRun(coordinator *core.PipelineCoordinator, queue *events.Queue) bool {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		drainEvents(queue)
		switch coordinator.State() {
		case core.StateComplete:
			drainEvents(queue)
			return false
		case core.StateFailed:
			drainEvents(queue)
			return true
		}
	}
	return false
}

func drainEvents(queue *events.Queue) {
	for _, ev := range queue.Drain() {
		switch ev.Type {
		case events.TypeLog:
			fmt.Printf("[%s] %s: %s\n", ev.Timestamp.Format("15:04:05"), ev.Level, ev.Text)
		case events.TypeProgress:
			fmt.Printf("... %s\n", ev.Text)
		case events.TypeComplete:
			fmt.Printf("%s\n", ev.Text)
		case events.TypeError:
			fmt.Printf("Error: %s\n", ev.Text)
		}
	}
}

// printReport renders the conversations and drafted follow-ups of the run.
func printReport(coordinator *core.PipelineCoordinator) {
	conversations := coordinator.Conversations()
	fmt.Printf("\n=== Conversations ===\n")
	for i, conv := range conversations {
		topic := conv.Topic
		if topic == "" {
			topic = "(no summary)"
		}
		fmt.Printf("%d. %s (%d messages) - %s\n", i+1, conv.Subject, len(conv.Messages), topic)
	}

	candidates := coordinator.Candidates()
	fmt.Printf("\n=== Follow-ups ===\n")
	if len(candidates) == 0 {
		fmt.Printf("No follow-ups needed.\n")
		return
	}
	for i, candidate := range candidates {
		fmt.Printf("\n%d. %s\n", i+1, candidate.Conversation.Subject)
		fmt.Printf("Rationale: %s\n", candidate.Rationale)
		fmt.Printf("Recipients: %s\n", strings.Join(candidate.Participants, ", "))
		if candidate.Draft == nil {
			fmt.Printf("No draft was generated.\n")
			continue
		}
		fmt.Printf("Subject: %s\n\n%s\n", candidate.Draft.Subject, candidate.Draft.Body)
	}
}
