// Package events provides the ordered event channel between background
// pipeline workers and the interactive surface. The queue is the only
// synchronization point: workers append, the surface drains on a fixed tick
// and applies events in enqueue order.
package events

import (
	"sync"
	"time"
)

// Event types emitted by pipeline workers.
const (
	TypeLog      = "log"
	TypeProgress = "progress"
	TypeComplete = "complete"
	TypeError    = "error"
)

// Log levels carried by TypeLog events.
const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// Event is a single typed notification from a background run.
type Event struct {
	Type      string
	Text      string
	Level     string
	Timestamp time.Time
}

// Queue is an ordered, thread-safe FIFO of events with a single producer per
// run and a single consumer.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue creates an empty event queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Publish appends an event, stamping it if the producer did not.
func (q *Queue) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// Log publishes a log event at the given level.
func (q *Queue) Log(level, text string) {
	q.Publish(Event{Type: TypeLog, Level: level, Text: text})
}

// Progress publishes a progress event.
func (q *Queue) Progress(text string) {
	q.Publish(Event{Type: TypeProgress, Text: text})
}

// Complete publishes a completion event.
func (q *Queue) Complete(text string) {
	q.Publish(Event{Type: TypeComplete, Text: text})
}

// Error publishes an error event.
func (q *Queue) Error(text string) {
	q.Publish(Event{Type: TypeError, Text: text})
}

// Drain removes and returns all queued events in enqueue order. It returns
// nil when the queue is empty.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}
	drained := q.events
	q.events = nil
	return drained
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
