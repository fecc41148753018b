package events

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestQueuePreservesOrder(t *testing.T) {
	queue := NewQueue()

	queue.Log(LevelInfo, "first")
	queue.Progress("second")
	queue.Complete("third")
	queue.Error("fourth")

	drained := queue.Drain()
	if len(drained) != 4 {
		t.Fatalf("drained %d events, want 4", len(drained))
	}

	wantTypes := []string{TypeLog, TypeProgress, TypeComplete, TypeError}
	wantTexts := []string{"first", "second", "third", "fourth"}
	for i, ev := range drained {
		if ev.Type != wantTypes[i] || ev.Text != wantTexts[i] {
			t.Errorf("event %d = (%s, %q), want (%s, %q)", i, ev.Type, ev.Text, wantTypes[i], wantTexts[i])
		}
	}
}

func TestQueueDrainEmpties(t *testing.T) {
	queue := NewQueue()

	if drained := queue.Drain(); drained != nil {
		t.Errorf("Drain() on empty queue = %v, want nil", drained)
	}

	queue.Log(LevelInfo, "only")
	if got := len(queue.Drain()); got != 1 {
		t.Fatalf("first drain returned %d events, want 1", got)
	}
	if drained := queue.Drain(); drained != nil {
		t.Errorf("second Drain() = %v, want nil", drained)
	}
	if queue.Len() != 0 {
		t.Errorf("Len() = %d after drain, want 0", queue.Len())
	}
}

func TestQueueStampsTimestamps(t *testing.T) {
	queue := NewQueue()

	before := time.Now()
	queue.Progress("working")
	after := time.Now()

	ev := queue.Drain()[0]
	if ev.Timestamp.Before(before) || ev.Timestamp.After(after) {
		t.Errorf("timestamp %v outside [%v, %v]", ev.Timestamp, before, after)
	}

	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	queue.Publish(Event{Type: TypeLog, Text: "stamped", Timestamp: fixed})
	if got := queue.Drain()[0].Timestamp; !got.Equal(fixed) {
		t.Errorf("pre-stamped timestamp = %v, want %v", got, fixed)
	}
}

func TestQueueConcurrentPublish(t *testing.T) {
	queue := NewQueue()

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				queue.Log(LevelInfo, fmt.Sprintf("p%d-%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	if got := queue.Len(); got != producers*perProducer {
		t.Errorf("Len() = %d, want %d", got, producers*perProducer)
	}
}
