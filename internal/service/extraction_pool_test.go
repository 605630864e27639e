package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"persona-gateway/internal/domain"
)

type fakeExtractionRunner struct {
	mu      sync.Mutex
	ran     []string
	folded  int
	blockOn string
	release chan struct{}
	delay   time.Duration
	done    chan string
}

func (f *fakeExtractionRunner) ExtractAndStore(ctx context.Context, conversationID, userID, personaID uuid.UUID, userMessage, assistantMessage string) (int, error) {
	if f.blockOn != "" && userMessage == f.blockOn {
		<-f.release
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.ran = append(f.ran, userMessage)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- userMessage
	}
	return 1, nil
}

func (f *fakeExtractionRunner) FoldSummary(ctx context.Context, conversationID uuid.UUID, previousSummary string, evicted []domain.Message) (string, error) {
	f.mu.Lock()
	f.folded++
	f.mu.Unlock()
	return "folded", nil
}

func waitMarker(t *testing.T, done chan string) string {
	t.Helper()
	select {
	case marker := <-done:
		return marker
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task completion")
		return ""
	}
}

func TestPoolRunsEnqueuedTask(t *testing.T) {
	runner := &fakeExtractionRunner{done: make(chan string, 4)}
	pool := NewExtractionPool(2, 8, runner, nil)
	defer pool.Close()

	ok := pool.Enqueue(ExtractionTask{
		ConversationID:   uuid.New(),
		UserID:           uuid.New(),
		PersonaID:        uuid.New(),
		UserMessage:      "m1",
		AssistantMessage: "r1",
		Evicted:          []domain.Message{{Role: domain.RoleUser, Content: "old"}},
	})
	if !ok {
		t.Fatal("expected enqueue to succeed")
	}

	if marker := waitMarker(t, runner.done); marker != "m1" {
		t.Fatalf("expected m1, got %q", marker)
	}
	runner.mu.Lock()
	folded := runner.folded
	runner.mu.Unlock()
	if folded != 1 {
		t.Fatalf("expected summary fold before extraction, folds=%d", folded)
	}
}

func TestPoolFIFOWithinConversation(t *testing.T) {
	runner := &fakeExtractionRunner{done: make(chan string, 8), delay: 10 * time.Millisecond}
	pool := NewExtractionPool(4, 16, runner, nil)
	defer pool.Close()

	convID := uuid.New()
	for _, marker := range []string{"m1", "m2", "m3", "m4"} {
		pool.Enqueue(ExtractionTask{ConversationID: convID, UserMessage: marker})
	}
	for i := 0; i < 4; i++ {
		waitMarker(t, runner.done)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	want := []string{"m1", "m2", "m3", "m4"}
	for i, marker := range want {
		if runner.ran[i] != marker {
			t.Fatalf("expected FIFO order %v, got %v", want, runner.ran)
		}
	}
}

func TestPoolParallelAcrossConversations(t *testing.T) {
	runner := &fakeExtractionRunner{
		done:    make(chan string, 4),
		blockOn: "blocked",
		release: make(chan struct{}),
	}
	pool := NewExtractionPool(2, 8, runner, nil)
	defer pool.Close()

	pool.Enqueue(ExtractionTask{ConversationID: uuid.New(), UserMessage: "blocked"})
	pool.Enqueue(ExtractionTask{ConversationID: uuid.New(), UserMessage: "free"})

	if marker := waitMarker(t, runner.done); marker != "free" {
		t.Fatalf("expected other conversation to finish while first is blocked, got %q", marker)
	}

	close(runner.release)
	if marker := waitMarker(t, runner.done); marker != "blocked" {
		t.Fatalf("expected blocked task to finish after release, got %q", marker)
	}
}

func TestPoolWatermarkDropsLowestImportance(t *testing.T) {
	runner := &fakeExtractionRunner{
		done:    make(chan string, 8),
		blockOn: "running",
		release: make(chan struct{}),
	}
	pool := NewExtractionPool(1, 2, runner, nil)
	defer pool.Close()

	pool.Enqueue(ExtractionTask{ConversationID: uuid.New(), UserMessage: "running"})
	// dar tiempo a que el worker tome la primera tarea y libere la cola
	deadline := time.Now().Add(time.Second)
	for pool.Pending() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	pool.Enqueue(ExtractionTask{ConversationID: uuid.New(), UserMessage: "keep-high", Importance: 0.9})
	pool.Enqueue(ExtractionTask{ConversationID: uuid.New(), UserMessage: "drop-low", Importance: 0.2})
	if !pool.Enqueue(ExtractionTask{ConversationID: uuid.New(), UserMessage: "keep-late", Importance: 0.8}) {
		t.Fatal("expected enqueue over watermark to succeed by dropping")
	}
	if pending := pool.Pending(); pending != 2 {
		t.Fatalf("expected 2 pending after drop, got %d", pending)
	}

	close(runner.release)
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		seen[waitMarker(t, runner.done)] = true
	}
	if seen["drop-low"] {
		t.Fatal("expected low-importance task dropped")
	}
	if !seen["keep-high"] || !seen["keep-late"] || !seen["running"] {
		t.Fatalf("missing expected completions: %v", seen)
	}
}

func TestPoolCloseDrains(t *testing.T) {
	runner := &fakeExtractionRunner{done: make(chan string, 8), delay: 5 * time.Millisecond}
	pool := NewExtractionPool(2, 8, runner, nil)

	for _, marker := range []string{"a", "b", "c"} {
		pool.Enqueue(ExtractionTask{ConversationID: uuid.New(), UserMessage: marker})
	}
	pool.Close()

	runner.mu.Lock()
	count := len(runner.ran)
	runner.mu.Unlock()
	if count != 3 {
		t.Fatalf("expected close to drain all 3 tasks, ran %d", count)
	}

	if pool.Enqueue(ExtractionTask{ConversationID: uuid.New(), UserMessage: "late"}) {
		t.Fatal("expected enqueue after close to fail")
	}
}
