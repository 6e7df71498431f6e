package asynchook

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/rediskit"
)

type countingHooks struct {
	rediskit.NopHooks
	mu     sync.Mutex
	events int
}

func (c *countingHooks) RetryExhausted(op, key string, attempts int, elapsed time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events++
}

func (c *countingHooks) QueueAnomaly(queue, taskID, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events++
}

func (c *countingHooks) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

func TestForwardsAndDrainsOnClose(t *testing.T) {
	inner := &countingHooks{}
	h := New(inner, 2, 64)

	h.RetryExhausted("get", "k", 3, time.Millisecond, errors.New("down"))
	h.QueueAnomaly("jobs", "t1", "complete_unknown")
	h.Close()

	if got := inner.count(); got != 2 {
		t.Fatalf("events = %d, want 2", got)
	}
}

func TestDropsWhenQueueFull(t *testing.T) {
	blocked := make(chan struct{})
	inner := &countingHooks{}
	h := New(inner, 1, 1)

	// Occupy the single worker so the queue backs up.
	h.try(func() { <-blocked })
	for i := 0; i < 10; i++ {
		h.QueueAnomaly("jobs", "t", "x")
	}
	close(blocked)
	h.Close()

	if got := inner.count(); got > 1 {
		t.Fatalf("events = %d, want at most 1 (rest dropped)", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	h := New(&countingHooks{}, 1, 1)
	h.Close()
	h.Close()
}
