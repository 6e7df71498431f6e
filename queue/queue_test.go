package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/rediskit"
	"github.com/unkn0wn-root/rediskit/store"
)

type anomalyRecorder struct {
	rediskit.NopHooks
	mu      sync.Mutex
	reasons []string
}

func (r *anomalyRecorder) QueueAnomaly(queue, taskID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func newTestQueue(t *testing.T, cfg Config) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	st, err := store.Connect(context.Background(), store.Config{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg.Store = st
	if cfg.Name == "" {
		cfg.Name = "jobs"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	q, err := New(cfg)
	require.NoError(t, err)
	return q, mr
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err, "no store")

	mr := miniredis.RunT(t)
	st, err := store.Connect(context.Background(), store.Config{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	defer st.Close()

	_, err = New(Config{Store: st})
	assert.Error(t, err, "no name")
}

func TestPriorityOrdering(t *testing.T) {
	q, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	ids := map[float64]string{}
	for _, prio := range []float64{1, 5, 3} {
		id, ok := q.Enqueue(ctx, map[string]any{"p": prio}, prio)
		require.True(t, ok)
		ids[prio] = id
	}

	for _, want := range []float64{5, 3, 1} {
		task, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, want, task.Priority)
		assert.Equal(t, ids[want], task.ID)
		assert.False(t, task.CreatedAt.IsZero())
	}
}

func TestDequeueTracksProcessing(t *testing.T) {
	q, mr := newTestQueue(t, Config{})
	ctx := context.Background()

	id, ok := q.Enqueue(ctx, "work", 1)
	require.True(t, ok)

	task, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, id, task.ID)

	// Exactly one place: gone from pending, present in processing.
	pending, err := mr.ZMembers("queue:jobs")
	if err != nil {
		pending = nil // miniredis errors on a missing zset
	}
	assert.Empty(t, pending)
	assert.NotEmpty(t, mr.HGet("queue:jobs:processing", id))
}

func TestComplete(t *testing.T) {
	hooks := &anomalyRecorder{}
	q, mr := newTestQueue(t, Config{Hooks: hooks})
	ctx := context.Background()

	id, ok := q.Enqueue(ctx, "work", 1)
	require.True(t, ok)
	_, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	assert.True(t, q.Complete(ctx, id))
	assert.Empty(t, mr.HGet("queue:jobs:processing", id))

	// Double-complete is a logged no-op.
	assert.False(t, q.Complete(ctx, id))
	assert.Contains(t, hooks.reasons, "complete_unknown")
}

func TestFail(t *testing.T) {
	hooks := &anomalyRecorder{}
	q, mr := newTestQueue(t, Config{Hooks: hooks})
	ctx := context.Background()

	id, ok := q.Enqueue(ctx, "work", 1)
	require.True(t, ok)
	_, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	require.True(t, q.Fail(ctx, id, "downstream timeout"))
	assert.Empty(t, mr.HGet("queue:jobs:processing", id))
	assert.NotEmpty(t, mr.HGet("queue:jobs:failed", id))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 0, Processing: 0, Failed: 1}, stats)

	// Failing an unknown id creates no record.
	assert.False(t, q.Fail(ctx, "no-such-task", "oops"))
	assert.Contains(t, hooks.reasons, "fail_unknown")
	assert.Empty(t, mr.HGet("queue:jobs:failed", "no-such-task"))
}

func TestFailRecordAnnotations(t *testing.T) {
	q, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	id, ok := q.Enqueue(ctx, map[string]any{"job": "resize"}, 2)
	require.True(t, ok)
	original, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, q.Fail(ctx, id, "boom"))

	record, err := q.rdb.HGet(ctx, q.failedKey, id).Result()
	require.NoError(t, err)

	var failed Task
	require.NoError(t, json.Unmarshal([]byte(record), &failed))
	assert.Equal(t, original.ID, failed.ID)
	assert.Equal(t, original.Payload, failed.Payload)
	assert.Equal(t, "boom", failed.Error)
	require.NotNil(t, failed.FailedAt)
	assert.WithinDuration(t, time.Now().UTC(), *failed.FailedAt, time.Minute)
}

func TestDequeueTimeout(t *testing.T) {
	q, _ := newTestQueue(t, Config{})

	start := time.Now()
	task, err := q.Dequeue(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDequeueContextCancel(t *testing.T) {
	q, _ := newTestQueue(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	// timeout 0 = wait until ctx is done
	_, err := q.Dequeue(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDequeueWaitsForLateEnqueue(t *testing.T) {
	q, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	go func() {
		time.Sleep(30 * time.Millisecond)
		q.Enqueue(ctx, "late", 1)
	}()

	task, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
}

func TestEnqueueUnserializable(t *testing.T) {
	q, _ := newTestQueue(t, Config{})

	_, ok := q.Enqueue(context.Background(), make(chan int), 1)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	q, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	for i := 0; i < 3; i++ {
		_, ok := q.Enqueue(ctx, i, float64(i))
		require.True(t, ok)
	}
	task, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, q.Fail(ctx, task.ID, "x"))
	task, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	_ = task

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 1, Processing: 1, Failed: 1}, stats)
}

func TestQueueIsolationByName(t *testing.T) {
	mr := miniredis.RunT(t)
	st, err := store.Connect(context.Background(), store.Config{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	defer st.Close()

	a, err := New(Config{Store: st, Name: "a", PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	b, err := New(Config{Store: st, Name: "b", PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	_, ok := a.Enqueue(ctx, "for-a", 1)
	require.True(t, ok)

	task, err := b.Dequeue(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, task, "queue b must not see queue a's tasks")
}
