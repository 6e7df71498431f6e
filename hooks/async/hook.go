// Package asynchook decouples hook sinks from hot paths: events are queued
// to a small worker pool and dropped when the queue is full, so a slow sink
// can never stall a cache or limiter call.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{RetryExhaustedEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
package asynchook

import (
	"sync"
	"time"

	"github.com/unkn0wn-root/rediskit"
)

type Hooks struct {
	inner rediskit.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ rediskit.Hooks = (*Hooks)(nil)

func New(inner rediskit.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) RetryExhausted(op, key string, attempts int, elapsed time.Duration, err error) {
	h.try(func() { h.inner.RetryExhausted(op, key, attempts, elapsed, err) })
}

func (h *Hooks) DecodeMiss(key, method string, err error) {
	h.try(func() { h.inner.DecodeMiss(key, method, err) })
}

func (h *Hooks) QueueAnomaly(queue, taskID, reason string) {
	h.try(func() { h.inner.QueueAnomaly(queue, taskID, reason) })
}

func (h *Hooks) LimiterFailOpen(identifier string, err error) {
	h.try(func() { h.inner.LimiterFailOpen(identifier, err) })
}
