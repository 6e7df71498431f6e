// Package sloghooks logs rediskit hook events through stdlib slog, with
// optional sampling so a store outage cannot flood the log with one line
// per degraded operation.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/rediskit"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	RetryExhaustedEvery uint64
	DecodeMissEvery     uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	retryCtr  atomic.Uint64
	decodeCtr atomic.Uint64
}

var _ rediskit.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) RetryExhausted(op, key string, attempts int, elapsed time.Duration, err error) {
	if h.l == nil || !sample(h.opts.RetryExhaustedEvery, &h.retryCtr) {
		return
	}
	h.l.Warn("rediskit.retry_exhausted",
		"op", op,
		"key", h.redact(key),
		"attempts", attempts,
		"elapsed", elapsed,
		"err", err)
}

func (h *Hooks) DecodeMiss(key, method string, err error) {
	if h.l == nil || !sample(h.opts.DecodeMissEvery, &h.decodeCtr) {
		return
	}
	h.l.Warn("rediskit.decode_miss",
		"key", h.redact(key),
		"method", method,
		"err", err)
}

func (h *Hooks) QueueAnomaly(queue, taskID, reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("rediskit.queue_anomaly",
		"queue", queue,
		"task", taskID,
		"reason", reason)
}

func (h *Hooks) LimiterFailOpen(identifier string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("rediskit.limiter_fail_open",
		"identifier", h.redact(identifier),
		"err", err)
}
