package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newCapture() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestEventsAreLogged(t *testing.T) {
	l, buf := newCapture()
	h := New(l, Options{})

	h.RetryExhausted("get", "prod:api:p:k", 3, time.Millisecond, errors.New("down"))
	h.DecodeMiss("prod:api:p:k", "structured", errors.New("bad json"))
	h.QueueAnomaly("jobs", "t1", "complete_unknown")
	h.LimiterFailOpen("client-1", errors.New("down"))

	out := buf.String()
	for _, want := range []string{
		"rediskit.retry_exhausted",
		"rediskit.decode_miss",
		"rediskit.queue_anomaly",
		"rediskit.limiter_fail_open",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestKeysAreRedacted(t *testing.T) {
	l, buf := newCapture()
	h := New(l, Options{})

	h.DecodeMiss("prod:api:session:user-secret", "structured", errors.New("x"))
	if strings.Contains(buf.String(), "user-secret") {
		t.Fatal("raw key leaked into the log")
	}
}

func TestCustomRedactor(t *testing.T) {
	l, buf := newCapture()
	h := New(l, Options{Redact: func(string) string { return "<key>" }})

	h.DecodeMiss("whatever", "simple", errors.New("x"))
	if !strings.Contains(buf.String(), "<key>") {
		t.Fatalf("custom redactor not applied:\n%s", buf.String())
	}
}

func TestSampling(t *testing.T) {
	l, buf := newCapture()
	h := New(l, Options{RetryExhaustedEvery: 5})

	for i := 0; i < 20; i++ {
		h.RetryExhausted("get", "k", 3, time.Millisecond, errors.New("down"))
	}
	if got := strings.Count(buf.String(), "rediskit.retry_exhausted"); got != 4 {
		t.Fatalf("sampled lines = %d, want 4", got)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.RetryExhausted("get", "k", 1, 0, nil)
	h.QueueAnomaly("q", "t", "r")
}
