package rediskit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/rediskit/codec"
	"github.com/unkn0wn-root/rediskit/internal/keys"
	"github.com/unkn0wn-root/rediskit/internal/retry"
	"github.com/unkn0wn-root/rediskit/store"
)

// Options tune the cache Manager. Store, Environment and Service are
// required; everything else has sensible defaults.
type Options struct {
	// Required
	Store       *store.Store
	Environment string // deployment environment, e.g. "prod", "staging"
	Service     string // logical service name sharing the store

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	DefaultTTL           time.Duration // expiry when the caller omits one; 0 => 1h
	CompressionThreshold int           // bytes; 0 => codec.DefaultCompressionThreshold
	MaxRetries           int           // attempts per store round-trip; 0 => 3
	RetryBaseDelay       time.Duration // backoff base; 0 => 100ms
	RetryMaxDelay        time.Duration // backoff cap; 0 => 5s

	// StructuredMethod selects the container encoding (codec.MethodStructured,
	// codec.MethodMsgpack, codec.MethodCBOR). "" => JSON.
	StructuredMethod string

	// MaxDecodeBytes rejects oversized stored payloads at decode. 0 => off.
	MaxDecodeBytes int
}

// New builds a Manager. Construction is explicit: callers own the Store
// lifecycle and pass the Manager by reference to whatever needs it - there
// is no package-level singleton.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("rediskit: store is required")
	}
	if opts.Environment == "" || opts.Service == "" {
		return nil, errors.New("rediskit: environment and service are required")
	}

	cd, err := codec.New(codec.Config{
		StructuredMethod: opts.StructuredMethod,
		MaxDecode:        opts.MaxDecodeBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("rediskit: %w", err)
	}

	m := &Manager{
		rdb:   opts.Store.Client(),
		keys:  keys.Builder{Env: opts.Environment, Service: opts.Service},
		codec: cd,
		comp:  codec.Compressor{Threshold: opts.CompressionThreshold},
	}
	m.log = opts.Logger
	if m.log == nil {
		m.log = NopLogger{}
	}
	m.hooks = opts.Hooks
	if m.hooks == nil {
		m.hooks = NopHooks{}
	}
	m.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, time.Hour)
	m.retry = retry.Policy{
		MaxAttempts: coalesce[int](opts.MaxRetries, 3),
		BaseDelay:   coalesce[time.Duration](opts.RetryBaseDelay, 100*time.Millisecond),
		MaxDelay:    coalesce[time.Duration](opts.RetryMaxDelay, 5*time.Second),
		Retryable:   transportRetryable,
	}
	return m, nil
}

// transportRetryable classifies store errors for the retry policy.
// Cancellation is the caller's decision and never retried; everything else
// reaching this point is a transport failure worth another attempt.
func transportRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
