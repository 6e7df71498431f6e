// Package ratelimit implements per-identifier sliding-window admission
// control on the store. Each identifier owns an ordered set of request
// timestamps; a check prunes everything older than the trailing window,
// counts what remains, and records the current request - all in one
// pipelined round-trip. When the store is unreachable the limiter fails
// open, preferring availability over strict enforcement.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/rediskit"
	"github.com/unkn0wn-root/rediskit/store"
)

// Config fixes one admission policy. Distinct policy classes (general API
// traffic vs. model traffic, say) get distinct Limiter instances.
type Config struct {
	Store       *store.Store
	MaxRequests int           // admitted per window; required
	Window      time.Duration // trailing window length; required

	Logger rediskit.Logger // nil => NopLogger
	Hooks  rediskit.Hooks  // nil => NopHooks
}

// Info describes the window state observed by an admission check.
// Zero on fail-open.
type Info struct {
	CurrentCount  int // requests in the window, this one included
	MaxRequests   int
	WindowSeconds int
	ResetTime     time.Time // when the window has fully slid past this request
}

// Limiter answers admission checks for one policy class.
type Limiter struct {
	rdb    redis.UniversalClient
	max    int
	window time.Duration
	log    rediskit.Logger
	hooks  rediskit.Hooks

	now func() time.Time // injectable clock
}

func New(cfg Config) (*Limiter, error) {
	if cfg.Store == nil {
		return nil, errors.New("ratelimit: store is required")
	}
	if cfg.MaxRequests <= 0 || cfg.Window <= 0 {
		return nil, errors.New("ratelimit: MaxRequests and Window must be positive")
	}
	l := &Limiter{
		rdb:    cfg.Store.Client(),
		max:    cfg.MaxRequests,
		window: cfg.Window,
		now:    time.Now,
	}
	l.log = cfg.Logger
	if l.log == nil {
		l.log = rediskit.NopLogger{}
	}
	l.hooks = cfg.Hooks
	if l.hooks == nil {
		l.hooks = rediskit.NopHooks{}
	}
	return l, nil
}

// Allow records a request for identifier and reports whether it is admitted.
//
// The decision uses the count observed before the current request is added,
// so exactly MaxRequests requests are admitted per rolling window; the
// denied request still consumes a slot. On transport errors Allow fails
// open: (true, Info{}).
func (l *Limiter) Allow(ctx context.Context, identifier string) (bool, Info) {
	key := "rate_limit:" + identifier
	now := l.now()
	cutoff := float64(now.Add(-l.window).UnixNano()) / float64(time.Second)

	pipe := l.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatFloat(cutoff, 'f', -1, 64))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()) / float64(time.Second),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.hooks.LimiterFailOpen(identifier, err)
		l.log.Warn("rate limit check failed open", rediskit.Fields{
			"identifier": identifier,
			"err":        err,
		})
		return true, Info{}
	}

	before := int(countCmd.Val())
	return before < l.max, Info{
		CurrentCount:  before + 1,
		MaxRequests:   l.max,
		WindowSeconds: int(l.window / time.Second),
		ResetTime:     now.Add(l.window),
	}
}
