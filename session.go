package rediskit

import (
	"context"
	"time"

	"github.com/unkn0wn-root/rediskit/codec"
)

const (
	sessionPrefix = "session"

	// sessionDefaultTTL applies when a caller stores without an explicit
	// lifetime; Store itself pins the longer sessionStoreTTL.
	sessionDefaultTTL = 30 * time.Minute
	sessionStoreTTL   = time.Hour
)

// SessionCache is a policy wrapper over Manager for ephemeral session blobs,
// keyed by session identifier. Pure policy: no encoding, compression or
// retry of its own.
type SessionCache struct {
	cache *Manager
}

func NewSessionCache(m *Manager) *SessionCache {
	return &SessionCache{cache: m}
}

// Store saves the session blob with the 1 hour store override.
func (c *SessionCache) Store(ctx context.Context, sessionID string, data codec.Value) (bool, error) {
	return c.StoreWithTTL(ctx, sessionID, data, sessionStoreTTL)
}

// StoreWithTTL saves the session blob with an explicit lifetime;
// ttl <= 0 falls back to the 30 minute session default.
func (c *SessionCache) StoreWithTTL(ctx context.Context, sessionID string, data codec.Value, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = sessionDefaultTTL
	}
	return c.cache.Set(ctx, sessionID, data, ttl, sessionPrefix)
}

// Get retrieves the session blob; ok=false on miss.
func (c *SessionCache) Get(ctx context.Context, sessionID string) (codec.Value, bool) {
	v := c.cache.Get(ctx, sessionID, sessionPrefix, codec.Value{})
	return v, !v.IsZero()
}

// Invalidate drops the session. False only when the store was unreachable.
func (c *SessionCache) Invalidate(ctx context.Context, sessionID string) bool {
	return c.cache.Delete(ctx, sessionID, sessionPrefix)
}
