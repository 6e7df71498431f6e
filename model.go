package rediskit

import (
	"context"
	"time"

	"github.com/unkn0wn-root/rediskit/codec"
	"github.com/unkn0wn-root/rediskit/internal/keys"
)

// TTL policy for computed-artifact entries.
const (
	modelPrefix       = "model"
	modelResultTTL    = 2 * time.Hour
	embeddingTTL      = 24 * time.Hour
	recommendationTTL = time.Hour
)

// ModelResultCache is a policy wrapper over Manager for computed artifacts
// (embeddings, recommendations). It fixes TTLs and key shapes and delegates
// all encoding, compression and retry behavior to the Manager.
type ModelResultCache struct {
	cache *Manager
}

func NewModelResultCache(m *Manager) *ModelResultCache {
	return &ModelResultCache{cache: m}
}

// CacheResult stores an arbitrary computed artifact under the model prefix
// with the 2 hour default.
func (c *ModelResultCache) CacheResult(ctx context.Context, key string, v codec.Value) (bool, error) {
	return c.cache.Set(ctx, key, v, modelResultTTL, modelPrefix)
}

// GetResult retrieves an artifact stored via CacheResult; ok=false on miss.
func (c *ModelResultCache) GetResult(ctx context.Context, key string) (codec.Value, bool) {
	v := c.cache.Get(ctx, key, modelPrefix, codec.Value{})
	return v, !v.IsZero()
}

// embeddingKey digests the input text so arbitrarily long inputs map to a
// fixed-length key. 16 hex chars of SHA-256 is plenty for a non-adversarial
// cache key.
func embeddingKey(text, model string) string {
	return "embedding:" + model + ":" + keys.Digest16(text)
}

// CacheEmbedding stores the vector computed for (text, model) for 24 hours.
func (c *ModelResultCache) CacheEmbedding(ctx context.Context, text, model string, vector []float64) (bool, error) {
	return c.cache.Set(ctx, embeddingKey(text, model), codec.Structured(vector), embeddingTTL, modelPrefix)
}

// GetEmbedding retrieves a previously cached vector; ok=false on miss or on
// an entry that is not a numeric sequence.
func (c *ModelResultCache) GetEmbedding(ctx context.Context, text, model string) ([]float64, bool) {
	v := c.cache.Get(ctx, embeddingKey(text, model), modelPrefix, codec.Value{})
	obj, ok := v.Object()
	if !ok {
		return nil, false
	}
	seq, ok := obj.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(seq))
	for i, e := range seq {
		switch n := e.(type) {
		case float64:
			out[i] = n
		case float32:
			out[i] = float64(n)
		case int64:
			out[i] = float64(n)
		case uint64:
			out[i] = float64(n)
		default:
			return nil, false
		}
	}
	return out, true
}

func recommendationKey(userID, recType string) string {
	return "rec:" + userID + ":" + recType
}

// CacheRecommendations stores the recommendation payload computed for a user
// and recommendation type for 1 hour.
func (c *ModelResultCache) CacheRecommendations(ctx context.Context, userID, recType string, recs codec.Value) (bool, error) {
	return c.cache.Set(ctx, recommendationKey(userID, recType), recs, recommendationTTL, modelPrefix)
}

// GetRecommendations retrieves cached recommendations; ok=false on miss.
func (c *ModelResultCache) GetRecommendations(ctx context.Context, userID, recType string) (codec.Value, bool) {
	v := c.cache.Get(ctx, recommendationKey(userID, recType), modelPrefix, codec.Value{})
	return v, !v.IsZero()
}
