package rediskit

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/rediskit/codec"
	"github.com/unkn0wn-root/rediskit/internal/keys"
	"github.com/unkn0wn-root/rediskit/internal/retry"
	"github.com/unkn0wn-root/rediskit/store"
)

// Metadata hash fields written alongside every value key.
const (
	metaMethod         = "method"
	metaCompressed     = "compressed"
	metaCreatedAt      = "created_at"
	metaOriginalSize   = "original_size"
	metaCompressedSize = "compressed_size"
)

// Manager is the generic cache over namespaced keys. Each entry is a pair of
// store keys written and expired together: the value key with the encoded
// (possibly compressed) payload, and a ":meta" hash recording how to read it
// back. Every store round-trip runs under a bounded exponential backoff;
// once retries are exhausted the operation degrades (Get returns the
// caller's default, mutations report false) instead of surfacing transport
// errors.
type Manager struct {
	rdb   redis.UniversalClient
	keys  keys.Builder
	codec *codec.Codec
	comp  codec.Compressor
	retry retry.Policy
	log   Logger
	hooks Hooks

	defaultTTL time.Duration
}

// Get retrieves and decodes the entry for key, returning def on miss, on
// exhausted retries, and on undecodable payloads. Value and metadata are
// fetched in one pipelined round-trip; a value whose metadata sibling is
// gone decodes with the codec's default method.
func (m *Manager) Get(ctx context.Context, key, prefix string, def codec.Value) codec.Value {
	k := m.keys.Key(prefix, key)
	mk := keys.Meta(k)
	start := time.Now()

	var (
		raw  []byte
		meta map[string]string
		miss bool
	)
	attempts, err := m.retry.Do(ctx, func() error {
		pipe := m.rdb.Pipeline()
		getCmd := pipe.Get(ctx, k)
		metaCmd := pipe.HGetAll(ctx, mk)
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			return err
		}
		b, err := getCmd.Bytes()
		if err == redis.Nil {
			miss = true
			return nil
		}
		if err != nil {
			return err
		}
		miss = false
		raw = b
		meta = metaCmd.Val()
		return nil
	})
	if err != nil {
		m.degraded("get", k, attempts, start, err)
		return def
	}
	if miss {
		return def
	}

	method := meta[metaMethod]
	payload, err := m.comp.Decompress(raw, meta[metaCompressed] == "1")
	if err != nil {
		m.decodeMiss(k, method, err)
		return def
	}
	v, err := m.codec.Decode(payload, method)
	if err != nil {
		m.decodeMiss(k, method, err)
		return def
	}
	return v
}

// Set encodes v, compresses it above the threshold, and writes value plus
// metadata with matching TTLs in one pipelined round-trip. ttl <= 0 uses the
// manager default. The bool result is false when retries were exhausted; the
// error is non-nil only for unencodable values (*codec.UnsupportedTypeError),
// which are a caller bug and never retried.
func (m *Manager) Set(ctx context.Context, key string, v codec.Value, ttl time.Duration, prefix string) (bool, error) {
	payload, method, err := m.codec.Encode(v)
	if err != nil {
		return false, err
	}
	body, compressed := m.comp.Compress(payload)
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	k := m.keys.Key(prefix, key)
	mk := keys.Meta(k)
	flag := "0"
	if compressed {
		flag = "1"
	}
	meta := map[string]any{
		metaMethod:         method,
		metaCompressed:     flag,
		metaCreatedAt:      time.Now().UTC().Format(time.RFC3339Nano),
		metaOriginalSize:   len(payload),
		metaCompressedSize: len(body),
	}

	start := time.Now()
	attempts, rerr := m.retry.Do(ctx, func() error {
		pipe := m.rdb.Pipeline()
		pipe.Set(ctx, k, body, ttl)
		pipe.HSet(ctx, mk, meta)
		pipe.Expire(ctx, mk, ttl)
		_, err := pipe.Exec(ctx)
		return err
	})
	if rerr != nil {
		m.degraded("set", k, attempts, start, rerr)
		return false, nil
	}
	return true, nil
}

// Delete removes the entry and its metadata. Returns false only on
// exhausted retries; deleting an absent key is still a success.
func (m *Manager) Delete(ctx context.Context, key, prefix string) bool {
	k := m.keys.Key(prefix, key)
	start := time.Now()
	attempts, err := m.retry.Do(ctx, func() error {
		pipe := m.rdb.Pipeline()
		pipe.Del(ctx, k)
		pipe.Del(ctx, keys.Meta(k))
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		m.degraded("delete", k, attempts, start, err)
		return false
	}
	return true
}

// Exists reports whether the value key is present. Degrades to false.
func (m *Manager) Exists(ctx context.Context, key, prefix string) bool {
	k := m.keys.Key(prefix, key)
	start := time.Now()
	var n int64
	attempts, err := m.retry.Do(ctx, func() error {
		res, err := m.rdb.Exists(ctx, k).Result()
		if err != nil {
			return err
		}
		n = res
		return nil
	})
	if err != nil {
		m.degraded("exists", k, attempts, start, err)
		return false
	}
	return n > 0
}

// Expire updates the TTL on both the value key and its metadata sibling.
// Returns false when the key is absent or retries were exhausted.
func (m *Manager) Expire(ctx context.Context, key string, ttl time.Duration, prefix string) bool {
	k := m.keys.Key(prefix, key)
	start := time.Now()
	var ok bool
	attempts, err := m.retry.Do(ctx, func() error {
		pipe := m.rdb.Pipeline()
		expCmd := pipe.Expire(ctx, k, ttl)
		pipe.Expire(ctx, keys.Meta(k), ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		ok = expCmd.Val()
		return nil
	})
	if err != nil {
		m.degraded("expire", k, attempts, start, err)
		return false
	}
	return ok
}

// TTL returns the remaining lifetime in whole seconds, or -1 when the key is
// absent, has no expiry, or the store was unreachable.
func (m *Manager) TTL(ctx context.Context, key, prefix string) int64 {
	k := m.keys.Key(prefix, key)
	start := time.Now()
	var d time.Duration
	attempts, err := m.retry.Do(ctx, func() error {
		res, err := m.rdb.TTL(ctx, k).Result()
		if err != nil {
			return err
		}
		d = res
		return nil
	})
	if err != nil {
		m.degraded("ttl", k, attempts, start, err)
		return -1
	}
	if d <= 0 {
		return -1
	}
	secs := int64(d / time.Second)
	if secs == 0 {
		secs = 1 // sub-second remainder still counts as live
	}
	return secs
}

// ScanKeys returns the logical keys matching pattern within the namespace,
// metadata siblings excluded, sorted for determinism. The scan is finite and
// restartable by re-invocation. Degrades to nil.
func (m *Manager) ScanKeys(ctx context.Context, pattern, prefix string) []string {
	phys := m.keys.Key(prefix, pattern)
	start := time.Now()
	var matched []string
	attempts, err := m.retry.Do(ctx, func() error {
		res, err := m.rdb.Keys(ctx, phys).Result()
		if err != nil {
			return err
		}
		matched = res
		return nil
	})
	if err != nil {
		m.degraded("scan", phys, attempts, start, err)
		return nil
	}

	out := make([]string, 0, len(matched))
	for _, k := range matched {
		if keys.IsMeta(k) {
			continue
		}
		if logical, ok := m.keys.Logical(prefix, k); ok {
			out = append(out, logical)
		}
	}
	sort.Strings(out)
	return out
}

// DeletePattern removes every entry matching pattern together with its
// metadata sibling and returns the number of entries deleted. Degrades to 0.
func (m *Manager) DeletePattern(ctx context.Context, pattern, prefix string) int {
	phys := m.keys.Key(prefix, pattern)
	start := time.Now()
	var count int
	attempts, err := m.retry.Do(ctx, func() error {
		matched, err := m.rdb.Keys(ctx, phys).Result()
		if err != nil {
			return err
		}
		count = 0
		values := matched[:0]
		for _, k := range matched {
			if !keys.IsMeta(k) {
				values = append(values, k)
			}
		}
		if len(values) == 0 {
			return nil
		}
		pipe := m.rdb.Pipeline()
		delCmds := make([]*redis.IntCmd, len(values))
		for i, k := range values {
			delCmds[i] = pipe.Del(ctx, k)
			pipe.Del(ctx, keys.Meta(k))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		for _, cmd := range delCmds {
			count += int(cmd.Val())
		}
		return nil
	})
	if err != nil {
		m.degraded("delete_pattern", phys, attempts, start, err)
		return 0
	}
	return count
}

// CacheStats summarizes the namespaced keyspace and the store's own
// hit/miss counters.
type CacheStats struct {
	TotalKeys        int64
	MemoryUsageBytes int64
	HitRatio         float64
	EvictedKeys      int64
}

// Stats counts entries under the namespace and samples INFO for memory and
// hit-ratio figures. HitRatio is 0.0 when the store recorded no traffic.
// INFO-derived fields stay zero on servers without introspection.
func (m *Manager) Stats(ctx context.Context, prefix string) CacheStats {
	var s CacheStats

	phys := m.keys.Key(prefix, "*")
	start := time.Now()
	attempts, err := m.retry.Do(ctx, func() error {
		matched, err := m.rdb.Keys(ctx, phys).Result()
		if err != nil {
			return err
		}
		var n int64
		for _, k := range matched {
			if !keys.IsMeta(k) {
				n++
			}
		}
		s.TotalKeys = n
		return nil
	})
	if err != nil {
		m.degraded("stats", phys, attempts, start, err)
		return CacheStats{}
	}

	if info, err := m.rdb.Info(ctx, "memory").Result(); err == nil {
		s.MemoryUsageBytes = store.InfoInt(info, "used_memory")
	} else {
		m.infoUnavailable("memory", err)
	}
	if info, err := m.rdb.Info(ctx, "stats").Result(); err == nil {
		hits := store.InfoInt(info, "keyspace_hits")
		misses := store.InfoInt(info, "keyspace_misses")
		if hits+misses > 0 {
			s.HitRatio = float64(hits) / float64(hits+misses)
		}
		s.EvictedKeys = store.InfoInt(info, "evicted_keys")
	} else {
		m.infoUnavailable("stats", err)
	}
	return s
}

func (m *Manager) degraded(op, key string, attempts int, start time.Time, err error) {
	elapsed := time.Since(start)
	m.hooks.RetryExhausted(op, key, attempts, elapsed, err)
	m.log.Warn("cache operation degraded", Fields{
		"op":       op,
		"key":      key,
		"attempts": attempts,
		"elapsed":  elapsed,
		"err":      err,
	})
}

// infoUnavailable records a failed INFO sample. Servers that reject a
// section reject it on every attempt, so the sample is logged, not retried.
func (m *Manager) infoUnavailable(section string, err error) {
	m.log.Debug("stats: INFO section unavailable", Fields{
		"section": section,
		"err":     err,
	})
}

func (m *Manager) decodeMiss(key, method string, err error) {
	m.hooks.DecodeMiss(key, method, err)
	m.log.Warn("undecodable cache entry treated as miss", Fields{
		"key":    key,
		"method": method,
		"err":    err,
	})
}
