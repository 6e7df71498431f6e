package keys

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// metaSuffix marks the metadata hash that travels with every cache value.
const metaSuffix = ":meta"

// Builder derives physical store keys from logical cache keys.
// Every key is prefixed with environment and service so deployments
// sharing one store instance cannot collide.
type Builder struct {
	Env     string
	Service string
}

// Key returns "{env}:{service}:{prefix}:{key}". An empty prefix segment
// is omitted rather than left as a double colon.
func (b Builder) Key(prefix, key string) string {
	parts := make([]string, 0, 4)
	parts = append(parts, b.Env, b.Service)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, key)
	return strings.Join(parts, ":")
}

// Meta returns the metadata sibling for a physical value key.
func Meta(physical string) string { return physical + metaSuffix }

// IsMeta reports whether a physical key is a metadata sibling.
func IsMeta(physical string) bool { return strings.HasSuffix(physical, metaSuffix) }

// Logical strips the namespace produced by Key, turning a physical key back
// into the caller's logical key. Returns ok=false for keys outside the
// namespace.
func (b Builder) Logical(prefix, physical string) (string, bool) {
	ns := b.Key(prefix, "")
	if !strings.HasPrefix(physical, ns) {
		return "", false
	}
	return physical[len(ns):], true
}

// Digest16 returns the first 16 hex characters of the SHA-256 digest over the
// given parts. Collision-resistant enough for non-adversarial cache keys.
func Digest16(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%x", sum)[:16]
}
