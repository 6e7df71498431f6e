package rediskit

import (
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/rediskit/codec"
)

func TestSessionStoreAndGet(t *testing.T) {
	m, mr := newTestManager(t, Options{})
	sc := NewSessionCache(m)
	ctx := context.Background()

	blob := codec.Structured(map[string]any{"user_id": "u1", "cart": []any{"sku-9"}})
	if ok, err := sc.Store(ctx, "sess-1", blob); err != nil || !ok {
		t.Fatalf("Store = %v, %v", ok, err)
	}

	v, ok := sc.Get(ctx, "sess-1")
	if !ok {
		t.Fatal("Get miss")
	}
	obj, _ := v.Object()
	if obj.(map[string]any)["user_id"] != "u1" {
		t.Fatalf("Get = %v", obj)
	}

	if ttl := mr.TTL("test:svc:session:sess-1"); ttl != time.Hour {
		t.Fatalf("Store TTL = %v, want 1h", ttl)
	}
}

func TestSessionStoreWithTTL(t *testing.T) {
	m, mr := newTestManager(t, Options{})
	sc := NewSessionCache(m)
	ctx := context.Background()

	if ok, err := sc.StoreWithTTL(ctx, "s1", codec.String("v"), 5*time.Minute); err != nil || !ok {
		t.Fatalf("StoreWithTTL = %v, %v", ok, err)
	}
	if ttl := mr.TTL("test:svc:session:s1"); ttl != 5*time.Minute {
		t.Fatalf("TTL = %v", ttl)
	}

	// Non-positive lifetime falls back to the 30 minute session default.
	if ok, err := sc.StoreWithTTL(ctx, "s2", codec.String("v"), 0); err != nil || !ok {
		t.Fatalf("StoreWithTTL = %v, %v", ok, err)
	}
	if ttl := mr.TTL("test:svc:session:s2"); ttl != 30*time.Minute {
		t.Fatalf("default TTL = %v, want 30m", ttl)
	}
}

func TestSessionExpiresAndInvalidates(t *testing.T) {
	m, mr := newTestManager(t, Options{})
	sc := NewSessionCache(m)
	ctx := context.Background()

	if ok, err := sc.StoreWithTTL(ctx, "s1", codec.String("v"), time.Minute); err != nil || !ok {
		t.Fatalf("StoreWithTTL = %v, %v", ok, err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok := sc.Get(ctx, "s1"); ok {
		t.Fatal("expired session still readable")
	}

	if ok, err := sc.Store(ctx, "s2", codec.String("v")); err != nil || !ok {
		t.Fatalf("Store = %v, %v", ok, err)
	}
	if !sc.Invalidate(ctx, "s2") {
		t.Fatal("Invalidate = false")
	}
	if _, ok := sc.Get(ctx, "s2"); ok {
		t.Fatal("invalidated session still readable")
	}
}
