// Package store manages the connection to the backing key-value store.
// It abstracts over standalone, sentinel and clustered Redis topologies
// behind go-redis's UniversalClient so everything above this layer issues
// commands without topology awareness.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Mode selects the connection strategy.
type Mode string

const (
	ModeStandalone Mode = "standalone"
	ModeSentinel   Mode = "sentinel"
	ModeCluster    Mode = "cluster"
)

// Config holds the connection parameters. Only Addrs is required; Mode
// defaults to standalone.
type Config struct {
	Mode Mode

	// Addrs is the server address for standalone, the sentinel endpoints
	// for sentinel, or the seed nodes for cluster.
	Addrs []string

	// MasterName is the logical service name resolved via sentinels.
	// Required for ModeSentinel, ignored otherwise.
	MasterName string

	Username string
	Password string
	DB       int // ignored in cluster mode

	// Pool tuning. Zero values fall back to go-redis defaults.
	MaxConns     int
	MinIdleConns int
	PoolTimeout  time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ConnectionError wraps a failure to reach the store, distinguishing
// retryable transport trouble from logic errors at call sites.
type ConnectionError struct {
	Mode Mode
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store: connect %s %q: %v", e.Mode, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Store is one logical connection pool to the key-value store.
type Store struct {
	client redis.UniversalClient
	mode   Mode
}

// Connect builds the client for the configured topology and verifies
// liveness with a single PING. A failed probe returns *ConnectionError.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeStandalone
	}
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("store: at least one address is required")
	}

	var client redis.UniversalClient
	switch mode {
	case ModeStandalone:
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Addrs[0],
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.MaxConns,
			MinIdleConns: cfg.MinIdleConns,
			PoolTimeout:  cfg.PoolTimeout,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	case ModeSentinel:
		if cfg.MasterName == "" {
			return nil, fmt.Errorf("store: sentinel mode requires MasterName")
		}
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.MasterName,
			SentinelAddrs: cfg.Addrs,
			Username:      cfg.Username,
			Password:      cfg.Password,
			DB:            cfg.DB,
			PoolSize:      cfg.MaxConns,
			MinIdleConns:  cfg.MinIdleConns,
			PoolTimeout:   cfg.PoolTimeout,
			DialTimeout:   cfg.DialTimeout,
			ReadTimeout:   cfg.ReadTimeout,
			WriteTimeout:  cfg.WriteTimeout,
		})
	case ModeCluster:
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Addrs,
			Username:     cfg.Username,
			Password:     cfg.Password,
			PoolSize:     cfg.MaxConns,
			MinIdleConns: cfg.MinIdleConns,
			PoolTimeout:  cfg.PoolTimeout,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	default:
		return nil, fmt.Errorf("store: unknown mode %q", mode)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, &ConnectionError{Mode: mode, Addr: cfg.Addrs[0], Err: err}
	}
	return &Store{client: client, mode: mode}, nil
}

// Client exposes the underlying command interface. Command semantics are
// identical across topologies.
func (s *Store) Client() redis.UniversalClient { return s.client }

// Mode reports the configured topology.
func (s *Store) Mode() Mode { return s.mode }

// Close releases the connection pool.
func (s *Store) Close() error { return s.client.Close() }

// Health is the result of a liveness probe plus lightweight introspection.
type Health struct {
	Status           string // "healthy" or "unhealthy"
	Latency          time.Duration
	Topology         Mode
	UsedMemoryBytes  int64
	ConnectedClients int64
}

// Healthy reports whether the probe succeeded.
func (h Health) Healthy() bool { return h.Status == "healthy" }

// HealthCheck pings the store and samples memory/client counters from INFO.
// It classifies the result instead of returning an error; introspection
// fields stay zero when INFO is unavailable (some test servers omit it).
func (s *Store) HealthCheck(ctx context.Context) Health {
	h := Health{Topology: s.mode}

	start := time.Now()
	if err := s.client.Ping(ctx).Err(); err != nil {
		h.Status = "unhealthy"
		h.Latency = time.Since(start)
		return h
	}
	h.Latency = time.Since(start)
	h.Status = "healthy"

	if info, err := s.client.Info(ctx, "memory").Result(); err == nil {
		h.UsedMemoryBytes = InfoInt(info, "used_memory")
	}
	if info, err := s.client.Info(ctx, "clients").Result(); err == nil {
		h.ConnectedClients = InfoInt(info, "connected_clients")
	}
	return h
}

// InfoInt extracts an integer field from an INFO section body.
// Returns 0 when the field is absent or malformed.
func InfoInt(info, field string) int64 {
	for _, line := range strings.Split(info, "\r\n") {
		if v, ok := strings.CutPrefix(line, field+":"); ok {
			var n int64
			if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
				return n
			}
		}
	}
	return 0
}
