// Package redis caches event snapshots in Redis using go-redis/v9.
// Snapshot caching is the only concern this process uses Redis for, so
// the connection is owned by the cache itself.
package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/solana"
)

// Config holds the cache's connection parameters.
type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// options maps Config onto the driver's option set.
func options(cfg Config) *redis.Options {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	return opts
}

// SnapshotCache implements domain.SnapshotCache using Redis string values
// with JSON-serialized event snapshots.
//
// Key schema:
//
//	event:{base58 address} - JSON-encoded EventSnapshot
type SnapshotCache struct {
	rdb *redis.Client
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)

// New connects to Redis, pings it to verify connectivity, and returns the
// cache. It returns an error if the connection cannot be established.
func New(ctx context.Context, cfg Config) (*SnapshotCache, error) {
	rdb := redis.NewClient(options(cfg))
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &SnapshotCache{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (sc *SnapshotCache) Close() error {
	return sc.rdb.Close()
}

func eventKey(address solana.PublicKey) string {
	return "event:" + address.String()
}

// GetEvent returns the cached snapshot, or (nil, nil) on a cache miss.
func (sc *SnapshotCache) GetEvent(ctx context.Context, address solana.PublicKey) (*domain.EventSnapshot, error) {
	data, err := sc.rdb.Get(ctx, eventKey(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get event %s: %w", address, err)
	}

	var snap domain.EventSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("redis: unmarshal event %s: %w", address, err)
	}
	return &snap, nil
}

// SetEvent stores the snapshot with the given TTL.
func (sc *SnapshotCache) SetEvent(ctx context.Context, snap *domain.EventSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal event %s: %w", snap.Address, err)
	}
	if err := sc.rdb.Set(ctx, eventKey(snap.Address), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set event %s: %w", snap.Address, err)
	}
	return nil
}

// InvalidateEvent drops the cached snapshot after a confirmed mutation.
func (sc *SnapshotCache) InvalidateEvent(ctx context.Context, address solana.PublicKey) error {
	if err := sc.rdb.Del(ctx, eventKey(address)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate event %s: %w", address, err)
	}
	return nil
}
