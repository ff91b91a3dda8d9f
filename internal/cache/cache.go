// Package cache stores raw knowledge-base responses between runs.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a byte cache keyed by request URL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Nop never hits and discards writes.
type Nop struct{}

// Get implements Cache.
func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set implements Cache.
func (Nop) Set(context.Context, string, []byte) error { return nil }

// Redis stores entries in Redis under Prefix with an expiry of TTL.
type Redis struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

// NewRedis opens a client for addr. It returns nil when addr is empty so the
// caller can fall back to Nop.
func NewRedis(addr, password string, db int, prefix string, ttl time.Duration) *Redis {
	if addr == "" {
		return nil
	}

	return &Redis{
		Client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		Prefix: prefix,
		TTL:    ttl,
	}
}

// Get implements Cache. A missing key is a miss, not an error.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.Client.Get(ctx, r.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return val, true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.Client.Set(ctx, r.Prefix+key, value, r.TTL).Err()
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.Client.Close()
}
