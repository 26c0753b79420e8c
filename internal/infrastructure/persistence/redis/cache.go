// Package redis holds the Redis-backed read caches of the playground hub.
//
// Key components:
//   - Cache: JSON get/set with TTLs over a go-redis client
//   - RankingCache: generation-keyed cache of computed Power Rankings
//
// Redis is never the source of truth; every cached value can be rebuilt from
// the progress store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// URL is a redis:// connection string. When set it wins over Addr,
	// Password and DB.
	URL string

	// Addr is the "host:port" of the server.
	Addr string

	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a local single-instance configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Options converts the configuration to go-redis options.
func (c Config) Options() (*redis.Options, error) {
	opts := &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
	if c.URL != "" {
		parsed, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid URL: %w", err)
		}
		opts = parsed
	}

	opts.PoolSize = c.PoolSize
	opts.MinIdleConns = c.MinIdleConns
	opts.MaxRetries = c.MaxRetries
	opts.DialTimeout = c.DialTimeout
	opts.ReadTimeout = c.ReadTimeout
	opts.WriteTimeout = c.WriteTimeout
	return opts, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheMiss is returned when the requested key is not found in cache.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when Redis connection fails.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheSerialization is returned when serialization/deserialization fails.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheKeyEmpty is returned when an empty key is provided.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")

	// ErrCacheInvalidTTL is returned when a negative TTL is provided.
	ErrCacheInvalidTTL = errors.New("cache: invalid TTL")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS AND TTLs
// ══════════════════════════════════════════════════════════════════════════════

const (
	// PrefixRanking namespaces ranking keys.
	PrefixRanking = "ranking:"

	// TTLRanking bounds how stale a cached ranking can get if an
	// invalidation is lost.
	TTLRanking = 30 * time.Second
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Cache wraps a go-redis client with JSON serialization.
type Cache struct {
	client *redis.Client
}

// NewCache connects and pings the server.
func NewCache(ctx context.Context, cfg Config) (*Cache, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrCacheConnection, err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores value as JSON under key.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	if ttl < 0 {
		return ErrCacheInvalidTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheSerialization, err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get decodes the JSON stored under key into dest.
// Returns ErrCacheMiss if the key doesn't exist.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheSerialization, err)
	}
	return nil
}

// Int returns the integer stored under key, or 0 when it is missing.
func (c *Cache) Int(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Incr increments a counter and returns the new value.
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrCacheKeyEmpty
	}
	return c.client.Incr(ctx, key).Result()
}
