// Package cache provides Redis cache access layer.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// Cache provides Redis cache access methods.
type Cache struct {
	client  *redis.Client
	hashKey []byte
}

// New creates a new Cache with a Redis client.
// secret keys the hash applied to client addresses before they become Redis keys.
func New(ctx context.Context, redisURL, secret string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 5
	opt.MinIdleConns = 1
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return newWithClient(client, secret), nil
}

func newWithClient(client *redis.Client, secret string) *Cache {
	// blake2b keys are capped at 64 bytes, so derive a fixed-size key from the secret.
	key := blake2b.Sum256([]byte(secret))
	return &Cache{client: client, hashKey: key[:]}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
// Use sparingly - prefer adding methods to Cache.
func (c *Cache) Client() *redis.Client {
	return c.client
}
