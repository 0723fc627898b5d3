package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/hoaledger/internal/usecase"
)

var _ usecase.Cache = (*Cache)(nil)

// Cache implements usecase.Cache using Redis. Values are opaque bytes.
type Cache struct {
	client redis.Cmdable
	prefix string
}

// NewCache creates a new Cache for reconstructed snapshots.
func NewCache(client redis.Cmdable) *Cache {
	return &Cache{
		client: client,
		prefix: "snapshot:",
	}
}

// Get retrieves a value by key. An absent key returns usecase.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, usecase.ErrCacheMiss
	}
	return val, err
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
