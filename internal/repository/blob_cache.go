package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// BlobCache stores opaque values in Redis with an expiry.
type BlobCache struct {
	rdb *redis.Client
}

func NewBlobCache(rdb *redis.Client) *BlobCache {
	return &BlobCache{rdb: rdb}
}

func (c *BlobCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *BlobCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}
