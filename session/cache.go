package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"api/metrics"
	"api/models"

	"github.com/redis/go-redis/v9"
)

// AttemptCache is the volatile storage tier. It is never authoritative: a
// miss is a normal outcome, never an error, and anything stored here can be
// recomputed from the durable store.
type AttemptCache interface {
	// Put upserts the attempt and resets its TTL.
	Put(ctx context.Context, attempt *models.Attempt, ttl time.Duration) error

	// Get returns the cached attempt, or nil on a miss.
	Get(ctx context.Context, id string) (*models.Attempt, error)

	// Invalidate removes the entry immediately.
	Invalidate(ctx context.Context, id string) error
}

const cacheKeyPrefix = "session:"

// RedisCache implements AttemptCache on a Redis instance
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Put(ctx context.Context, attempt *models.Attempt, ttl time.Duration) error {
	if err := c.client.Set(ctx, cacheKeyPrefix+attempt.ID, attempt, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache attempt: %w", err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, id string) (*models.Attempt, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheMisses.Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached attempt: %w", err)
	}

	var attempt models.Attempt
	if err := attempt.UnmarshalBinary(data); err != nil {
		// A corrupt entry is as good as a miss, the durable copy wins
		metrics.CacheMisses.Inc()
		return nil, nil
	}

	metrics.CacheHits.Inc()
	return &attempt, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, cacheKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached attempt: %w", err)
	}
	return nil
}
