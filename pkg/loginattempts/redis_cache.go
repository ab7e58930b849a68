package loginattempts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAttemptCache implements AttemptCache on Redis, storing the full
// sorted attempt list as a JSON value under the shared key prefix.
type RedisAttemptCache struct {
	client *redis.Client
}

// NewRedisAttemptCache creates an attempt cache over the given Redis client
func NewRedisAttemptCache(client *redis.Client) *RedisAttemptCache {
	return &RedisAttemptCache{client: client}
}

func (c *RedisAttemptCache) Get(ctx context.Context, userID string) ([]LoginAttempt, bool, error) {
	payload, err := c.client.Get(ctx, CacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read attempt cache: %w", err)
	}

	var attempts []LoginAttempt
	if err := json.Unmarshal(payload, &attempts); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached attempts: %w", err)
	}
	return attempts, true, nil
}

func (c *RedisAttemptCache) Set(ctx context.Context, userID string, attempts []LoginAttempt, ttl time.Duration) error {
	payload, err := json.Marshal(attempts)
	if err != nil {
		return fmt.Errorf("failed to marshal attempts: %w", err)
	}
	if err := c.client.Set(ctx, CacheKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write attempt cache: %w", err)
	}
	return nil
}

func (c *RedisAttemptCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, CacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete attempt cache entry: %w", err)
	}
	return nil
}
