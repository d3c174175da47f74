package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ai_summary:"

// SummaryCache keeps ready shared summaries close to the API so repeat
// requests skip the database. A nil *SummaryCache is a valid no-op cache.
type SummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSummaryCache(rdb *redis.Client, ttl time.Duration) *SummaryCache {
	if rdb == nil {
		return nil
	}
	return &SummaryCache{rdb: rdb, ttl: ttl}
}

func key(sessionId uuid.UUID) string {
	return keyPrefix + sessionId.String()
}

// Get returns the cached summary JSON, or "" on a miss.
func (c *SummaryCache) Get(ctx context.Context, sessionId uuid.UUID) (string, error) {
	if c == nil {
		return "", nil
	}
	val, err := c.rdb.Get(ctx, key(sessionId)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (c *SummaryCache) Set(ctx context.Context, sessionId uuid.UUID, summaryJSON string) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, key(sessionId), summaryJSON, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *SummaryCache) Delete(ctx context.Context, sessionId uuid.UUID) error {
	if c == nil {
		return nil
	}
	return c.rdb.Del(ctx, key(sessionId)).Err()
}
