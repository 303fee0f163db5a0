package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "leaderboard:"

// RedisCache stores computed leaderboards as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed leaderboard cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(eventID uuid.UUID) string {
	return keyPrefix + eventID.String()
}

// Get returns the cached entries, or ok=false on a miss.
func (c *RedisCache) Get(ctx context.Context, eventID uuid.UUID) ([]Entry, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return entries, true, nil
}

// Set stores entries for the cache TTL.
func (c *RedisCache) Set(ctx context.Context, eventID uuid.UUID, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(eventID), data, c.ttl).Err()
}

// Invalidate drops the cached leaderboard of an event.
func (c *RedisCache) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	return c.client.Del(ctx, cacheKey(eventID)).Err()
}
