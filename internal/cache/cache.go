// Package cache is a thin Redis layer for analysis results and feed
// responses. Cache failures are logged and swallowed: a dead Redis must
// never break the pipeline, it just makes it slower.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is what the pipeline needs from a cache. Tests swap in an
// in-memory implementation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// RedisStore implements Store on go-redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a store from a redis URL
// (redis://[user:pass@]host:port/db).
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return data, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		slog.Warn("cache delete failed", "key", key, "error", err)
	}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// DailyPicksKey caches one analysis run. The timezone offset is part of
// the key because the same calendar date selects different games in
// different timezones.
func DailyPicksKey(date string, tzOffsetMinutes int) string {
	return fmt.Sprintf("daily_picks:%s:tz%d", date, tzOffsetMinutes)
}

// EventsKey caches the event listing for a date and region set.
func EventsKey(date, regions string) string {
	return fmt.Sprintf("events:nba:%s:%s", date, regions)
}

// PlayersKey caches the player list extracted from one event's props.
func PlayersKey(eventID string) string {
	return fmt.Sprintf("players:nba:%s", eventID)
}
