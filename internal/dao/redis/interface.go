// Package redis defines the cache contracts the service layer depends on
// and their go-redis implementation.
package redis

import (
	"context"
	"time"
)

// CacheService is the synchronous cache surface.
type CacheService interface {
	// ==================== string ====================

	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get returns "" and nil for a missing key.
	Get(ctx context.Context, key string) (string, error)

	// ==================== key ====================

	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error

	// ==================== sorted set ====================

	// ZAdd upserts member with score.
	ZAdd(ctx context.Context, key, member string, score float64) error
	// ZRangeByMaxScore lists up to limit members with score <= max, lowest first.
	ZRangeByMaxScore(ctx context.Context, key string, max float64, limit int64) ([]string, error)
	// ZRem removes members and reports how many were present. A caller that
	// removes a member has claimed it.
	ZRem(ctx context.Context, key string, members ...string) (int64, error)
}

// AsyncCacheService adds fire-and-forget cache maintenance.
type AsyncCacheService interface {
	CacheService
	SubmitTask(action func())
}
