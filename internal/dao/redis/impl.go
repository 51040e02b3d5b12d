package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"clinic_chat_server/pkg/errorx"
)

// RedisCache implements AsyncCacheService on a go-redis client.
// Callers that only need reads and writes should accept CacheService.
type RedisCache struct {
	client    *redis.Client
	taskChan  chan func()
	workerNum int
}

// NewRedisCache starts workerNum background workers draining a task queue
// of taskChanSize.
func NewRedisCache(client *redis.Client, workerNum, taskChanSize int) *RedisCache {
	rc := &RedisCache{
		client:    client,
		taskChan:  make(chan func(), taskChanSize),
		workerNum: workerNum,
	}
	for i := 0; i < workerNum; i++ {
		go rc.startWorker()
	}
	zap.L().Info("redis cache workers started", zap.Int("workers", workerNum), zap.Int("buffer", taskChanSize))
	return rc
}

// startWorker restarts itself after a panicking task.
func (r *RedisCache) startWorker() {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("redis worker panic", zap.Any("recover", rec))
			go r.startWorker()
		}
	}()

	for task := range r.taskChan {
		if task != nil {
			task()
		}
	}
}

// Client exposes the underlying client for pub/sub.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// ==================== string ====================

func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis set key %s", key)
	}
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", errorx.Wrapf(err, errorx.CodeCacheError, "redis get key %s", key)
	}
	return value, nil
}

// ==================== key ====================

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink %d keys", len(keys))
	}
	return nil
}

// DeleteByPattern scans in batches so large keyspaces never block redis.
func (r *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		var keys []string
		var err error
		keys, cursor, err = r.client.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return errorx.Wrapf(err, errorx.CodeCacheError, "redis scan pattern %s", pattern)
		}
		if len(keys) > 0 {
			if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
				return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink keys with pattern %s", pattern)
			}
		}
		if cursor == 0 {
			break
		}
	}
	return nil
}

// ==================== sorted set ====================

func (r *RedisCache) ZAdd(ctx context.Context, key, member string, score float64) error {
	if err := r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis zadd key %s", key)
	}
	return nil
}

func (r *RedisCache) ZRangeByMaxScore(ctx context.Context, key string, max float64, limit int64) ([]string, error) {
	members, err := r.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   formatScore(max),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeCacheError, "redis zrangebyscore key %s", key)
	}
	return members, nil
}

func (r *RedisCache) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	n, err := r.client.ZRem(ctx, key, args...).Result()
	if err != nil {
		return 0, errorx.Wrapf(err, errorx.CodeCacheError, "redis zrem key %s", key)
	}
	return n, nil
}

// ==================== async ====================

// SubmitTask queues action; a full queue runs it inline.
func (r *RedisCache) SubmitTask(action func()) {
	select {
	case r.taskChan <- action:
	default:
		zap.L().Warn("redis cache task channel full, executing synchronously")
		action()
	}
}

var _ AsyncCacheService = (*RedisCache)(nil)
