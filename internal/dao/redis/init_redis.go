package redis

import (
	"context"
	"strconv"

	"clinic_chat_server/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var cacheService *RedisCache

// Init connects to redis. An empty host leaves the cache disabled and
// GetCacheService returns nil.
func Init() {
	conf := config.GetConfig()
	if conf.RedisConfig.Host == "" {
		zap.L().Info("redis disabled")
		return
	}
	addr := conf.RedisConfig.Host + ":" + strconv.Itoa(conf.RedisConfig.Port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     conf.RedisConfig.Password,
		DB:           conf.RedisConfig.Db,
		PoolSize:     50,
		MinIdleConns: 10,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		zap.L().Error("redis ping failed, cache disabled", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return
	}

	cacheService = NewRedisCache(client, 10, 3000)
}

// GetCacheService returns the process wide cache, or nil when disabled.
func GetCacheService() *RedisCache {
	return cacheService
}

// Close releases the client.
func Close() {
	if cacheService != nil {
		_ = cacheService.client.Close()
	}
}
