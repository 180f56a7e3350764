package database

import (
	"context"
	"fmt"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// InitRedis 未启用时返回 nil，调用方需要处理 nil 客户端
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	ctx := context.Background()
	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Redis connection established")
	return rdb, nil
}
