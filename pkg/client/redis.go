package client

import (
	"Formpay/config"
	"Formpay/pkg/log"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient 未配置 redis 时返回 nil，调用方退化为单机实现
func NewRedisClient(conf *config.Config) *redis.Client {
	if conf.Redis == nil || conf.Redis.Address == "" {
		log.L.Info("redis not configured, using in-process cache and lock")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", conf.Redis.Address, conf.Redis.Port),
		Password:     conf.Redis.Password,
		Username:     conf.Redis.Username,
		DB:           conf.Redis.Database,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.L.Fatal("connect redis error", zap.Error(err))
	}
	log.L.Info("redis client success")
	return client
}
