package main

import (
	"Formpay/config"
	"Formpay/dao/cache"
	"Formpay/pkg/log"
	"Formpay/pkg/rocketmq"
	"Formpay/pkg/utils"
	"Formpay/service"

	"github.com/redis/go-redis/v9"
)

// adminApp 运维命令依赖
type adminApp struct {
	Submissions service.ISubmissionService
	HashID      *utils.HashID
}

func provideHashID(cfg *config.Config) (*utils.HashID, error) {
	return utils.NewHashID(cfg.App.HashSalt)
}

// 多实例部署需要 redis 共享凭证，否则每个实例各自刷新 access_token
func provideCredentialStore(client *redis.Client) service.CredentialStore {
	if client == nil {
		return cache.NewLocalCredentialStore()
	}
	return cache.NewRedisCredentialStore(client)
}

func provideSweepLock(cfg *config.Config, client *redis.Client) service.SweepLocker {
	if client == nil {
		log.L.Warn("reconcile lock is process local, run a single reconcile instance")
		return cache.NewLocalSweepLock()
	}
	return cache.NewRedisSweepLock(client, cfg.Reconcile.LockTTL())
}

func provideEventPublisher(cfg *config.RocketMQConfig) (service.EventPublisher, func(), error) {
	if !cfg.Enabled() {
		return service.NopPublisher{}, func() {}, nil
	}
	p, cleanup, err := rocketmq.NewProducer(cfg)
	if err != nil {
		return nil, nil, err
	}
	return p, cleanup, nil
}
