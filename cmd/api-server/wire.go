//go:build wireinject
// +build wireinject

package main

import (
	"Formpay/config"
	"Formpay/dao"
	"Formpay/handler"
	"Formpay/pkg/client"
	"Formpay/pkg/database"
	"Formpay/pkg/server"
	"Formpay/service"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	database.NewDB,
	client.NewRedisClient,
	config.ProvideRocketMQConfig,
	dao.ProviderSet,
	wire.Bind(new(service.PaymentRepository), new(*dao.PaymentStore)),
	provideCredentialStore,
	provideSweepLock,
	provideEventPublisher,
	provideHashID,
)

func InitServer(cfg *config.Config) (*server.AppProvider, func(), error) {
	wire.Build(
		infraSet,
		service.ProviderSet,
		wire.Struct(new(handler.Auth), "*"),
		wire.Struct(new(handler.Pay), "*"),
		wire.Struct(new(handler.Wechat), "*"),
		wire.Struct(new(server.Handlers), "*"),
		server.NewGinEngine,
		wire.Struct(new(server.AppProvider), "*"),
	)
	return nil, nil, nil
}

func InitReconciler(cfg *config.Config) (*service.Reconciler, func(), error) {
	wire.Build(
		infraSet,
		service.ProviderSet,
	)
	return nil, nil, nil
}

func InitAdmin(cfg *config.Config) (*adminApp, func(), error) {
	wire.Build(
		infraSet,
		service.ProviderSet,
		wire.Struct(new(adminApp), "*"),
	)
	return nil, nil, nil
}
