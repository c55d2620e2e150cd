package service

import (
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	NewCredentialCache,
	NewMPClient,
	NewGateway,
	NewNotificationProcessor,

	wire.Struct(new(StateMachine), "*"),

	wire.Struct(new(WeChatService), "*"),
	wire.Bind(new(IWeChatService), new(*WeChatService)),

	wire.Struct(new(OrderService), "*"),
	wire.Bind(new(IOrderService), new(*OrderService)),

	wire.Struct(new(SubmissionService), "*"),
	wire.Bind(new(ISubmissionService), new(*SubmissionService)),

	wire.Struct(new(Reconciler), "*"),
)
