package server

import (
	"Formpay/handler"
)

type Handlers struct {
	Auth   *handler.Auth
	Pay    *handler.Pay
	Wechat *handler.Wechat
}
