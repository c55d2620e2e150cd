package service

import (
	"Formpay/config"
	"Formpay/types"
	"context"
	"time"
)

type TradeState string

const (
	TradeSuccess    TradeState = "SUCCESS"
	TradeNotPay     TradeState = "NOTPAY"
	TradeClosed     TradeState = "CLOSED"
	TradePayError   TradeState = "PAYERROR"
	TradeRevoked    TradeState = "REVOKED"
	TradeUserPaying TradeState = "USERPAYING"
	TradeRefund     TradeState = "REFUND"
	TradeNotExist   TradeState = "NOTEXIST"
)

// chinaTZ 网关时间均为东八区
var chinaTZ = time.FixedZone("CST", 8*3600)

type PrepayOrder struct {
	PaymentID   string
	Description string
	OpenID      string
	ClientIP    string
	TotalFee    int64 // 分
	Currency    string
	ExpireAt    time.Time
}

type PrepayResult struct {
	PrepayID  string
	PayParams *types.PayParams
	Request   map[string]any // 已签名请求，写入 CREATE 流水
	Response  map[string]any
}

// GatewayTransaction 查单结果
type GatewayTransaction struct {
	PaymentID     string
	TransactionID string
	OpenID        string
	State         TradeState
	TotalFee      int64
	PaidAt        *time.Time
	Raw           map[string]any
}

// Gateway 支付网关。明确拒绝返回 *wxpay.GatewayError；
// 超时、网络错误、5xx 返回包装了 wxpay.ErrRequestFailed 的错误，结果未知
type Gateway interface {
	Prepay(ctx context.Context, order *PrepayOrder) (*PrepayResult, error)
	Query(ctx context.Context, paymentID string) (*GatewayTransaction, error)
	Close(ctx context.Context, paymentID string) error
}

func NewGateway(cfg *config.Config) (Gateway, error) {
	if cfg.WechatPayConfig.APIVersion == config.APIVersionV3 {
		return NewV3Gateway(cfg.WechatPayConfig)
	}
	return NewV2Gateway(cfg.WechatPayConfig), nil
}
