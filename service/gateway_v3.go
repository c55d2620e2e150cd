package service

import (
	"Formpay/config"
	"Formpay/pkg/log"
	"Formpay/pkg/wxpay"
	"Formpay/types"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth/verifiers"
	"github.com/wechatpay-apiv3/wechatpay-go/core/downloader"
	"github.com/wechatpay-apiv3/wechatpay-go/core/notify"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/jsapi"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"
	"go.uber.org/zap"
)

var _ Gateway = (*V3Gateway)(nil)

// V3Gateway 微信支付 APIv3，证书自动下载，回调由 notify.Handler 验签解密
type V3Gateway struct {
	conf   *config.WechatPayConfig
	client *core.Client
	notify *notify.Handler
}

func NewV3Gateway(conf *config.WechatPayConfig) (*V3Gateway, error) {
	// 1. 加载商户私钥
	mchPrivateKey, err := utils.LoadPrivateKeyWithPath(conf.MchPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("加载商户私钥失败: %w", err)
	}

	// 2. 创建微信支付客户端，注册平台证书自动更新
	opts := []core.ClientOption{
		option.WithWechatPayAutoAuthCipher(
			conf.MchID,
			conf.MchCertificateSerialNumber,
			mchPrivateKey,
			conf.MchAPIv3Key,
		),
	}
	ctx, cancel := context.WithTimeout(context.Background(), conf.Timeout())
	defer cancel()
	client, err := core.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建微信支付客户端失败: %w", err)
	}

	// 3. 回调处理器复用下载器中的平台证书
	certificateVisitor := downloader.MgrInstance().GetCertificateVisitor(conf.MchID)
	handler, err := notify.NewRSANotifyHandler(conf.MchAPIv3Key, verifiers.NewSHA256WithRSAVerifier(certificateVisitor))
	if err != nil {
		return nil, fmt.Errorf("创建微信支付回调处理器失败: %w", err)
	}
	log.L.Info("wechat pay v3 client ready", zap.String("mch_id", conf.MchID))

	return &V3Gateway{conf: conf, client: client, notify: handler}, nil
}

func (g *V3Gateway) NotifyHandler() *notify.Handler {
	return g.notify
}

func (g *V3Gateway) Prepay(ctx context.Context, order *PrepayOrder) (*PrepayResult, error) {
	svc := jsapi.JsapiApiService{Client: g.client}
	req := jsapi.PrepayRequest{
		Appid:       core.String(g.conf.AppID),
		Mchid:       core.String(g.conf.MchID),
		Description: core.String(order.Description),
		OutTradeNo:  core.String(order.PaymentID),
		NotifyUrl:   core.String(g.conf.NotifyURL),
		Amount: &jsapi.Amount{
			Total:    core.Int64(order.TotalFee),
			Currency: core.String(order.Currency),
		},
		Payer: &jsapi.Payer{
			Openid: core.String(order.OpenID),
		},
		SceneInfo: &jsapi.SceneInfo{
			PayerClientIp: core.String(order.ClientIP),
		},
	}
	if !order.ExpireAt.IsZero() {
		req.TimeExpire = core.Time(order.ExpireAt)
	}

	result := &PrepayResult{Request: map[string]any{
		"appid":        g.conf.AppID,
		"mchid":        g.conf.MchID,
		"description":  order.Description,
		"out_trade_no": order.PaymentID,
		"total":        order.TotalFee,
		"currency":     order.Currency,
		"openid":       order.OpenID,
		"notify_url":   g.conf.NotifyURL,
	}}

	resp, _, err := svc.PrepayWithRequestPayment(ctx, req)
	if err != nil {
		return result, g.mapError(err)
	}

	result.PrepayID = deref(resp.PrepayId)
	result.Response = map[string]any{"prepay_id": result.PrepayID}
	result.PayParams = &types.PayParams{
		AppID:     deref(resp.Appid),
		TimeStamp: deref(resp.TimeStamp),
		NonceStr:  deref(resp.NonceStr),
		Package:   deref(resp.Package),
		SignType:  deref(resp.SignType),
		PaySign:   deref(resp.PaySign),
	}
	return result, nil
}

func (g *V3Gateway) Query(ctx context.Context, paymentID string) (*GatewayTransaction, error) {
	svc := jsapi.JsapiApiService{Client: g.client}
	tx, _, err := svc.QueryOrderByOutTradeNo(ctx, jsapi.QueryOrderByOutTradeNoRequest{
		OutTradeNo: core.String(paymentID),
		Mchid:      core.String(g.conf.MchID),
	})
	if err != nil {
		var apiErr *core.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "ORDER_NOT_EXIST" {
			return &GatewayTransaction{PaymentID: paymentID, State: TradeNotExist}, nil
		}
		return nil, g.mapError(err)
	}
	return TransactionFromV3(tx), nil
}

func (g *V3Gateway) Close(ctx context.Context, paymentID string) error {
	svc := jsapi.JsapiApiService{Client: g.client}
	_, err := svc.CloseOrder(ctx, jsapi.CloseOrderRequest{
		OutTradeNo: core.String(paymentID),
		Mchid:      core.String(g.conf.MchID),
	})
	if err != nil {
		return g.mapError(err)
	}
	return nil
}

// mapError 4xx 视为网关拒绝，5xx 及网络错误视为结果未知
func (g *V3Gateway) mapError(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		return &wxpay.GatewayError{
			ReturnCode: wxpay.Fail,
			ReturnMsg:  apiErr.Message,
			ErrCode:    apiErr.Code,
			ErrCodeDes: apiErr.Message,
		}
	}
	return fmt.Errorf("%w: %v", wxpay.ErrRequestFailed, err)
}

func TransactionFromV3(tx *payments.Transaction) *GatewayTransaction {
	out := &GatewayTransaction{
		PaymentID:     deref(tx.OutTradeNo),
		TransactionID: deref(tx.TransactionId),
		State:         TradeState(deref(tx.TradeState)),
		Raw: map[string]any{
			"out_trade_no":     deref(tx.OutTradeNo),
			"transaction_id":   deref(tx.TransactionId),
			"trade_state":      deref(tx.TradeState),
			"trade_state_desc": deref(tx.TradeStateDesc),
			"success_time":     deref(tx.SuccessTime),
			"bank_type":        deref(tx.BankType),
		},
	}
	if tx.Amount != nil && tx.Amount.Total != nil {
		out.TotalFee = *tx.Amount.Total
		out.Raw["total"] = out.TotalFee
	}
	if tx.Payer != nil {
		out.OpenID = deref(tx.Payer.Openid)
	}
	if s := deref(tx.SuccessTime); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			out.PaidAt = &t
		}
	}
	return out
}

// NotificationFromV3 非终态（如 NOTPAY、USERPAYING）返回 nil，无需处理
func NotificationFromV3(tx *payments.Transaction) (*Notification, error) {
	gt := TransactionFromV3(tx)
	if gt.PaymentID == "" {
		return nil, fmt.Errorf("%w: out_trade_no missing", wxpay.ErrMalformedBody)
	}
	switch gt.State {
	case TradeSuccess, TradePayError, TradeRevoked:
		return gt.notification(SourceNotify), nil
	}
	return nil, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
