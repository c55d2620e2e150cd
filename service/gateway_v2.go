package service

import (
	"Formpay/config"
	"Formpay/pkg/wxpay"
	"Formpay/types"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

var _ Gateway = (*V2Gateway)(nil)

// V2Gateway 微信支付 v2 XML 协议
type V2Gateway struct {
	conf   *config.WechatPayConfig
	client *wxpay.Client
}

func NewV2Gateway(conf *config.WechatPayConfig) *V2Gateway {
	return &V2Gateway{
		conf: conf,
		client: wxpay.NewClient(wxpay.Options{
			AppID:    conf.AppID,
			MchID:    conf.MchID,
			APIKey:   conf.APIKey,
			SignType: wxpay.SignType(conf.SignType),
			BaseURL:  conf.BaseURL,
			Timeout:  conf.Timeout(),
		}),
	}
}

func (g *V2Gateway) Prepay(ctx context.Context, order *PrepayOrder) (*PrepayResult, error) {
	p := wxpay.Params{
		"body":             order.Description,
		"out_trade_no":     order.PaymentID,
		"total_fee":        strconv.FormatInt(order.TotalFee, 10),
		"fee_type":         order.Currency,
		"spbill_create_ip": order.ClientIP,
		"notify_url":       g.conf.NotifyURL,
		"trade_type":       "JSAPI",
		"openid":           order.OpenID,
	}
	if !order.ExpireAt.IsZero() {
		p["time_expire"] = order.ExpireAt.In(chinaTZ).Format("20060102150405")
	}

	req, resp, err := g.client.UnifiedOrder(ctx, p)
	result := &PrepayResult{Request: req.Map()}
	if resp != nil {
		result.Response = resp.Map()
	}
	if err != nil {
		return result, err
	}

	prepayID := resp["prepay_id"]
	if prepayID == "" {
		return result, &wxpay.GatewayError{ReturnCode: wxpay.Success, ErrCode: "NO_PREPAY_ID", ErrCodeDes: "prepay_id missing", Raw: resp}
	}
	result.PrepayID = prepayID

	signType := g.client.SignType()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := wxpay.NonceStr()
	pkg := "prepay_id=" + prepayID
	result.PayParams = &types.PayParams{
		AppID:     g.client.AppID(),
		TimeStamp: ts,
		NonceStr:  nonce,
		Package:   pkg,
		SignType:  string(signType),
		PaySign:   wxpay.PaySign(g.client.AppID(), ts, nonce, pkg, signType, g.conf.APIKey),
	}
	return result, nil
}

func (g *V2Gateway) Query(ctx context.Context, paymentID string) (*GatewayTransaction, error) {
	resp, err := g.client.OrderQuery(ctx, paymentID)
	if err != nil {
		var gwErr *wxpay.GatewayError
		if errors.As(err, &gwErr) && gwErr.ErrCode == "ORDERNOTEXIST" {
			return &GatewayTransaction{PaymentID: paymentID, State: TradeNotExist, Raw: gwErr.Raw.Map()}, nil
		}
		return nil, err
	}

	tx := &GatewayTransaction{
		PaymentID:     resp["out_trade_no"],
		TransactionID: resp["transaction_id"],
		OpenID:        resp["openid"],
		State:         TradeState(resp["trade_state"]),
		PaidAt:        parseTimeEnd(resp["time_end"]),
		Raw:           resp.Map(),
	}
	if tx.PaymentID == "" {
		tx.PaymentID = paymentID
	}
	if fee := resp["total_fee"]; fee != "" {
		if tx.TotalFee, err = cast.ToInt64E(fee); err != nil {
			return nil, fmt.Errorf("%w: total_fee %q", wxpay.ErrMalformedBody, fee)
		}
	}
	return tx, nil
}

func (g *V2Gateway) Close(ctx context.Context, paymentID string) error {
	_, err := g.client.CloseOrder(ctx, paymentID)
	var gwErr *wxpay.GatewayError
	if errors.As(err, &gwErr) && gwErr.ErrCode == "ORDERCLOSED" {
		return nil
	}
	return err
}

// NotificationFromParams 将已验签的 v2 回调转换为通用通知
func NotificationFromParams(p wxpay.Params) (*Notification, error) {
	n := &Notification{
		PaymentID:     p["out_trade_no"],
		TransactionID: p["transaction_id"],
		OpenID:        p["openid"],
		Success:       p["return_code"] == wxpay.Success && p["result_code"] == wxpay.Success,
		PaidAt:        parseTimeEnd(p["time_end"]),
		Source:        SourceNotify,
		Raw:           p.Map(),
	}
	if n.PaymentID == "" {
		return nil, fmt.Errorf("%w: out_trade_no missing", wxpay.ErrMalformedBody)
	}
	if fee := p["total_fee"]; fee != "" {
		v, err := cast.ToInt64E(fee)
		if err != nil {
			return nil, fmt.Errorf("%w: total_fee %q", wxpay.ErrMalformedBody, fee)
		}
		n.TotalFee = v
	}
	if n.Success && (n.TransactionID == "" || p["total_fee"] == "") {
		return nil, fmt.Errorf("%w: success notification without transaction_id or total_fee", wxpay.ErrMalformedBody)
	}
	return n, nil
}

func parseTimeEnd(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation("20060102150405", s, chinaTZ)
	if err != nil {
		return nil
	}
	return &t
}
