package wxpay

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.mch.weixin.qq.com"

	pathUnifiedOrder = "/pay/unifiedorder"
	pathOrderQuery   = "/pay/orderquery"
	pathCloseOrder   = "/pay/closeorder"
)

type Options struct {
	AppID    string
	MchID    string
	APIKey   string
	SignType SignType
	BaseURL  string
	Timeout  time.Duration
}

// Client 微信支付 v2（XML）商户接口
type Client struct {
	opts Options
	http *resty.Client
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if !opts.SignType.Valid() {
		opts.SignType = SignTypeMD5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	http := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "text/xml; charset=utf-8")
	return &Client{opts: opts, http: http}
}

func (c *Client) AppID() string {
	return c.opts.AppID
}

func (c *Client) SignType() SignType {
	return c.opts.SignType
}

// Sign 使用商户密钥签名
func (c *Client) Sign(p Params) string {
	return Sign(p, c.opts.APIKey, c.opts.SignType)
}

// Prepare fills the common request fields and signs p in place.
func (c *Client) Prepare(p Params) Params {
	p["appid"] = c.opts.AppID
	p["mch_id"] = c.opts.MchID
	if p["nonce_str"] == "" {
		p["nonce_str"] = NonceStr()
	}
	p[FieldSignType] = string(c.opts.SignType)
	p[FieldSign] = c.Sign(p)
	return p
}

// UnifiedOrder 统一下单。返回已签名的请求参数（用于审计）和网关响应
func (c *Client) UnifiedOrder(ctx context.Context, p Params) (Params, Params, error) {
	req := c.Prepare(p.Clone())
	resp, err := c.post(ctx, pathUnifiedOrder, req)
	return req, resp, err
}

func (c *Client) OrderQuery(ctx context.Context, outTradeNo string) (Params, error) {
	return c.post(ctx, pathOrderQuery, c.Prepare(Params{"out_trade_no": outTradeNo}))
}

func (c *Client) CloseOrder(ctx context.Context, outTradeNo string) (Params, error) {
	return c.post(ctx, pathCloseOrder, c.Prepare(Params{"out_trade_no": outTradeNo}))
}

func (c *Client) post(ctx context.Context, path string, req Params) (Params, error) {
	body, err := req.XML()
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode() >= 500 {
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode())
	}
	if resp.IsError() {
		return nil, &GatewayError{ReturnCode: Fail, ReturnMsg: fmt.Sprintf("http status %d", resp.StatusCode())}
	}

	out, err := ParseXML(resp.Body())
	if err != nil {
		return nil, err
	}
	if out["return_code"] != Success {
		return out, &GatewayError{ReturnCode: out["return_code"], ReturnMsg: out["return_msg"], Raw: out}
	}
	if err := Verify(out, c.opts.APIKey, c.opts.SignType); err != nil {
		return out, fmt.Errorf("%s response: %w", path, err)
	}
	if out["result_code"] != Success {
		return out, &GatewayError{
			ReturnCode: out["return_code"],
			ReturnMsg:  out["return_msg"],
			ErrCode:    out["err_code"],
			ErrCodeDes: out["err_code_des"],
			Raw:        out,
		}
	}
	return out, nil
}
