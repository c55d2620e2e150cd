package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	APIVersionV2 = "v2"
	APIVersionV3 = "v3"
)

type WechatPayConfig struct {
	APIVersion string `yaml:"api_version"` // v2 (XML, 默认) 或 v3
	AppID      string `yaml:"app_id"`      // 公众号 appid
	AppSecret  string `yaml:"app_secret"`  // 公众号 secret，用于 access_token / 网页授权
	MchID      string `yaml:"mch_id"`      // 商户号
	APIKey     string `yaml:"api_key"`     // v2 商户 API 密钥
	SignType   string `yaml:"sign_type"`   // MD5 或 HMAC-SHA256

	MchCertificateSerialNumber string `yaml:"mch_certificate_serial_number"` // 商户证书序列号
	MchAPIv3Key                string `yaml:"mch_apiv3_key"`                 // APIv3密钥
	MchPrivateKeyPath          string `yaml:"mch_private_key_path"`          // 商户私钥文件路径

	NotifyURL        string `yaml:"notify_url"`         // 支付回调URL
	BaseURL          string `yaml:"base_url"`           // 商户接口地址，测试环境可替换
	MPBaseURL        string `yaml:"mp_base_url"`        // 公众号接口地址
	TimeoutSeconds   int    `yaml:"timeout_seconds"`    // 出站请求超时
	OrderTTLMinutes  int    `yaml:"order_ttl_minutes"`  // 订单有效期
	OutTradeNoPrefix string `yaml:"out_trade_no_prefix"`
	Body             string `yaml:"body"` // 商品描述
	Currency         string `yaml:"currency"`
}

func (w *WechatPayConfig) setDefaults() {
	if w.APIVersion == "" {
		w.APIVersion = APIVersionV2
	}
	if w.SignType == "" {
		w.SignType = "MD5"
	}
	if w.TimeoutSeconds <= 0 {
		w.TimeoutSeconds = 10
	}
	if w.OrderTTLMinutes <= 0 {
		w.OrderTTLMinutes = 30
	}
	if w.OutTradeNoPrefix == "" {
		w.OutTradeNoPrefix = "FP"
	}
	if w.Body == "" {
		w.Body = "活动报名"
	}
	if w.Currency == "" {
		w.Currency = "CNY"
	}
}

func (w *WechatPayConfig) Validate() error {
	var errs []error
	if w.AppID == "" {
		errs = append(errs, errors.New("wechat_pay.app_id is required"))
	}
	if w.MchID == "" {
		errs = append(errs, errors.New("wechat_pay.mch_id is required"))
	}
	if w.NotifyURL == "" {
		errs = append(errs, errors.New("wechat_pay.notify_url is required"))
	}
	switch w.APIVersion {
	case APIVersionV2:
		if w.APIKey == "" {
			errs = append(errs, errors.New("wechat_pay.api_key is required for v2"))
		}
		if w.SignType != "MD5" && w.SignType != "HMAC-SHA256" {
			errs = append(errs, fmt.Errorf("wechat_pay.sign_type %q unsupported", w.SignType))
		}
	case APIVersionV3:
		if w.MchAPIv3Key == "" || w.MchCertificateSerialNumber == "" || w.MchPrivateKeyPath == "" {
			errs = append(errs, errors.New("wechat_pay: mch_apiv3_key, mch_certificate_serial_number and mch_private_key_path are required for v3"))
		}
	default:
		errs = append(errs, fmt.Errorf("wechat_pay.api_version %q unsupported", w.APIVersion))
	}
	// out_trade_no 最长 32 位：前缀 + 8 位日期 + 19 位 snowflake
	if len(w.OutTradeNoPrefix) > 5 {
		errs = append(errs, errors.New("wechat_pay.out_trade_no_prefix must be at most 5 characters"))
	}
	return errors.Join(errs...)
}

func (w *WechatPayConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

func (w *WechatPayConfig) OrderTTL() time.Duration {
	return time.Duration(w.OrderTTLMinutes) * time.Minute
}

func ProvideWechatPayConfig(cfg *Config) *WechatPayConfig {
	return cfg.WechatPayConfig
}
