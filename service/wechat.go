package service

import (
	"Formpay/config"
	"Formpay/pkg/log"
	"Formpay/pkg/wxpay"
	"Formpay/types"
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var _ IWeChatService = (*WeChatService)(nil)

type IWeChatService interface {
	AccessToken(ctx context.Context) (string, error)
	JSAPITicket(ctx context.Context) (string, error)
	JSSDKConfig(ctx context.Context, pageURL string) (*types.JSSDKConfig, error)
	OAuthLogin(ctx context.Context, code string) (*types.WxIdentity, error)
}

type WeChatService struct {
	Config      *config.Config
	MP          *wxpay.MPClient
	Credentials *CredentialCache
}

func NewMPClient(cfg *config.Config) *wxpay.MPClient {
	pay := cfg.WechatPayConfig
	return wxpay.NewMPClient(pay.AppID, pay.AppSecret, pay.MPBaseURL, pay.Timeout())
}

func (w *WeChatService) accessTokenKey() string {
	return CredentialKey(w.MP.AppID(), "access_token")
}

func (w *WeChatService) AccessToken(ctx context.Context) (string, error) {
	return w.Credentials.GetOrFetch(ctx, w.accessTokenKey(), w.MP.AccessToken)
}

func (w *WeChatService) JSAPITicket(ctx context.Context) (string, error) {
	key := CredentialKey(w.MP.AppID(), "jsapi_ticket")
	return w.Credentials.GetOrFetch(ctx, key, func(ctx context.Context) (string, time.Duration, error) {
		return w.withAccessToken(ctx, func(token string) (string, time.Duration, error) {
			return w.MP.JSAPITicket(ctx, token)
		})
	})
}

// withAccessToken 网关返回 token 失效时作废缓存，换新 token 重试一次
func (w *WeChatService) withAccessToken(ctx context.Context, call func(token string) (string, time.Duration, error)) (string, time.Duration, error) {
	token, err := w.AccessToken(ctx)
	if err != nil {
		return "", 0, err
	}
	v, ttl, err := call(token)
	if !wxpay.IsTokenExpired(err) {
		return v, ttl, err
	}

	log.L.Warn("access token rejected by gateway, refreshing", zap.Error(err))
	w.Credentials.Invalidate(ctx, w.accessTokenKey())
	if token, err = w.AccessToken(ctx); err != nil {
		return "", 0, err
	}
	return call(token)
}

func (w *WeChatService) JSSDKConfig(ctx context.Context, pageURL string) (*types.JSSDKConfig, error) {
	// 签名用的 url 不包含 # 及其后部分
	if i := strings.IndexByte(pageURL, '#'); i >= 0 {
		pageURL = pageURL[:i]
	}
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, invalid("url", "must be an absolute http(s) url")
	}

	ticket, err := w.JSAPITicket(ctx)
	if err != nil {
		return nil, err
	}
	nonce := wxpay.NonceStr()[:16]
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	return &types.JSSDKConfig{
		AppID:     w.MP.AppID(),
		Timestamp: ts,
		NonceStr:  nonce,
		Signature: wxpay.JSSDKSign(ticket, nonce, ts, pageURL),
	}, nil
}

// OAuthLogin code 换 openid；用户信息尽力获取，失败不影响登录
func (w *WeChatService) OAuthLogin(ctx context.Context, code string) (*types.WxIdentity, error) {
	if code == "" {
		return nil, invalid("code", "required")
	}
	tok, err := w.MP.OAuthAccessToken(ctx, code)
	if err != nil {
		return nil, err
	}
	identity := &types.WxIdentity{OpenID: tok.OpenID, UnionID: tok.UnionID}
	if !strings.Contains(tok.Scope, "snsapi_userinfo") {
		return identity, nil
	}

	info, err := w.MP.OAuthUserInfo(ctx, tok.AccessToken, tok.OpenID)
	if err != nil {
		log.L.Warn("fetch wechat user info failed", zap.String("openid", tok.OpenID), zap.Error(err))
		return identity, nil
	}
	identity.UserInfo = &types.WxUserInfo{
		Nickname:   info.Nickname,
		HeadImgURL: info.HeadImgURL,
		Sex:        info.Sex,
		Province:   info.Province,
		City:       info.City,
		Country:    info.Country,
	}
	if identity.UnionID == "" {
		identity.UnionID = info.UnionID
	}
	return identity, nil
}
