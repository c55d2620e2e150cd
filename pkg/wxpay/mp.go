package wxpay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const DefaultMPBaseURL = "https://api.weixin.qq.com"

// MPClient 公众号接口：access_token、jsapi_ticket、网页授权
type MPClient struct {
	appID  string
	secret string
	http   *resty.Client
}

type OAuthToken struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	OpenID       string `json:"openid"`
	Scope        string `json:"scope"`
	UnionID      string `json:"unionid"`
}

type UserInfo struct {
	OpenID     string `json:"openid"`
	Nickname   string `json:"nickname"`
	Sex        int    `json:"sex"`
	Province   string `json:"province"`
	City       string `json:"city"`
	Country    string `json:"country"`
	HeadImgURL string `json:"headimgurl"`
	UnionID    string `json:"unionid,omitempty"`
}

func NewMPClient(appID, secret, baseURL string, timeout time.Duration) *MPClient {
	if baseURL == "" {
		baseURL = DefaultMPBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MPClient{
		appID:  appID,
		secret: secret,
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
	}
}

func (c *MPClient) AppID() string {
	return c.appID
}

// AccessToken 获取全局 access_token，返回网关给出的有效期
func (c *MPClient) AccessToken(ctx context.Context) (string, time.Duration, error) {
	res, err := c.get(ctx, "/cgi-bin/token", map[string]string{
		"grant_type": "client_credential",
		"appid":      c.appID,
		"secret":     c.secret,
	})
	if err != nil {
		return "", 0, err
	}
	token := res.Get("access_token").String()
	if token == "" {
		return "", 0, fmt.Errorf("%w: empty access_token", ErrMalformedBody)
	}
	return token, time.Duration(res.Get("expires_in").Int()) * time.Second, nil
}

func (c *MPClient) JSAPITicket(ctx context.Context, accessToken string) (string, time.Duration, error) {
	res, err := c.get(ctx, "/cgi-bin/ticket/getticket", map[string]string{
		"access_token": accessToken,
		"type":         "jsapi",
	})
	if err != nil {
		return "", 0, err
	}
	ticket := res.Get("ticket").String()
	if ticket == "" {
		return "", 0, fmt.Errorf("%w: empty ticket", ErrMalformedBody)
	}
	return ticket, time.Duration(res.Get("expires_in").Int()) * time.Second, nil
}

// OAuthAccessToken 用网页授权 code 换取 openid
func (c *MPClient) OAuthAccessToken(ctx context.Context, code string) (*OAuthToken, error) {
	res, err := c.get(ctx, "/sns/oauth2/access_token", map[string]string{
		"appid":      c.appID,
		"secret":     c.secret,
		"code":       code,
		"grant_type": "authorization_code",
	})
	if err != nil {
		return nil, err
	}
	var tok OAuthToken
	if err := json.Unmarshal([]byte(res.Raw), &tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if tok.OpenID == "" {
		return nil, fmt.Errorf("%w: empty openid", ErrMalformedBody)
	}
	return &tok, nil
}

func (c *MPClient) OAuthUserInfo(ctx context.Context, accessToken, openID string) (*UserInfo, error) {
	res, err := c.get(ctx, "/sns/userinfo", map[string]string{
		"access_token": accessToken,
		"openid":       openID,
		"lang":         "zh_CN",
	})
	if err != nil {
		return nil, err
	}
	var info UserInfo
	if err := json.Unmarshal([]byte(res.Raw), &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return &info, nil
}

func (c *MPClient) get(ctx context.Context, path string, query map[string]string) (gjson.Result, error) {
	resp, err := c.http.R().SetContext(ctx).SetQueryParams(query).Get(path)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.IsError() {
		return gjson.Result{}, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode())
	}
	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, ErrMalformedBody
	}
	res := gjson.ParseBytes(body)
	if code := res.Get("errcode").Int(); code != 0 {
		return res, &APIError{ErrCode: code, ErrMsg: res.Get("errmsg").String()}
	}
	return res, nil
}
