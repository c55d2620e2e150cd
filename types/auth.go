package types

type WxLoginRequest struct {
	Code string `json:"code" binding:"required"` // 网页授权回调带回的 code
}

type WxUserInfo struct {
	Nickname   string `json:"nickname"`
	HeadImgURL string `json:"headimgurl"`
	Sex        int    `json:"sex"`
	Province   string `json:"province"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// WxIdentity 网页授权结果，UserInfo 获取失败时为空
type WxIdentity struct {
	OpenID   string      `json:"openid"`
	UnionID  string      `json:"unionid,omitempty"`
	UserInfo *WxUserInfo `json:"user_info,omitempty"`
}

type WxLoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int         `json:"expires_in"`
	OpenID      string      `json:"openid"`
	UserInfo    *WxUserInfo `json:"user_info,omitempty"`
}
