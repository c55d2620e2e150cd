package types

// PrepayItem 下单商品，价格以服务端为准
type PrepayItem struct {
	GoodsID  uint64 `json:"goods_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// PrepayRequest 预支付请求参数
type PrepayRequest struct {
	IssueID  uint64         `json:"issue_id" binding:"required"`
	FormData map[string]any `json:"form_data"`
	UserInfo map[string]any `json:"user_info"` // 网页授权拿到的昵称头像，可选
	Items    []PrepayItem   `json:"items"`
}

// PayParams 前端调起 JSAPI 支付所需参数
type PayParams struct {
	AppID     string `json:"appId"`
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
}

type PrepayResponse struct {
	SubmissionID string     `json:"submission_id"`
	PaymentID    string     `json:"payment_id"`
	Amount       string     `json:"amount"`
	PayParams    *PayParams `json:"pay_params"`
}

// SubmissionView 查询订单返回
type SubmissionView struct {
	SubmissionID string `json:"submission_id"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	TradeNo      string `json:"trade_no,omitempty"`
	PaidAt       int64  `json:"paid_at,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// JSSDKConfig wx.config 参数
type JSSDKConfig struct {
	AppID     string `json:"appId"`
	Timestamp string `json:"timestamp"`
	NonceStr  string `json:"nonceStr"`
	Signature string `json:"signature"`
}

// GatewayRejection 网关拒绝时返回给调用方的错误码，如 NOAUTH、ORDERPAID
type GatewayRejection struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}
