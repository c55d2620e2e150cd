package wxpay

import (
	"errors"
	"fmt"
)

var (
	ErrSignatureInvalid = errors.New("wxpay: signature invalid")
	ErrMalformedBody    = errors.New("wxpay: malformed body")
	// ErrRequestFailed 网络错误、超时、5xx，结果未知，可重试
	ErrRequestFailed = errors.New("wxpay: request failed")
)

// GatewayError 网关明确拒绝（return_code 或 result_code 为 FAIL）
type GatewayError struct {
	ReturnCode string
	ReturnMsg  string
	ErrCode    string
	ErrCodeDes string
	Raw        Params
}

func (e *GatewayError) Error() string {
	if e.ErrCode != "" {
		return fmt.Sprintf("wxpay: %s %s", e.ErrCode, e.ErrCodeDes)
	}
	return fmt.Sprintf("wxpay: %s %s", e.ReturnCode, e.ReturnMsg)
}

// Code 优先返回业务错误码
func (e *GatewayError) Code() string {
	if e.ErrCode != "" {
		return e.ErrCode
	}
	return e.ReturnCode
}

func (e *GatewayError) Message() string {
	if e.ErrCodeDes != "" {
		return e.ErrCodeDes
	}
	return e.ReturnMsg
}

// APIError 公众号接口返回的 errcode
type APIError struct {
	ErrCode int64
	ErrMsg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wechat api: errcode=%d errmsg=%s", e.ErrCode, e.ErrMsg)
}

// IsTokenExpired reports whether err means the access token used for the call is no longer valid.
func IsTokenExpired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrCode {
	case 40001, 40014, 42001:
		return true
	}
	return false
}
