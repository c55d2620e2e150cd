package wxpay

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

type SignType string

const (
	SignTypeMD5        SignType = "MD5"
	SignTypeHMACSHA256 SignType = "HMAC-SHA256"
)

const (
	FieldSign     = "sign"
	FieldSignType = "sign_type"
)

func (t SignType) Valid() bool {
	return t == SignTypeMD5 || t == SignTypeHMACSHA256
}

// Sign 按 ASCII 排序拼接非空参数（排除 sign），追加 key=商户密钥 后摘要，输出大写十六进制
func Sign(p Params, key string, signType SignType) string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if k == FieldSign || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k])
		b.WriteByte('&')
	}
	b.WriteString("key=")
	b.WriteString(key)

	var sum []byte
	switch signType {
	case SignTypeHMACSHA256:
		h := hmac.New(sha256.New, []byte(key))
		h.Write([]byte(b.String()))
		sum = h.Sum(nil)
	default:
		s := md5.Sum([]byte(b.String()))
		sum = s[:]
	}
	return strings.ToUpper(hex.EncodeToString(sum))
}

// Verify checks p's sign field. The sign_type carried in p, when present, overrides fallback.
func Verify(p Params, key string, fallback SignType) error {
	got := p[FieldSign]
	if got == "" {
		return fmt.Errorf("%w: missing sign", ErrSignatureInvalid)
	}
	signType := fallback
	if st := p[FieldSignType]; st != "" {
		signType = SignType(st)
	}
	if !signType.Valid() {
		return fmt.Errorf("%w: unsupported sign_type %q", ErrSignatureInvalid, signType)
	}
	want := Sign(p, key, signType)
	if subtle.ConstantTimeCompare([]byte(strings.ToUpper(got)), []byte(want)) != 1 {
		return ErrSignatureInvalid
	}
	return nil
}

// VerifyNotification parses a raw callback body and verifies its signature.
func VerifyNotification(raw []byte, key string, signType SignType) (Params, error) {
	p, err := ParseXML(raw)
	if err != nil {
		return nil, err
	}
	if err := Verify(p, key, signType); err != nil {
		return nil, err
	}
	return p, nil
}

// JSSDKSign JS-SDK wx.config 签名，sha1 小写
func JSSDKSign(ticket, nonceStr, timestamp, url string) string {
	s := "jsapi_ticket=" + ticket + "&noncestr=" + nonceStr + "&timestamp=" + timestamp + "&url=" + url
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// PaySign 前端 WeixinJSBridge getBrandWCPayRequest 的 paySign
func PaySign(appID, timeStamp, nonceStr, pkg string, signType SignType, key string) string {
	return Sign(Params{
		"appId":     appID,
		"timeStamp": timeStamp,
		"nonceStr":  nonceStr,
		"package":   pkg,
		"signType":  string(signType),
	}, key, signType)
}
