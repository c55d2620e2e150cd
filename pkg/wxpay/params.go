package wxpay

import (
	"fmt"
	"strings"

	"github.com/clbanning/mxj/v2"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

const (
	Success = "SUCCESS"
	Fail    = "FAIL"
)

func init() {
	mxj.XMLEscapeChars(true)
}

// Params 微信支付 v2 协议的扁平参数
type Params map[string]string

func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Map 用于落库审计（datatypes.JSON）
func (p Params) Map() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// XML encodes p as <xml><k>v</k>...</xml>.
func (p Params) XML() ([]byte, error) {
	m := make(mxj.Map, len(p))
	for k, v := range p {
		m[k] = v
	}
	return m.Xml("xml")
}

// ParseXML decodes a flat <xml> document. Nested elements are rejected.
func ParseXML(body []byte) (Params, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrMalformedBody
	}
	m, err := mxj.NewMapXml(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	root, ok := m["xml"]
	if !ok {
		return nil, fmt.Errorf("%w: missing <xml> root", ErrMalformedBody)
	}
	p := make(Params)
	fields, ok := root.(map[string]interface{})
	if !ok {
		// <xml/> 或纯文本
		return p, nil
	}
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			p[k] = val
		case map[string]interface{}:
			text, ok := val["#text"]
			if !ok {
				return nil, fmt.Errorf("%w: nested element %q", ErrMalformedBody, k)
			}
			p[k] = cast.ToString(text)
		case []interface{}:
			return nil, fmt.Errorf("%w: repeated element %q", ErrMalformedBody, k)
		default:
			p[k] = cast.ToString(val)
		}
	}
	return p, nil
}

// NonceStr 32 位随机串
func NonceStr() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Ack 回调应答
type Ack struct {
	ReturnCode string
	ReturnMsg  string
}

func SuccessAck() *Ack {
	return &Ack{ReturnCode: Success, ReturnMsg: "OK"}
}

func FailAck(msg string) *Ack {
	return &Ack{ReturnCode: Fail, ReturnMsg: msg}
}

func (a *Ack) OK() bool {
	return a.ReturnCode == Success
}

func (a *Ack) XML() []byte {
	b, err := Params{"return_code": a.ReturnCode, "return_msg": a.ReturnMsg}.XML()
	if err != nil {
		return []byte("<xml><return_code>FAIL</return_code><return_msg>encode</return_msg></xml>")
	}
	return b
}
