package handler

import (
	"Formpay/config"
	"Formpay/models"
	"Formpay/pkg/jwt"
	"Formpay/pkg/response"
	"Formpay/pkg/utils"
	"Formpay/pkg/wxpay"
	"Formpay/service"
	"Formpay/types"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const testSecret = "handler-secret"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
jwt:
  secret: ` + testSecret + `
wechat_pay:
  app_id: wx-app
  mch_id: "1900000109"
  api_key: 192006250b4c09247ec02edce69f6a2d
`))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func testHashID(t *testing.T) *utils.HashID {
	t.Helper()
	h, err := utils.NewHashID("salt")
	if err != nil {
		t.Fatal(err)
	}
	return h
}

type fakeOrderService struct {
	in  *service.CreateOrderInput
	err error
}

func (f *fakeOrderService) CreateOrder(_ context.Context, in *service.CreateOrderInput) (*service.CreateOrderResult, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &service.CreateOrderResult{
		Submission: &models.Submission{ID: 42, PaymentID: "FP2024030942", Amount: decimal.RequireFromString("99.9")},
		PrepayID:   "wx-prepay",
		PayParams:  &types.PayParams{AppID: "wx-app", Package: "prepay_id=wx-prepay"},
	}, nil
}

type fakeSubmissionService struct {
	subs map[string]*models.Submission
}

func (f *fakeSubmissionService) Get(_ context.Context, paymentID string) (*models.Submission, error) {
	if sub, ok := f.subs[paymentID]; ok {
		return sub, nil
	}
	return nil, service.ErrSubmissionNotFound
}

func (f *fakeSubmissionService) GetByID(context.Context, uint64) (*models.Submission, error) {
	return nil, service.ErrSubmissionNotFound
}

func (f *fakeSubmissionService) Logs(context.Context, uint64) ([]*models.PaymentLog, error) {
	return nil, nil
}

func (f *fakeSubmissionService) Delete(context.Context, uint64) error {
	return nil
}

type fakeWeChatService struct {
	identity *types.WxIdentity
	err      error
	url      string
}

func (f *fakeWeChatService) AccessToken(context.Context) (string, error) { return "TOKEN", nil }
func (f *fakeWeChatService) JSAPITicket(context.Context) (string, error) { return "TICKET", nil }

func (f *fakeWeChatService) JSSDKConfig(_ context.Context, pageURL string) (*types.JSSDKConfig, error) {
	f.url = pageURL
	if f.err != nil {
		return nil, f.err
	}
	return &types.JSSDKConfig{AppID: "wx-app", Signature: "sig"}, nil
}

func (f *fakeWeChatService) OAuthLogin(context.Context, string) (*types.WxIdentity, error) {
	return f.identity, f.err
}

func newEngine(register func(r gin.IRouter)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r.Group("/api"))
	return r
}

func bearer(t *testing.T, openID string) string {
	t.Helper()
	tok, err := jwt.GenerateToken([]byte(testSecret), openID, jwt.TypeAccess, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func do(r http.Handler, method, path, auth string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) response.Response {
	t.Helper()
	var resp struct {
		Code int             `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	if data != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatal(err)
		}
	}
	return response.Response{Code: resp.Code, Msg: resp.Msg}
}

func TestPrepay(t *testing.T) {
	orders := &fakeOrderService{}
	hid := testHashID(t)
	p := &Pay{Config: testConfig(t), OrderService: orders, HashID: hid}
	r := newEngine(p.RegisterRouter)

	body := []byte(`{"issue_id":7,"form_data":{"name":"张三","amount":0.01},"items":[{"goods_id":1,"quantity":2}]}`)
	if w := do(r, http.MethodPost, "/api/v1/pay/prepay", "", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", w.Code)
	}

	w := do(r, http.MethodPost, "/api/v1/pay/prepay", bearer(t, "o-payer"), body)
	var data types.PrepayResponse
	resp := decode(t, w, &data)
	if resp.Code != response.CodeOK {
		t.Fatalf("response = %+v", resp)
	}
	if data.PaymentID != "FP2024030942" || data.Amount != "99.90" || data.PayParams.Package != "prepay_id=wx-prepay" {
		t.Errorf("data = %+v", data)
	}
	if id, err := hid.Decode(data.SubmissionID); err != nil || id != 42 {
		t.Errorf("submission id %q decodes to %d, %v", data.SubmissionID, id, err)
	}
	if orders.in.OpenID != "o-payer" || orders.in.IssueID != 7 || len(orders.in.Items) != 1 || orders.in.Items[0].Quantity != 2 {
		t.Errorf("input = %+v", orders.in)
	}
}

func TestPrepayErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&service.ValidationError{Field: "items", Reason: "goods 1 out of stock"}, response.CodeInvalidParams},
		{&wxpay.GatewayError{ReturnCode: "SUCCESS", ErrCode: "ORDERPAID", ErrCodeDes: "该订单已支付"}, response.CodePayRejected},
		{fmt.Errorf("%w: timeout", service.ErrGatewayUnavailable), response.CodeGatewayTimeout},
	}
	for _, tc := range cases {
		p := &Pay{Config: testConfig(t), OrderService: &fakeOrderService{err: tc.err}, HashID: testHashID(t)}
		r := newEngine(p.RegisterRouter)
		w := do(r, http.MethodPost, "/api/v1/pay/prepay", bearer(t, "o-payer"), []byte(`{"issue_id":7,"items":[{"goods_id":1,"quantity":1}]}`))
		if resp := decode(t, w, nil); resp.Code != tc.code {
			t.Errorf("%v: code = %d, want %d", tc.err, resp.Code, tc.code)
		}
	}

	rejected := &wxpay.GatewayError{ReturnCode: "SUCCESS", ErrCode: "NOAUTH", ErrCodeDes: "商户无此接口权限"}
	p := &Pay{Config: testConfig(t), OrderService: &fakeOrderService{err: rejected}, HashID: testHashID(t)}
	w := do(newEngine(p.RegisterRouter), http.MethodPost, "/api/v1/pay/prepay", bearer(t, "o-payer"), []byte(`{"issue_id":7,"items":[{"goods_id":1,"quantity":1}]}`))
	var reason types.GatewayRejection
	resp := decode(t, w, &reason)
	if resp.Code != response.CodePayRejected || resp.Msg != "商户无此接口权限" {
		t.Errorf("response = %+v", resp)
	}
	if reason.Reason != "NOAUTH" || reason.Message != "商户无此接口权限" {
		t.Errorf("rejection = %+v, body %s", reason, w.Body.String())
	}

	p = &Pay{Config: testConfig(t), OrderService: &fakeOrderService{err: fmt.Errorf("db down")}, HashID: testHashID(t)}
	w = do(newEngine(p.RegisterRouter), http.MethodPost, "/api/v1/pay/prepay", bearer(t, "o-payer"), []byte(`{"issue_id":7,"items":[{"goods_id":1,"quantity":1}]}`))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("unexpected error status = %d", w.Code)
	}
}

func TestNotifyRejectsBadSignature(t *testing.T) {
	cfg := testConfig(t)
	p := &Pay{Config: cfg, Processor: service.NewNotificationProcessor(cfg, nil, nil, nil), HashID: testHashID(t)}
	r := newEngine(p.RegisterRouter)

	params := wxpay.Params{"return_code": "SUCCESS", "result_code": "SUCCESS", "out_trade_no": "FP1", "sign": "BAD"}
	body, _ := params.XML()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pay/notify", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/xml") {
		t.Fatalf("status = %d, content-type = %s", w.Code, w.Header().Get("Content-Type"))
	}
	ack, err := wxpay.ParseXML(w.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if ack["return_code"] != wxpay.Fail {
		t.Errorf("ack = %v", ack)
	}
}

func TestNotifyV3DisabledForV2(t *testing.T) {
	cfg := testConfig(t)
	p := &Pay{Config: cfg, Gateway: service.NewV2Gateway(cfg.WechatPayConfig), HashID: testHashID(t)}
	w := do(newEngine(p.RegisterRouter), http.MethodPost, "/api/v1/pay/notify/v3", "", []byte(`{}`))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestQueryOwnership(t *testing.T) {
	paidAt := time.Date(2024, 3, 9, 10, 15, 0, 0, time.UTC)
	subs := &fakeSubmissionService{subs: map[string]*models.Submission{
		"FP1": {ID: 1, PaymentID: "FP1", OpenID: "o-payer", Status: models.SubmissionPaid, Amount: decimal.RequireFromString("100"), Currency: "CNY", TradeNo: "4200001", PaidAt: &paidAt},
	}}
	p := &Pay{Config: testConfig(t), SubmissionService: subs, HashID: testHashID(t)}
	r := newEngine(p.RegisterRouter)

	w := do(r, http.MethodGet, "/api/v1/pay/query/FP1", bearer(t, "o-payer"), nil)
	var view types.SubmissionView
	if resp := decode(t, w, &view); resp.Code != response.CodeOK {
		t.Fatalf("response = %+v", resp)
	}
	if view.Status != "PAID" || view.Amount != "100.00" || view.TradeNo != "4200001" || view.PaidAt != paidAt.Unix() {
		t.Errorf("view = %+v", view)
	}

	w = do(r, http.MethodGet, "/api/v1/pay/query/FP1", bearer(t, "o-other"), nil)
	if resp := decode(t, w, nil); resp.Code != response.CodeNotFound {
		t.Errorf("other payer code = %d", resp.Code)
	}
	w = do(r, http.MethodGet, "/api/v1/pay/query/FP-missing", bearer(t, "o-payer"), nil)
	if resp := decode(t, w, nil); resp.Code != response.CodeNotFound {
		t.Errorf("missing code = %d", resp.Code)
	}
}

func TestJSSDK(t *testing.T) {
	wx := &fakeWeChatService{}
	r := newEngine((&Wechat{WeChatService: wx}).RegisterRouter)

	w := do(r, http.MethodGet, "/api/v1/wechat/jssdk?url=https%3A%2F%2Fh5.example.com%2Fform%3Fid%3D7", "", nil)
	var conf types.JSSDKConfig
	if resp := decode(t, w, &conf); resp.Code != response.CodeOK || conf.Signature != "sig" {
		t.Fatalf("response = %+v, conf = %+v", resp, conf)
	}
	if wx.url != "https://h5.example.com/form?id=7" {
		t.Errorf("url = %q", wx.url)
	}

	wx.err = &service.ValidationError{Field: "url", Reason: "must be an absolute http(s) url"}
	w = do(r, http.MethodGet, "/api/v1/wechat/jssdk?url=bad", "", nil)
	if resp := decode(t, w, nil); resp.Code != response.CodeInvalidParams {
		t.Errorf("code = %d", resp.Code)
	}
}

func TestWxLogin(t *testing.T) {
	cfg := testConfig(t)
	wx := &fakeWeChatService{identity: &types.WxIdentity{OpenID: "o-user", UserInfo: &types.WxUserInfo{Nickname: "小明"}}}
	r := newEngine((&Auth{Config: cfg, WeChatService: wx}).RegisterRouter)

	w := do(r, http.MethodPost, "/api/v1/auth/wx-login", "", []byte(`{"code":"CODE"}`))
	var data types.WxLoginResponse
	if resp := decode(t, w, &data); resp.Code != response.CodeOK {
		t.Fatalf("response = %+v", resp)
	}
	claims, err := jwt.ParseToken([]byte(testSecret), jwt.TypeAccess, data.AccessToken)
	if err != nil || claims.OpenID != "o-user" {
		t.Fatalf("claims = %+v, err = %v", claims, err)
	}
	if data.ExpiresIn != cfg.Jwt.ExpireSeconds || data.UserInfo.Nickname != "小明" {
		t.Errorf("data = %+v", data)
	}

	w = do(r, http.MethodPost, "/api/v1/auth/wx-login", "", []byte(`{}`))
	if resp := decode(t, w, nil); resp.Code != response.CodeInvalidParams {
		t.Errorf("missing code = %d", resp.Code)
	}

	wx.err = &wxpay.APIError{ErrCode: 40029, ErrMsg: "invalid code"}
	w = do(r, http.MethodPost, "/api/v1/auth/wx-login", "", []byte(`{"code":"BAD"}`))
	if resp := decode(t, w, nil); resp.Code != response.CodeInvalidParams {
		t.Errorf("bad code = %d", resp.Code)
	}
}
