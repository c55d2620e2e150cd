package wxpay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func signedXML(t *testing.T, p Params) []byte {
	t.Helper()
	p[FieldSign] = Sign(p, testKey, SignTypeMD5)
	b, err := p.XML()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newTestClient(url string) *Client {
	return NewClient(Options{
		AppID:    "wx-app",
		MchID:    "1900000109",
		APIKey:   testKey,
		SignType: SignTypeMD5,
		BaseURL:  url,
		Timeout:  time.Second,
	})
}

func TestUnifiedOrderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathUnifiedOrder {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		req, err := VerifyNotification(body, testKey, SignTypeMD5)
		if err != nil {
			t.Errorf("request signature: %v", err)
		}
		if req["appid"] != "wx-app" || req["mch_id"] != "1900000109" || req["nonce_str"] == "" {
			t.Errorf("common fields missing: %v", req)
		}
		w.Write(signedXML(t, Params{
			"return_code": "SUCCESS",
			"result_code": "SUCCESS",
			"prepay_id":   "wx201410272009395522657a690389285100",
			"trade_type":  "JSAPI",
		}))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	req, resp, err := c.UnifiedOrder(context.Background(), Params{"out_trade_no": "FP1", "total_fee": "100"})
	if err != nil {
		t.Fatal(err)
	}
	if req[FieldSign] == "" {
		t.Fatal("signed request not returned")
	}
	if resp["prepay_id"] != "wx201410272009395522657a690389285100" {
		t.Fatalf("prepay_id = %q", resp["prepay_id"])
	}
}

func TestUnifiedOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(signedXML(t, Params{
			"return_code":  "SUCCESS",
			"result_code":  "FAIL",
			"err_code":     "ORDERPAID",
			"err_code_des": "该订单已支付",
		}))
	}))
	defer srv.Close()

	_, _, err := newTestClient(srv.URL).UnifiedOrder(context.Background(), Params{"out_trade_no": "FP1"})
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gwErr.Code() != "ORDERPAID" {
		t.Fatalf("code = %s", gwErr.Code())
	}
}

func TestReturnCodeFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<xml><return_code>FAIL</return_code><return_msg>签名错误</return_msg></xml>"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).OrderQuery(context.Background(), "FP1")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) || gwErr.ReturnMsg != "签名错误" {
		t.Fatalf("expected GatewayError, got %v", err)
	}
}

func TestResponseSignatureChecked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<xml><return_code>SUCCESS</return_code><result_code>SUCCESS</result_code><sign>BAD</sign></xml>"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CloseOrder(context.Background(), "FP1")
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestTransientFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).OrderQuery(context.Background(), "FP1"); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("5xx: expected ErrRequestFailed, got %v", err)
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	c := NewClient(Options{AppID: "wx-app", MchID: "1", APIKey: testKey, BaseURL: slow.URL, Timeout: 50 * time.Millisecond})
	if _, err := c.OrderQuery(context.Background(), "FP1"); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("timeout: expected ErrRequestFailed, got %v", err)
	}
}
