package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestGenerateOutTradeNo(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.Local)
	no := GenerateOutTradeNo("FP", now, 1765432109876543210)
	if no != "FP202403091765432109876543210" {
		t.Fatalf("out_trade_no = %s", no)
	}
	if len(no) > 32 {
		t.Fatalf("out_trade_no too long: %d", len(no))
	}
}

func TestToFen(t *testing.T) {
	cases := map[string]int64{"0.01": 1, "1": 100, "12.34": 1234, "0.015": 2}
	for in, want := range cases {
		if got := ToFen(decimal.RequireFromString(in)); got != want {
			t.Errorf("ToFen(%s) = %d, want %d", in, got, want)
		}
	}
	if !FromFen(1234).Equal(decimal.RequireFromString("12.34")) {
		t.Fatal("FromFen")
	}
}

func TestHashID(t *testing.T) {
	h, err := NewHashID("formpay")
	if err != nil {
		t.Fatal(err)
	}
	s := h.Encode(42)
	if len(s) < 12 {
		t.Fatalf("hash id too short: %s", s)
	}
	id, err := h.Decode(s)
	if err != nil || id != 42 {
		t.Fatalf("decode = %d, %v", id, err)
	}
	if _, err := h.Decode("!!"); err == nil {
		t.Fatal("expected decode error")
	}
}
