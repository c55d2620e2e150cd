package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var fenPerYuan = decimal.NewFromInt(100)

// GenerateOutTradeNo 前缀 + 日期(yyyymmdd) + 全局唯一 id，不超过 32 位
func GenerateOutTradeNo(prefix string, now time.Time, id int64) string {
	return fmt.Sprintf("%s%s%d", prefix, now.Format("20060102"), id)
}

// ToFen 元转分，四舍五入到分
func ToFen(amount decimal.Decimal) int64 {
	return amount.Mul(fenPerYuan).Round(0).IntPart()
}

func FromFen(fen int64) decimal.Decimal {
	return decimal.NewFromInt(fen).Div(fenPerYuan)
}
