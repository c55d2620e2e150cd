package service

import (
	"Formpay/models"
	"Formpay/pkg/log"
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// EventPublisher 下游履约消息，key 为 payment_id
type EventPublisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// NopPublisher 未配置消息队列时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error {
	return nil
}

type PaidEvent struct {
	SubmissionID uint64    `json:"submission_id"`
	PaymentID    string    `json:"payment_id"`
	IssueID      uint64    `json:"issue_id"`
	OpenID       string    `json:"openid"`
	TradeNo      string    `json:"trade_no"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	PaidAt       time.Time `json:"paid_at"`
}

// publishPaid 投递失败只记日志，不影响回调应答
func publishPaid(ctx context.Context, events EventPublisher, sub *models.Submission) {
	if events == nil {
		return
	}
	ev := PaidEvent{
		SubmissionID: sub.ID,
		PaymentID:    sub.PaymentID,
		IssueID:      sub.IssueID,
		OpenID:       sub.OpenID,
		TradeNo:      sub.TradeNo,
		Amount:       sub.Amount.StringFixed(2),
		Currency:     sub.Currency,
	}
	if sub.PaidAt != nil {
		ev.PaidAt = *sub.PaidAt
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.L.Error("marshal paid event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := events.Publish(ctx, sub.PaymentID, body); err != nil {
		log.L.Warn("publish paid event failed", zap.String("payment_id", sub.PaymentID), zap.Error(err))
	}
}
