package service

import (
	"Formpay/config"
	"Formpay/models"
	"Formpay/pkg/log"
	"Formpay/pkg/utils"
	"Formpay/pkg/wxpay"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	SourceNotify = models.PaymentLogNotify
	SourceQuery  = models.PaymentLogQuery
)

const (
	maxCASAttempts       = 3
	unknownEscalateAfter = 3
	maxTrackedUnknown    = 10000
)

type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomeFailed    Outcome = "failed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Notification 与协议无关的支付结果，来自回调或主动查单
type Notification struct {
	PaymentID     string
	TransactionID string
	OpenID        string
	Success       bool
	TotalFee      int64 // 分
	PaidAt        *time.Time
	Source        models.PaymentLogType
	Raw           map[string]any
}

func (t *GatewayTransaction) notification(source models.PaymentLogType) *Notification {
	return &Notification{
		PaymentID:     t.PaymentID,
		TransactionID: t.TransactionID,
		OpenID:        t.OpenID,
		Success:       t.State == TradeSuccess,
		TotalFee:      t.TotalFee,
		PaidAt:        t.PaidAt,
		Source:        source,
		Raw:           t.Raw,
	}
}

func (n *Notification) dedupKey() string {
	prefix := strings.ToLower(string(n.Source))
	if n.Success {
		return prefix + ":" + n.TransactionID
	}
	return prefix + ":fail:" + n.PaymentID
}

type NotificationProcessor struct {
	Config       *config.Config
	Repo         PaymentRepository
	StateMachine *StateMachine
	Events       EventPublisher

	// 查无此单的重复投递计数
	unknown cmap.ConcurrentMap[string, int]
}

func NewNotificationProcessor(cfg *config.Config, repo PaymentRepository, sm *StateMachine, events EventPublisher) *NotificationProcessor {
	return &NotificationProcessor{
		Config:       cfg,
		Repo:         repo,
		StateMachine: sm,
		Events:       events,
		unknown:      cmap.New[int](),
	}
}

// Handle v2 XML 回调：验签 → 应用 → 应答。任何错误都返回格式正确的 FAIL 应答
func (p *NotificationProcessor) Handle(ctx context.Context, raw []byte) (ack *wxpay.Ack) {
	defer func() {
		if r := recover(); r != nil {
			log.L.Error("notification panic", zap.String("trace", utils.PanicTrace(r)))
			ack = wxpay.FailAck("internal error")
		}
	}()

	pay := p.Config.WechatPayConfig
	params, err := wxpay.VerifyNotification(raw, pay.APIKey, wxpay.SignType(pay.SignType))
	if err != nil {
		notificationsTotal.WithLabelValues(string(SourceNotify), "rejected").Inc()
		if errors.Is(err, wxpay.ErrSignatureInvalid) {
			log.L.Warn("security: notification signature invalid", zap.Int("body_size", len(raw)), zap.Error(err))
			return wxpay.FailAck("signature invalid")
		}
		log.L.Warn("notification malformed", zap.Error(err))
		return wxpay.FailAck("malformed body")
	}

	n, err := NotificationFromParams(params)
	if err != nil {
		notificationsTotal.WithLabelValues(string(SourceNotify), "rejected").Inc()
		log.L.Warn("notification malformed", zap.Error(err))
		return wxpay.FailAck("malformed body")
	}

	if _, err := p.Apply(ctx, n); err != nil {
		return wxpay.FailAck(ackMessage(err))
	}
	return wxpay.SuccessAck()
}

// Apply 幂等地把支付结果应用到 Submission
func (p *NotificationProcessor) Apply(ctx context.Context, n *Notification) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.L.Error("apply notification panic", zap.String("payment_id", n.PaymentID), zap.String("trace", utils.PanicTrace(r)))
			outcome, err = "", fmt.Errorf("apply notification: panic: %v", r)
		}
		result := string(outcome)
		if err != nil {
			result = "error"
		}
		notificationsTotal.WithLabelValues(string(n.Source), result).Inc()
	}()

	sub, err := p.lookup(ctx, n.PaymentID)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		outcome, done, err := p.applyOnce(ctx, sub, n)
		if err != nil {
			return "", err
		}
		if done {
			return outcome, nil
		}
		// CAS 未命中，重新读取后再判断
		if sub, err = p.Repo.FindSubmissionByPaymentID(ctx, n.PaymentID); err != nil {
			return "", err
		}
	}
	return "", ErrConcurrentUpdate
}

func (p *NotificationProcessor) applyOnce(ctx context.Context, sub *models.Submission, n *Notification) (Outcome, bool, error) {
	fields := []zap.Field{
		zap.String("payment_id", sub.PaymentID),
		zap.String("status", string(sub.Status)),
		zap.String("source", string(n.Source)),
	}

	if !n.Success {
		// 只有待支付的订单会被置为失败，已支付不回退
		if sub.Status != models.SubmissionPending {
			log.L.Info("failure result ignored", fields...)
			return OutcomeIgnored, true, nil
		}
		ok, err := p.StateMachine.Transition(ctx, sub, models.SubmissionFailed,
			map[string]any{"wx_pay_info": toJSON(n.Raw)},
			&models.PaymentLog{Type: n.Source, DedupKey: n.dedupKey(), Content: toJSON(n.Raw)})
		if err != nil || !ok {
			return "", false, err
		}
		log.L.Info("submission failed", fields...)
		return OutcomeFailed, true, nil
	}

	if sub.Status == models.SubmissionPaid {
		if sub.TradeNo != "" && sub.TradeNo != n.TransactionID {
			log.L.Error("paid submission notified with another transaction",
				append(fields, zap.String("trade_no", sub.TradeNo), zap.String("transaction_id", n.TransactionID))...)
		}
		return OutcomeDuplicate, true, nil
	}
	if want := utils.ToFen(sub.Amount); want != n.TotalFee {
		log.L.Error("notification amount mismatch",
			append(fields, zap.String("expected", sub.Amount.StringFixed(2)), zap.String("notified", utils.FromFen(n.TotalFee).StringFixed(2)))...)
		return "", true, ErrAmountMismatch
	}
	if !CanTransition(sub.Status, models.SubmissionPaid) {
		log.L.Error("success result for submission that cannot be paid", fields...)
		return OutcomeIgnored, true, nil
	}

	paidAt := time.Now()
	if n.PaidAt != nil {
		paidAt = *n.PaidAt
	}
	ok, err := p.StateMachine.Transition(ctx, sub, models.SubmissionPaid,
		map[string]any{
			"trade_no":    n.TransactionID,
			"paid_at":     paidAt,
			"wx_pay_info": toJSON(n.Raw),
		},
		&models.PaymentLog{Type: n.Source, DedupKey: n.dedupKey(), Content: toJSON(n.Raw)})
	if err != nil || !ok {
		return "", false, err
	}
	sub.TradeNo = n.TransactionID
	sub.PaidAt = &paidAt

	log.L.Info("submission paid", append(fields, zap.String("transaction_id", n.TransactionID))...)
	publishPaid(ctx, p.Events, sub)
	return OutcomePaid, true, nil
}

// lookup 回调可能早于下单事务提交，有限次退避重试
func (p *NotificationProcessor) lookup(ctx context.Context, paymentID string) (*models.Submission, error) {
	attempts := p.Config.Notify.LookupAttempts
	backoff := p.Config.Notify.LookupBackoff()
	for i := 1; ; i++ {
		sub, err := p.Repo.FindSubmissionByPaymentID(ctx, paymentID)
		if err == nil {
			p.unknown.Remove(paymentID)
			return sub, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if i >= attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff * time.Duration(i)):
		}
	}

	if p.unknown.Count() > maxTrackedUnknown {
		p.unknown.Clear()
	}
	count := p.unknown.Upsert(paymentID, 1, func(exist bool, old int, n int) int {
		if exist {
			return old + n
		}
		return n
	})
	if count >= unknownEscalateAfter {
		log.L.Error("notification for unknown submission", zap.String("payment_id", paymentID), zap.Int("deliveries", count))
	} else {
		log.L.Warn("notification for unknown submission", zap.String("payment_id", paymentID), zap.Int("deliveries", count))
	}
	return nil, ErrSubmissionNotFound
}

func ackMessage(err error) string {
	switch {
	case errors.Is(err, ErrSubmissionNotFound):
		return "order not found"
	case errors.Is(err, ErrAmountMismatch):
		return "amount mismatch"
	default:
		return "internal error"
	}
}
