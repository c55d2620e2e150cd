package service

import (
	"Formpay/config"
	"Formpay/models"
	"Formpay/pkg/log"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SweepLocker 集群内互斥，拿不到锁返回 ok=false
type SweepLocker interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

type SweepReport struct {
	Skipped  bool  `json:"skipped"`
	Scanned  int   `json:"scanned"`
	Paid     int64 `json:"paid"`
	Failed   int64 `json:"failed"`
	Closed   int64 `json:"closed"`
	Pending  int64 `json:"pending"`
	Errors   int64 `json:"errors"`
	Duration time.Duration
}

// Reconciler 对超时未收到回调的 PENDING 订单主动查单
type Reconciler struct {
	Config       *config.Config
	Repo         PaymentRepository
	Gateway      Gateway
	Processor    *NotificationProcessor
	StateMachine *StateMachine
	Lock         SweepLocker
}

func (r *Reconciler) Sweep(ctx context.Context) (*SweepReport, error) {
	start := time.Now()
	report := &SweepReport{}

	release, ok, err := r.Lock.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire reconcile lock: %w", err)
	}
	if !ok {
		report.Skipped = true
		return report, nil
	}
	defer release()

	conf := r.Config.Reconcile
	subs, err := r.Repo.ListStalePending(ctx, start.Add(-conf.StaleAfter()), conf.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list stale submissions: %w", err)
	}
	report.Scanned = len(subs)

	p := pool.New().WithMaxGoroutines(conf.Concurrency)
	for _, sub := range subs {
		p.Go(func() {
			status, err := r.reconcile(ctx, sub)
			if err != nil {
				atomic.AddInt64(&report.Errors, 1)
				reconcileTotal.WithLabelValues("error").Inc()
				log.L.Warn("reconcile submission failed", zap.String("payment_id", sub.PaymentID), zap.Error(err))
				return
			}
			reconcileTotal.WithLabelValues(string(status)).Inc()
			switch status {
			case models.SubmissionPaid:
				atomic.AddInt64(&report.Paid, 1)
			case models.SubmissionFailed:
				atomic.AddInt64(&report.Failed, 1)
			case models.SubmissionClosed:
				atomic.AddInt64(&report.Closed, 1)
			default:
				atomic.AddInt64(&report.Pending, 1)
			}
		})
	}
	p.Wait()

	report.Duration = time.Since(start)
	log.L.Info("reconcile sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int64("paid", report.Paid),
		zap.Int64("failed", report.Failed),
		zap.Int64("closed", report.Closed),
		zap.Int64("pending", report.Pending),
		zap.Int64("errors", report.Errors),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// ReconcileOne 查询接口 sync=1 时按单号同步一次
func (r *Reconciler) ReconcileOne(ctx context.Context, paymentID string) (*models.Submission, error) {
	sub, err := r.Repo.FindSubmissionByPaymentID(ctx, paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionPending {
		return sub, nil
	}
	if _, err := r.reconcile(ctx, sub); err != nil {
		return nil, err
	}
	return r.Repo.FindSubmissionByPaymentID(ctx, paymentID)
}

func (r *Reconciler) reconcile(ctx context.Context, sub *models.Submission) (models.SubmissionStatus, error) {
	qctx, cancel := context.WithTimeout(ctx, r.Config.WechatPayConfig.Timeout())
	defer cancel()
	tx, err := r.Gateway.Query(qctx, sub.PaymentID)
	if err != nil {
		return "", err
	}
	if tx.PaymentID == "" {
		tx.PaymentID = sub.PaymentID
	}

	switch tx.State {
	case TradeSuccess, TradePayError, TradeRevoked:
		outcome, err := r.Processor.Apply(ctx, tx.notification(SourceQuery))
		if err != nil {
			return "", err
		}
		switch outcome {
		case OutcomePaid, OutcomeDuplicate:
			return models.SubmissionPaid, nil
		case OutcomeFailed:
			return models.SubmissionFailed, nil
		}
		return sub.Status, nil
	case TradeClosed:
		return r.close(ctx, sub, tx, false)
	case TradeNotPay, TradeNotExist:
		if !sub.Expired(time.Now()) {
			return sub.Status, nil
		}
		return r.close(ctx, sub, tx, tx.State == TradeNotPay)
	}
	// USERPAYING、REFUND 等留待下一轮或人工处理
	return sub.Status, nil
}

// close 先关闭网关订单，防止关闭后仍被支付，再置本地 CLOSED
func (r *Reconciler) close(ctx context.Context, sub *models.Submission, tx *GatewayTransaction, remote bool) (models.SubmissionStatus, error) {
	if remote {
		cctx, cancel := context.WithTimeout(ctx, r.Config.WechatPayConfig.Timeout())
		defer cancel()
		if err := r.Gateway.Close(cctx, sub.PaymentID); err != nil {
			return "", fmt.Errorf("close gateway order: %w", err)
		}
	}
	ok, err := r.StateMachine.Transition(ctx, sub, models.SubmissionClosed,
		map[string]any{"wx_pay_info": toJSON(tx.Raw)},
		&models.PaymentLog{Type: models.PaymentLogClose, DedupKey: "close", Content: toJSON(map[string]any{
			"trade_state": string(tx.State),
			"query":       tx.Raw,
		})})
	if err != nil {
		return "", err
	}
	if !ok {
		// 并发下已被回调处理
		return "", ErrConcurrentUpdate
	}
	log.L.Info("submission closed", zap.String("payment_id", sub.PaymentID), zap.String("trade_state", string(tx.State)))
	return models.SubmissionClosed, nil
}
