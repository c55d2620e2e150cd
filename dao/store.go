package dao

import (
	"Formpay/models"
	"context"
	"time"

	"gorm.io/gorm"
)

// PaymentStore 支付核心使用的仓储，组合 submission / payment_log / goods
type PaymentStore struct {
	db          *gorm.DB
	submissions *Submission
	logs        *PaymentLog
	goods       *Goods
}

func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{
		db:          db,
		submissions: NewSubmission(db),
		logs:        NewPaymentLog(db),
		goods:       NewGoods(db),
	}
}

func (s *PaymentStore) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	return s.submissions.Create(ctx, sub)
}

func (s *PaymentStore) FindSubmissionByPaymentID(ctx context.Context, paymentID string) (*models.Submission, error) {
	return s.submissions.FindByPaymentID(ctx, paymentID)
}

func (s *PaymentStore) FindSubmissionByID(ctx context.Context, id uint64) (*models.Submission, error) {
	return s.submissions.FindById(ctx, id)
}

// UpdateSubmission 状态 CAS 与审计日志在同一事务内；CAS 未命中时不写日志
func (s *PaymentStore) UpdateSubmission(ctx context.Context, id uint64, from []models.SubmissionStatus, patch map[string]any, log *models.PaymentLog) (bool, error) {
	var updated bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := NewSubmission(tx).UpdateStatus(ctx, id, from, patch)
		if err != nil || !ok {
			return err
		}
		updated = true
		if log == nil {
			return nil
		}
		log.SubmissionID = id
		_, err = NewPaymentLog(tx).Append(ctx, log)
		return err
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

func (s *PaymentStore) AppendPaymentLog(ctx context.Context, log *models.PaymentLog) (bool, error) {
	return s.logs.Append(ctx, log)
}

func (s *PaymentStore) ListPaymentLogs(ctx context.Context, submissionID uint64) ([]*models.PaymentLog, error) {
	return s.logs.ListBySubmission(ctx, submissionID)
}

func (s *PaymentStore) FindGoodsByIDs(ctx context.Context, issueID uint64, ids []uint64) ([]*models.Goods, error) {
	return s.goods.FindByIDs(ctx, issueID, ids)
}

func (s *PaymentStore) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*models.Submission, error) {
	return s.submissions.ListPendingBefore(ctx, before, limit)
}

// DeleteSubmission 管理端级联删除：先删流水再删提交
func (s *PaymentStore) DeleteSubmission(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := NewPaymentLog(tx).DeleteBySubmission(ctx, id); err != nil {
			return err
		}
		return NewSubmission(tx).Delete(ctx, id)
	})
}
