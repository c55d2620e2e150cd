package service

import (
	"Formpay/models"
	"context"
	"time"
)

// PaymentRepository 支付核心依赖的持久化接口，未找到时返回 gorm.ErrRecordNotFound
type PaymentRepository interface {
	CreateSubmission(ctx context.Context, sub *models.Submission) error
	FindSubmissionByPaymentID(ctx context.Context, paymentID string) (*models.Submission, error)
	FindSubmissionByID(ctx context.Context, id uint64) (*models.Submission, error)
	// UpdateSubmission 仅当当前状态属于 from 时更新，并在同一事务内追加 log（可为 nil）
	UpdateSubmission(ctx context.Context, id uint64, from []models.SubmissionStatus, patch map[string]any, log *models.PaymentLog) (bool, error)
	// AppendPaymentLog 按 (submission_id, dedup_key) 去重，重复时返回 false
	AppendPaymentLog(ctx context.Context, log *models.PaymentLog) (bool, error)
	ListPaymentLogs(ctx context.Context, submissionID uint64) ([]*models.PaymentLog, error)
	FindGoodsByIDs(ctx context.Context, issueID uint64, ids []uint64) ([]*models.Goods, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*models.Submission, error)
	DeleteSubmission(ctx context.Context, id uint64) error
}
