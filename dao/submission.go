package dao

import (
	"Formpay/models"
	"context"
	"time"

	"gorm.io/gorm"
)

type Submission struct {
	Repo[models.Submission]
}

func NewSubmission(db *gorm.DB) *Submission {
	return &Submission{
		Repo: NewRepo[models.Submission](db),
	}
}

func (s *Submission) FindByPaymentID(ctx context.Context, paymentID string) (*models.Submission, error) {
	return s.FindByWhere(ctx, "payment_id = ?", paymentID)
}

// UpdateStatus 条件更新：只有当前状态在 from 中时才生效，返回是否命中
func (s *Submission) UpdateStatus(ctx context.Context, id uint64, from []models.SubmissionStatus, patch map[string]any) (bool, error) {
	res := s.Db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(patch)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListPendingBefore 按创建时间取最早的一批待支付订单
func (s *Submission) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*models.Submission, error) {
	items := make([]*models.Submission, 0, limit)
	err := s.Db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.SubmissionPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (s *Submission) Delete(ctx context.Context, id uint64) error {
	return s.Db.WithContext(ctx).Where("id = ?", id).Delete(&models.Submission{}).Error
}
