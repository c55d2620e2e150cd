package dao

import (
	"Formpay/models"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentLog struct {
	Repo[models.PaymentLog]
}

func NewPaymentLog(db *gorm.DB) *PaymentLog {
	return &PaymentLog{
		Repo: NewRepo[models.PaymentLog](db),
	}
}

// Append 依赖 (submission_id, dedup_key) 唯一索引去重，重复写入返回 false。
// MySQL 下生成 ON DUPLICATE KEY UPDATE id=id，重复时影响行数为 0，DSN 不能开启 clientFoundRows
func (p *PaymentLog) Append(ctx context.Context, log *models.PaymentLog) (bool, error) {
	res := p.Db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(log)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (p *PaymentLog) ListBySubmission(ctx context.Context, submissionID uint64) ([]*models.PaymentLog, error) {
	items := make([]*models.PaymentLog, 0)
	err := p.Db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (p *PaymentLog) DeleteBySubmission(ctx context.Context, submissionID uint64) error {
	return p.Db.WithContext(ctx).Where("submission_id = ?", submissionID).Delete(&models.PaymentLog{}).Error
}
