package service

import (
	"Formpay/models"
	"Formpay/pkg/log"
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var _ ISubmissionService = (*SubmissionService)(nil)

type ISubmissionService interface {
	Get(ctx context.Context, paymentID string) (*models.Submission, error)
	GetByID(ctx context.Context, id uint64) (*models.Submission, error)
	Logs(ctx context.Context, id uint64) ([]*models.PaymentLog, error)
	Delete(ctx context.Context, id uint64) error
}

type SubmissionService struct {
	Repo PaymentRepository
}

func (s *SubmissionService) Get(ctx context.Context, paymentID string) (*models.Submission, error) {
	sub, err := s.Repo.FindSubmissionByPaymentID(ctx, paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	return sub, err
}

func (s *SubmissionService) GetByID(ctx context.Context, id uint64) (*models.Submission, error) {
	sub, err := s.Repo.FindSubmissionByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	return sub, err
}

func (s *SubmissionService) Logs(ctx context.Context, id uint64) ([]*models.PaymentLog, error) {
	return s.Repo.ListPaymentLogs(ctx, id)
}

// Delete 管理端删除，连同支付流水
func (s *SubmissionService) Delete(ctx context.Context, id uint64) error {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteSubmission(ctx, id); err != nil {
		return err
	}
	log.L.Info("submission deleted",
		zap.Uint64("id", id),
		zap.String("payment_id", sub.PaymentID),
		zap.String("status", string(sub.Status)))
	return nil
}
