package service

import (
	"Formpay/models"
	"context"
	"fmt"
)

// transitions 允许的状态迁移；PAID 之后的退款流转不在本服务处理
var transitions = map[models.SubmissionStatus][]models.SubmissionStatus{
	models.SubmissionPending:   {models.SubmissionPaid, models.SubmissionFailed, models.SubmissionClosed},
	models.SubmissionFailed:    {models.SubmissionPaid},
	models.SubmissionPaid:      {models.SubmissionRefunding},
	models.SubmissionRefunding: {models.SubmissionRefunded},
}

func CanTransition(from, to models.SubmissionStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StateMachine 所有状态变更都是以当前状态为条件的 CAS 更新
type StateMachine struct {
	Repo PaymentRepository
}

// Transition 以 sub.Status 为期望状态迁移到 to。返回 false 表示状态已被并发修改，调用方需重新读取
func (m *StateMachine) Transition(ctx context.Context, sub *models.Submission, to models.SubmissionStatus, patch map[string]any, log *models.PaymentLog) (bool, error) {
	if !CanTransition(sub.Status, to) {
		return false, fmt.Errorf("illegal transition %s -> %s", sub.Status, to)
	}
	fields := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		fields[k] = v
	}
	fields["status"] = to

	ok, err := m.Repo.UpdateSubmission(ctx, sub.ID, []models.SubmissionStatus{sub.Status}, fields, log)
	if err != nil || !ok {
		return false, err
	}
	sub.Status = to
	return true, nil
}
