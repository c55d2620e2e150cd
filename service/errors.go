package service

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable 网关超时或 5xx，订单保持 PENDING，可重试
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAmountMismatch     = errors.New("notified amount does not match submission")
	ErrConcurrentUpdate   = errors.New("submission changed concurrently")
)

// ValidationError 下单参数校验失败，不会创建任何记录
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
