package handler

import (
	"Formpay/pkg/response"
	"Formpay/pkg/wxpay"
	"Formpay/service"
	"Formpay/types"
	base "context"
	"errors"
)

// bizError 把服务层错误映射为对外错误码，其余错误交给 Wrap 记录并返回 500
func bizError(err error) error {
	var verr *service.ValidationError
	var gwErr *wxpay.GatewayError
	var apiErr *wxpay.APIError
	switch {
	case errors.As(err, &verr):
		return response.NewError(response.CodeInvalidParams, verr.Error())
	case errors.As(err, &gwErr):
		return &response.BizError{
			Code: response.CodePayRejected,
			Msg:  gwErr.Message(),
			Data: types.GatewayRejection{Reason: gwErr.Code(), Message: gwErr.Message()},
		}
	case errors.As(err, &apiErr):
		return response.NewError(response.CodeInvalidParams, apiErr.ErrMsg)
	case errors.Is(err, service.ErrSubmissionNotFound):
		return response.NewError(response.CodeNotFound, "订单不存在")
	case errors.Is(err, service.ErrGatewayUnavailable),
		errors.Is(err, wxpay.ErrRequestFailed),
		errors.Is(err, base.DeadlineExceeded):
		return response.NewError(response.CodeGatewayTimeout, "支付网关繁忙，请稍后重试")
	}
	return err
}
