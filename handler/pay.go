package handler

import (
	"Formpay/config"
	"Formpay/middleware"
	"Formpay/models"
	"Formpay/pkg/context"
	"Formpay/pkg/log"
	"Formpay/pkg/response"
	"Formpay/pkg/utils"
	"Formpay/pkg/wxpay"
	"Formpay/service"
	"Formpay/types"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
	"go.uber.org/zap"
)

// 回调报文上限
const maxNotifyBody = 64 << 10

type Pay struct {
	Config            *config.Config
	OrderService      service.IOrderService
	SubmissionService service.ISubmissionService
	Processor         *service.NotificationProcessor
	Reconciler        *service.Reconciler
	Gateway           service.Gateway
	HashID            *utils.HashID
}

func (p *Pay) RegisterRouter(r gin.IRouter) {
	authorize := middleware.Auth([]byte(p.Config.Jwt.Secret), p.Config.Jwt.Expire())
	pay := r.Group("/v1/pay")
	{
		pay.POST("/prepay", authorize, context.Wrap(p.Prepay))
		pay.POST("/notify", p.Notify)      // v2 支付回调
		pay.POST("/notify/v3", p.NotifyV3) // v3 支付回调
		pay.GET("/query/:payment_id", authorize, context.Wrap(p.Query))
	}
}

// Prepay 提交表单并统一下单，金额以服务端计价为准
func (p *Pay) Prepay(c *gin.Context) error {
	var req types.PrepayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(response.CodeInvalidParams, "参数错误: "+err.Error())
	}
	openID, err := context.GetOpenID(c)
	if err != nil {
		return response.NewError(response.CodeUnauthorized, err.Error())
	}

	items := make([]service.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.LineItem{GoodsID: it.GoodsID, Quantity: it.Quantity})
	}
	res, err := p.OrderService.CreateOrder(c.Request.Context(), &service.CreateOrderInput{
		IssueID:  req.IssueID,
		OpenID:   openID,
		ClientIP: c.ClientIP(),
		UserInfo: req.UserInfo,
		FormData: req.FormData,
		Items:    items,
	})
	if err != nil {
		return bizError(err)
	}

	response.Success(c, &types.PrepayResponse{
		SubmissionID: p.HashID.Encode(res.Submission.ID),
		PaymentID:    res.Submission.PaymentID,
		Amount:       res.Submission.Amount.StringFixed(2),
		PayParams:    res.PayParams,
	})
	return nil
}

// Notify v2 回调，无论成败都以 XML 应答
func (p *Pay) Notify(c *gin.Context) {
	var ack *wxpay.Ack
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotifyBody))
	if err != nil {
		log.L.Warn("read notification body", zap.Error(err))
		ack = wxpay.FailAck("read body failed")
	} else {
		ack = p.Processor.Handle(c.Request.Context(), body)
	}
	c.Data(http.StatusOK, "text/xml; charset=utf-8", ack.XML())
}

// NotifyV3 v3 回调，由 SDK 验签解密。失败返回非 2xx，网关会重试
func (p *Pay) NotifyV3(c *gin.Context) {
	v3, ok := p.Gateway.(*service.V3Gateway)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": wxpay.Fail, "message": "v3 notify disabled"})
		return
	}

	ctx := c.Request.Context()
	transaction := new(payments.Transaction)
	if _, err := v3.NotifyHandler().ParseNotifyRequest(ctx, c.Request, transaction); err != nil {
		log.L.Warn("security: v3 notification verify or decrypt failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"code": wxpay.Fail, "message": "signature invalid"})
		return
	}

	n, err := service.NotificationFromV3(transaction)
	if err != nil {
		log.L.Warn("v3 notification malformed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"code": wxpay.Fail, "message": "malformed body"})
		return
	}
	if n != nil {
		if _, err := p.Processor.Apply(ctx, n); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, service.ErrSubmissionNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"code": wxpay.Fail, "message": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"code": wxpay.Success, "message": "成功"})
}

// Query 查询本人订单，sync=1 时对待支付订单主动查单
func (p *Pay) Query(c *gin.Context) error {
	ctx := c.Request.Context()
	paymentID := c.Param("payment_id")
	openID, err := context.GetOpenID(c)
	if err != nil {
		return response.NewError(response.CodeUnauthorized, err.Error())
	}

	sub, err := p.SubmissionService.Get(ctx, paymentID)
	if err != nil {
		return bizError(err)
	}
	if sub.OpenID != openID {
		return response.NewError(response.CodeNotFound, "订单不存在")
	}

	if c.Query("sync") == "1" && sub.Status == models.SubmissionPending {
		synced, err := p.Reconciler.ReconcileOne(ctx, paymentID)
		if err != nil {
			// 查单失败仍返回本地状态
			log.L.Warn("sync query failed", zap.String("payment_id", paymentID), zap.Error(err))
		} else {
			sub = synced
		}
	}

	response.Success(c, p.view(sub))
	return nil
}

func (p *Pay) view(sub *models.Submission) *types.SubmissionView {
	v := &types.SubmissionView{
		SubmissionID: p.HashID.Encode(sub.ID),
		PaymentID:    sub.PaymentID,
		Status:       string(sub.Status),
		Amount:       sub.Amount.StringFixed(2),
		Currency:     sub.Currency,
		TradeNo:      sub.TradeNo,
		CreatedAt:    sub.CreatedAt.Unix(),
	}
	if sub.PaidAt != nil {
		v.PaidAt = sub.PaidAt.Unix()
	}
	return v
}
