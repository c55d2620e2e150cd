package service

import (
	"Formpay/config"
	"Formpay/models"
	"Formpay/pkg/log"
	"Formpay/pkg/snowflake"
	"Formpay/pkg/utils"
	"Formpay/pkg/wxpay"
	"Formpay/types"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var _ IOrderService = (*OrderService)(nil)

type IOrderService interface {
	CreateOrder(ctx context.Context, in *CreateOrderInput) (*CreateOrderResult, error)
}

type LineItem struct {
	GoodsID  uint64
	Quantity int
}

type CreateOrderInput struct {
	IssueID  uint64
	OpenID   string
	ClientIP string
	UserInfo map[string]any
	FormData map[string]any
	Items    []LineItem
}

type CreateOrderResult struct {
	Submission *models.Submission
	PrepayID   string
	PayParams  *types.PayParams
}

// goodsSnapshot 下单时的商品快照，写入 form_data._goods
type goodsSnapshot struct {
	GoodsID  uint64 `json:"goods_id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
	Subtotal string `json:"subtotal"`
}

type OrderService struct {
	Config       *config.Config
	Repo         PaymentRepository
	Gateway      Gateway
	StateMachine *StateMachine
}

// CreateOrder 服务端计价 → 落 PENDING → 统一下单 → 写 CREATE 流水
func (o *OrderService) CreateOrder(ctx context.Context, in *CreateOrderInput) (*CreateOrderResult, error) {
	pay := o.Config.WechatPayConfig

	items, err := mergeItems(in)
	if err != nil {
		return nil, err
	}
	total, snapshot, err := o.price(ctx, in.IssueID, items)
	if err != nil {
		return nil, err
	}

	formData := make(map[string]any, len(in.FormData)+2)
	for k, v := range in.FormData {
		formData[k] = v
	}
	if client, ok := formData["amount"]; ok {
		log.L.Info("client supplied amount ignored", zap.Any("client_amount", client), zap.String("total", total.StringFixed(2)))
		delete(formData, "amount")
	}
	formData["_goods"] = snapshot
	formData["_total"] = total.StringFixed(2)

	now := time.Now()
	expiredAt := now.Add(pay.OrderTTL())
	sub := &models.Submission{
		PaymentID: utils.GenerateOutTradeNo(pay.OutTradeNoPrefix, now, snowflake.GenID()),
		IssueID:   in.IssueID,
		FormData:  toJSON(formData),
		Amount:    total,
		Currency:  pay.Currency,
		OpenID:    in.OpenID,
		Status:    models.SubmissionPending,
		ExpiredAt: &expiredAt,
	}
	if len(in.UserInfo) > 0 {
		sub.UserInfo = toJSON(in.UserInfo)
	}
	if err := o.Repo.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	gwCtx, cancel := context.WithTimeout(ctx, pay.Timeout())
	defer cancel()
	res, err := o.Gateway.Prepay(gwCtx, &PrepayOrder{
		PaymentID:   sub.PaymentID,
		Description: describe(pay.Body, snapshot),
		OpenID:      in.OpenID,
		ClientIP:    in.ClientIP,
		TotalFee:    utils.ToFen(total),
		Currency:    pay.Currency,
		ExpireAt:    expiredAt,
	})

	// 网关已受理，后续落库不随请求取消
	persistCtx := context.WithoutCancel(ctx)

	var gwErr *wxpay.GatewayError
	switch {
	case errors.As(err, &gwErr):
		ordersTotal.WithLabelValues("rejected").Inc()
		log.L.Warn("unified order rejected",
			zap.String("payment_id", sub.PaymentID),
			zap.String("code", gwErr.Code()),
			zap.String("msg", gwErr.Message()))
		patch := map[string]any{"wx_pay_info": toJSON(rejection(res, gwErr))}
		if _, terr := o.StateMachine.Transition(persistCtx, sub, models.SubmissionFailed, patch, nil); terr != nil {
			log.L.Error("mark submission failed", zap.String("payment_id", sub.PaymentID), zap.Error(terr))
		}
		return nil, gwErr
	case err != nil:
		ordersTotal.WithLabelValues("unavailable").Inc()
		log.L.Warn("unified order outcome unknown, submission left pending",
			zap.String("payment_id", sub.PaymentID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	created, err := o.Repo.AppendPaymentLog(persistCtx, &models.PaymentLog{
		SubmissionID: sub.ID,
		Type:         models.PaymentLogCreate,
		DedupKey:     "create",
		Content:      toJSON(map[string]any{"request": res.Request, "prepay_id": res.PrepayID}),
	})
	if err != nil {
		return nil, fmt.Errorf("append create log: %w", err)
	}
	if !created {
		log.L.Warn("duplicate create log ignored", zap.String("payment_id", sub.PaymentID))
	}
	if _, err := o.Repo.UpdateSubmission(persistCtx, sub.ID, []models.SubmissionStatus{models.SubmissionPending},
		map[string]any{"wx_pay_info": toJSON(res.Response)}, nil); err != nil {
		log.L.Warn("store prepay response", zap.String("payment_id", sub.PaymentID), zap.Error(err))
	}

	ordersTotal.WithLabelValues("created").Inc()
	log.L.Info("unified order created",
		zap.String("payment_id", sub.PaymentID),
		zap.String("amount", total.StringFixed(2)),
		zap.String("prepay_id", res.PrepayID))
	return &CreateOrderResult{Submission: sub, PrepayID: res.PrepayID, PayParams: res.PayParams}, nil
}

// mergeItems 校验并合并重复商品
func mergeItems(in *CreateOrderInput) ([]LineItem, error) {
	if in.IssueID == 0 {
		return nil, invalid("issue_id", "required")
	}
	if in.OpenID == "" {
		return nil, invalid("openid", "required")
	}
	if len(in.Items) == 0 {
		return nil, invalid("items", "at least one item is required")
	}
	merged := make([]LineItem, 0, len(in.Items))
	index := make(map[uint64]int, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, invalid("items", "quantity of goods %d must be at least 1", it.GoodsID)
		}
		if i, ok := index[it.GoodsID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.GoodsID] = len(merged)
		merged = append(merged, it)
	}
	return merged, nil
}

// price 以数据库价格计算总价，并检查上架状态与库存
func (o *OrderService) price(ctx context.Context, issueID uint64, items []LineItem) (decimal.Decimal, []goodsSnapshot, error) {
	ids := make([]uint64, len(items))
	for i, it := range items {
		ids[i] = it.GoodsID
	}
	goods, err := o.Repo.FindGoodsByIDs(ctx, issueID, ids)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("load goods: %w", err)
	}
	byID := make(map[uint64]*models.Goods, len(goods))
	for _, g := range goods {
		if g.IssueID == issueID {
			byID[g.ID] = g
		}
	}

	total := decimal.Zero
	snapshot := make([]goodsSnapshot, 0, len(items))
	for _, it := range items {
		g, ok := byID[it.GoodsID]
		if !ok {
			return decimal.Zero, nil, invalid("items", "goods %d not found", it.GoodsID)
		}
		if g.Status != models.GoodsOnSale {
			return decimal.Zero, nil, invalid("items", "goods %d is not on sale", it.GoodsID)
		}
		if uint64(it.Quantity) > uint64(g.Stock) {
			return decimal.Zero, nil, invalid("items", "goods %d out of stock", it.GoodsID)
		}
		subtotal := g.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(subtotal)
		snapshot = append(snapshot, goodsSnapshot{
			GoodsID:  g.ID,
			Name:     g.Name,
			Price:    g.Price.StringFixed(2),
			Quantity: it.Quantity,
			Subtotal: subtotal.StringFixed(2),
		})
	}
	if !total.IsPositive() || utils.ToFen(total) <= 0 {
		return decimal.Zero, nil, invalid("items", "total must be positive")
	}
	return total, snapshot, nil
}

// describe 单商品用商品名，多商品用配置的默认描述
func describe(fallback string, snapshot []goodsSnapshot) string {
	desc := fallback
	if len(snapshot) == 1 && snapshot[0].Name != "" {
		desc = snapshot[0].Name
	}
	if r := []rune(desc); len(r) > 40 {
		desc = string(r[:40])
	}
	return desc
}

func rejection(res *PrepayResult, gwErr *wxpay.GatewayError) map[string]any {
	if res != nil && res.Response != nil {
		return res.Response
	}
	return map[string]any{
		"return_code":  gwErr.ReturnCode,
		"return_msg":   gwErr.ReturnMsg,
		"err_code":     gwErr.ErrCode,
		"err_code_des": gwErr.ErrCodeDes,
	}
}

func toJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		log.L.Error("marshal json", zap.Error(err))
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}
