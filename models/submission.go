package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "PENDING"
	SubmissionPaid      SubmissionStatus = "PAID"
	SubmissionFailed    SubmissionStatus = "FAILED"
	SubmissionClosed    SubmissionStatus = "CLOSED"
	SubmissionRefunding SubmissionStatus = "REFUNDING"
	SubmissionRefunded  SubmissionStatus = "REFUNDED"
)

// Submission 表单提交即订单，payment_id 作为商户订单号 out_trade_no
type Submission struct {
	ID        uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID string           `gorm:"column:payment_id;type:varchar(32);not null;uniqueIndex:idx_payment_id" json:"payment_id"`
	IssueID   uint64           `gorm:"column:issue_id;not null;index:idx_issue_id" json:"issue_id"`
	FormData  datatypes.JSON   `gorm:"column:form_data" json:"form_data"`
	Amount    decimal.Decimal  `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"` // 单位：元
	Currency  string           `gorm:"column:currency;type:varchar(10);not null;default:'CNY'" json:"currency"`
	OpenID    string           `gorm:"column:openid;type:varchar(128);index:idx_openid" json:"openid"`
	UserInfo  datatypes.JSON   `gorm:"column:user_info" json:"user_info,omitempty"`
	Status    SubmissionStatus `gorm:"column:status;type:varchar(16);not null;index:idx_status_created,priority:1" json:"status"`
	TradeNo   string           `gorm:"column:trade_no;type:varchar(64)" json:"trade_no,omitempty"` // 微信支付单号，仅 PAID 时有值
	PaidAt    *time.Time       `gorm:"column:paid_at" json:"paid_at,omitempty"`
	ExpiredAt *time.Time       `gorm:"column:expired_at" json:"expired_at,omitempty"`
	WxPayInfo datatypes.JSON   `gorm:"column:wx_pay_info" json:"-"` // 最近一次网关响应或回调
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime;index:idx_status_created,priority:2" json:"created_at"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) Expired(now time.Time) bool {
	return s.ExpiredAt != nil && now.After(*s.ExpiredAt)
}

type PaymentLogType string

const (
	PaymentLogCreate PaymentLogType = "CREATE"
	PaymentLogNotify PaymentLogType = "NOTIFY"
	PaymentLogQuery  PaymentLogType = "QUERY"
	PaymentLogClose  PaymentLogType = "CLOSE"
)

// PaymentLog 支付流水审计，只追加不修改
type PaymentLog struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	SubmissionID uint64         `gorm:"column:submission_id;not null;uniqueIndex:idx_submission_dedup,priority:1" json:"submission_id"`
	Type         PaymentLogType `gorm:"column:type;type:varchar(16);not null" json:"type"`
	DedupKey     string         `gorm:"column:dedup_key;type:varchar(96);not null;uniqueIndex:idx_submission_dedup,priority:2" json:"dedup_key"`
	Content      datatypes.JSON `gorm:"column:content" json:"content"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PaymentLog) TableName() string {
	return "payment_logs"
}
