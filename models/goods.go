package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const GoodsOnSale int8 = 1

// Goods 活动商品，本服务只读
type Goods struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	IssueID   uint64          `gorm:"not null;index:idx_issue_id;column:issue_id" json:"issue_id"`
	Name      string          `gorm:"size:255;not null;column:name" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null;column:price" json:"price"` // 单价（元）
	Stock     uint32          `gorm:"default:0;not null;column:stock" json:"stock"`
	Status    int8            `gorm:"default:1;not null;column:status" json:"status"` // 0-下架, 1-上架
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Goods) TableName() string {
	return "goods"
}
