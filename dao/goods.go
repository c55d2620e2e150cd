package dao

import (
	"Formpay/models"
	"context"

	"gorm.io/gorm"
)

type Goods struct {
	Repo[models.Goods]
}

func NewGoods(db *gorm.DB) *Goods {
	return &Goods{
		Repo: NewRepo[models.Goods](db),
	}
}

func (g *Goods) FindByIDs(ctx context.Context, issueID uint64, ids []uint64) ([]*models.Goods, error) {
	if len(ids) == 0 {
		return []*models.Goods{}, nil
	}
	return g.FindAll(ctx, "issue_id = ? AND id IN ?", issueID, ids)
}
