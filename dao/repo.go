package dao

import (
	"context"

	"gorm.io/gorm"
)

// Repo 通用单表操作
type Repo[T any] struct {
	Db *gorm.DB
}

func NewRepo[T any](db *gorm.DB) Repo[T] {
	return Repo[T]{Db: db}
}

func (r *Repo[T]) Create(ctx context.Context, data *T) error {
	return r.Db.WithContext(ctx).Create(data).Error
}

func (r *Repo[T]) FindById(ctx context.Context, id any) (*T, error) {
	var item T
	if err := r.Db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repo[T]) FindByWhere(ctx context.Context, where string, args ...any) (*T, error) {
	var item T
	if err := r.Db.WithContext(ctx).Where(where, args...).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repo[T]) FindAll(ctx context.Context, where string, args ...any) ([]*T, error) {
	items := make([]*T, 0)
	if err := r.Db.WithContext(ctx).Where(where, args...).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
