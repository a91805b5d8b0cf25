package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

type GormComponentSchemaRepository struct {
	db *gorm.DB
}

func NewComponentSchemaRepository(db *gorm.DB) *GormComponentSchemaRepository {
	return &GormComponentSchemaRepository{db: db}
}

func (r *GormComponentSchemaRepository) ListByProductID(ctx context.Context, productID int64) ([]entity.ComponentSchema, error) {
	var schemas []entity.ComponentSchema
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("position ASC, created_at ASC").
		Find(&schemas).Error
	return schemas, err
}

type GormComponentRepository struct {
	db *gorm.DB
}

func NewComponentRepository(db *gorm.DB) *GormComponentRepository {
	return &GormComponentRepository{db: db}
}

func (r *GormComponentRepository) DeleteByOrderItemID(ctx context.Context, orderItemID string) error {
	return r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Delete(&entity.Component{}).Error
}

func (r *GormComponentRepository) CreateBatch(ctx context.Context, components []entity.Component) error {
	if len(components) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&components).Error
}

func (r *GormComponentRepository) ListByOrderItemID(ctx context.Context, orderItemID string) ([]entity.Component, error) {
	var components []entity.Component
	err := r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Order("created_at ASC").
		Find(&components).Error
	return components, err
}
