package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

type GormRouteRepository struct {
	db *gorm.DB
}

func NewRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

func (r *GormRouteRepository) FindByProductID(ctx context.Context, productID int64) (*entity.Route, error) {
	var route entity.Route
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_number ASC") }).
		Where("product_id = ? AND deleted_at IS NULL", productID).
		First(&route).Error
	if err != nil {
		return nil, err
	}
	return &route, nil
}

func (r *GormRouteRepository) MapByProductIDs(ctx context.Context, productIDs []int64) (map[int64]*entity.Route, error) {
	var routes []entity.Route
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_number ASC") }).
		Where("product_id IN ? AND deleted_at IS NULL", productIDs).
		Find(&routes).Error
	if err != nil {
		return nil, err
	}
	m := make(map[int64]*entity.Route, len(routes))
	for i := range routes {
		m[routes[i].ProductID] = &routes[i]
	}
	return m, nil
}

type GormPropertyOperationRepository struct {
	db *gorm.DB
}

func NewPropertyOperationRepository(db *gorm.DB) *GormPropertyOperationRepository {
	return &GormPropertyOperationRepository{db: db}
}

func (r *GormPropertyOperationRepository) ListByPropertyIDs(ctx context.Context, propertyIDs []int64) ([]entity.PropertyOperation, error) {
	if len(propertyIDs) == 0 {
		return nil, nil
	}
	var ops []entity.PropertyOperation
	err := r.db.WithContext(ctx).
		Where("property_id IN ?", propertyIDs).
		Order("position ASC, id ASC").
		Find(&ops).Error
	return ops, err
}
