package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

type GormDepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) *GormDepartmentRepository {
	return &GormDepartmentRepository{db: db}
}

func (r *GormDepartmentRepository) MapByOperation(ctx context.Context) (map[int64][]entity.Department, error) {
	var depts []entity.Department
	err := r.db.WithContext(ctx).
		Preload("Operations").
		Where("deleted_at IS NULL").
		Order("id ASC").
		Find(&depts).Error
	if err != nil {
		return nil, err
	}
	m := make(map[int64][]entity.Department)
	for i := range depts {
		for _, link := range depts[i].Operations {
			m[link.OperationID] = append(m[link.OperationID], depts[i])
		}
	}
	return m, nil
}

type GormOperationRateRepository struct {
	db *gorm.DB
}

func NewOperationRateRepository(db *gorm.DB) *GormOperationRateRepository {
	return &GormOperationRateRepository{db: db}
}

func (r *GormOperationRateRepository) ListByOperationIDs(ctx context.Context, operationIDs []int64) ([]entity.OperationRate, error) {
	if len(operationIDs) == 0 {
		return nil, nil
	}
	var rates []entity.OperationRate
	err := r.db.WithContext(ctx).
		Where("operation_id IN ?", operationIDs).
		Order("position ASC, created_at ASC").
		Find(&rates).Error
	return rates, err
}

type GormMaterialFormulaRepository struct {
	db *gorm.DB
}

func NewMaterialFormulaRepository(db *gorm.DB) *GormMaterialFormulaRepository {
	return &GormMaterialFormulaRepository{db: db}
}

func (r *GormMaterialFormulaRepository) ListByOperationIDs(ctx context.Context, operationIDs []int64) ([]entity.MaterialFormula, error) {
	if len(operationIDs) == 0 {
		return nil, nil
	}
	var formulas []entity.MaterialFormula
	err := r.db.WithContext(ctx).
		Where("operation_id IN ?", operationIDs).
		Order("position ASC, created_at ASC").
		Find(&formulas).Error
	return formulas, err
}
