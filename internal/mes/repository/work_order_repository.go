package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormWorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *GormWorkOrderRepository {
	return &GormWorkOrderRepository{db: db}
}

func (r *GormWorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

// Update 整聚合替换：工单字段连同明细一起保存
func (r *GormWorkOrderRepository) Update(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Save(wo).Error
}

func (r *GormWorkOrderRepository) FindByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&wo).Error
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

func (r *GormWorkOrderRepository) FindByOrderID(ctx context.Context, orderID string) ([]entity.WorkOrder, error) {
	var wos []entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&wos).Error
	return wos, err
}

func (r *GormWorkOrderRepository) FindByDepartmentAndStatuses(ctx context.Context, departmentID int64, statuses []string) ([]entity.WorkOrder, error) {
	var wos []entity.WorkOrder
	query := r.db.WithContext(ctx).Preload("Items").Where("department_id = ?", departmentID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Order("created_at ASC").Find(&wos).Error
	return wos, err
}

// WOListParams 工单列表查询参数
type WOListParams struct {
	OrderID      string
	DepartmentID int64
	OperationID  int64
	Status       string
	Keyword      string
	Page         int
	Size         int
}

func (r *GormWorkOrderRepository) List(ctx context.Context, params WOListParams) ([]entity.WorkOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{})
	if params.OrderID != "" {
		query = query.Where("order_id = ?", params.OrderID)
	}
	if params.DepartmentID != 0 {
		query = query.Where("department_id = ?", params.DepartmentID)
	}
	if params.OperationID != 0 {
		query = query.Where("operation_id = ?", params.OperationID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("wo_number ILIKE ? OR order_number ILIKE ? OR operation_name ILIKE ?", kw, kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var wos []entity.WorkOrder
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&wos).Error
	return wos, total, err
}

// GenerateNumber 生成唯一工单号 WO-YYYYMMDDnnnn，冲突时重试
func (r *GormWorkOrderRepository) GenerateNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		now := time.Now()
		candidate := fmt.Sprintf("WO-%s%04d", now.Format("20060102"), now.UnixNano()%10000)
		var existing entity.WorkOrder
		err := r.db.WithContext(ctx).
			Select("id").
			Where("wo_number = ?", candidate).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		time.Sleep(time.Millisecond)
	}
	return "", fmt.Errorf("生成唯一工单号失败")
}
