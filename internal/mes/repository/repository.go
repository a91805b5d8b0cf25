package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// 仓储契约。服务层只依赖这些接口；gorm 实现在本包，
// 测试用的内存实现在 memory 子包
type (
	// OrderRepository 订单查询（订单维护在外部系统）
	OrderRepository interface {
		FindByID(ctx context.Context, id string) (*entity.Order, error)
	}

	// RouteRepository 工艺路线查询
	RouteRepository interface {
		FindByProductID(ctx context.Context, productID int64) (*entity.Route, error)
		// MapByProductIDs 返回 productID → 路线 的映射，路线含工序明细
		MapByProductIDs(ctx context.Context, productIDs []int64) (map[int64]*entity.Route, error)
	}

	// PropertyOperationRepository 属性工序关联规则查询
	PropertyOperationRepository interface {
		// ListByPropertyIDs 按 position 升序返回相关规则
		ListByPropertyIDs(ctx context.Context, propertyIDs []int64) ([]entity.PropertyOperation, error)
	}

	// DepartmentRepository 部门查询
	DepartmentRepository interface {
		// MapByOperation 返回 operationID → 承接部门列表 的映射
		MapByOperation(ctx context.Context) (map[int64][]entity.Department, error)
	}

	// OperationRateRepository 工价查询
	OperationRateRepository interface {
		// ListByOperationIDs 按 position 升序返回工价，解析顺序依赖此排序
		ListByOperationIDs(ctx context.Context, operationIDs []int64) ([]entity.OperationRate, error)
	}

	// MaterialFormulaRepository 物料消耗公式查询
	MaterialFormulaRepository interface {
		ListByOperationIDs(ctx context.Context, operationIDs []int64) ([]entity.MaterialFormula, error)
	}

	// ComponentSchemaRepository 部件分解模板查询
	ComponentSchemaRepository interface {
		ListByProductID(ctx context.Context, productID int64) ([]entity.ComponentSchema, error)
	}

	// ComponentRepository 部件存储。替换语义为先删后插两次调用
	ComponentRepository interface {
		DeleteByOrderItemID(ctx context.Context, orderItemID string) error
		CreateBatch(ctx context.Context, components []entity.Component) error
		ListByOrderItemID(ctx context.Context, orderItemID string) ([]entity.Component, error)
	}

	// WorkOrderRepository 工单存储
	WorkOrderRepository interface {
		Create(ctx context.Context, wo *entity.WorkOrder) error
		// Update 整聚合替换（含明细）
		Update(ctx context.Context, wo *entity.WorkOrder) error
		FindByID(ctx context.Context, id string) (*entity.WorkOrder, error)
		FindByOrderID(ctx context.Context, orderID string) ([]entity.WorkOrder, error)
		FindByDepartmentAndStatuses(ctx context.Context, departmentID int64, statuses []string) ([]entity.WorkOrder, error)
		List(ctx context.Context, params WOListParams) ([]entity.WorkOrder, int64, error)
		// GenerateNumber 生成唯一工单号
		GenerateNumber(ctx context.Context) (string, error)
	}
)

// Repositories MES 仓库集合
type Repositories struct {
	Order             OrderRepository
	Route             RouteRepository
	PropertyOperation PropertyOperationRepository
	Department        DepartmentRepository
	OperationRate     OperationRateRepository
	MaterialFormula   MaterialFormulaRepository
	ComponentSchema   ComponentSchemaRepository
	Component         ComponentRepository
	WorkOrder         WorkOrderRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:             NewOrderRepository(db),
		Route:             NewRouteRepository(db),
		PropertyOperation: NewPropertyOperationRepository(db),
		Department:        NewDepartmentRepository(db),
		OperationRate:     NewOperationRateRepository(db),
		MaterialFormula:   NewMaterialFormulaRepository(db),
		ComponentSchema:   NewComponentSchemaRepository(db),
		Component:         NewComponentRepository(db),
		WorkOrder:         NewWorkOrderRepository(db),
	}
}
