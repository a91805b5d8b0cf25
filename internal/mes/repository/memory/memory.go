// Package memory 提供仓储接口的内存实现，供服务层测试使用
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
)

// Repositories 内存仓库集合
type Repositories struct {
	Order             *OrderRepository
	Route             *RouteRepository
	PropertyOperation *PropertyOperationRepository
	Department        *DepartmentRepository
	OperationRate     *OperationRateRepository
	MaterialFormula   *MaterialFormulaRepository
	ComponentSchema   *ComponentSchemaRepository
	Component         *ComponentRepository
	WorkOrder         *WorkOrderRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Order:             NewOrderRepository(),
		Route:             NewRouteRepository(),
		PropertyOperation: NewPropertyOperationRepository(),
		Department:        NewDepartmentRepository(),
		OperationRate:     NewOperationRateRepository(),
		MaterialFormula:   NewMaterialFormulaRepository(),
		ComponentSchema:   NewComponentSchemaRepository(),
		Component:         NewComponentRepository(),
		WorkOrder:         NewWorkOrderRepository(),
	}
}

// AsInterfaces 转换为服务层依赖的接口集合
func (r *Repositories) AsInterfaces() *repository.Repositories {
	return &repository.Repositories{
		Order:             r.Order,
		Route:             r.Route,
		PropertyOperation: r.PropertyOperation,
		Department:        r.Department,
		OperationRate:     r.OperationRate,
		MaterialFormula:   r.MaterialFormula,
		ComponentSchema:   r.ComponentSchema,
		Component:         r.Component,
		WorkOrder:         r.WorkOrder,
	}
}

// OrderRepository 内存订单仓库
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]entity.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: map[string]entity.Order{}}
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Add(order entity.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("订单 %s 不存在", id)
	}
	return &order, nil
}

// RouteRepository 内存路线仓库
type RouteRepository struct {
	mu     sync.RWMutex
	routes map[int64]entity.Route
}

func NewRouteRepository() *RouteRepository {
	return &RouteRepository{routes: map[int64]entity.Route{}}
}

var _ repository.RouteRepository = (*RouteRepository)(nil)

func (r *RouteRepository) Add(route entity.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[route.ProductID] = route
}

func (r *RouteRepository) FindByProductID(ctx context.Context, productID int64) (*entity.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[productID]
	if !ok {
		return nil, fmt.Errorf("产品 %d 没有工艺路线", productID)
	}
	return &route, nil
}

func (r *RouteRepository) MapByProductIDs(ctx context.Context, productIDs []int64) (map[int64]*entity.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := make(map[int64]*entity.Route)
	for _, id := range productIDs {
		if route, ok := r.routes[id]; ok {
			copied := route
			m[id] = &copied
		}
	}
	return m, nil
}

// PropertyOperationRepository 内存属性工序规则仓库
type PropertyOperationRepository struct {
	mu  sync.RWMutex
	ops []entity.PropertyOperation
}

func NewPropertyOperationRepository() *PropertyOperationRepository {
	return &PropertyOperationRepository{}
}

var _ repository.PropertyOperationRepository = (*PropertyOperationRepository)(nil)

func (r *PropertyOperationRepository) Add(op entity.PropertyOperation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *PropertyOperationRepository) ListByPropertyIDs(ctx context.Context, propertyIDs []int64) ([]entity.PropertyOperation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wanted := make(map[int64]bool, len(propertyIDs))
	for _, id := range propertyIDs {
		wanted[id] = true
	}
	var out []entity.PropertyOperation
	for _, op := range r.ops {
		if wanted[op.PropertyID] {
			out = append(out, op)
		}
	}
	return out, nil
}

// DepartmentRepository 内存部门仓库
type DepartmentRepository struct {
	mu    sync.RWMutex
	depts []entity.Department
}

func NewDepartmentRepository() *DepartmentRepository {
	return &DepartmentRepository{}
}

var _ repository.DepartmentRepository = (*DepartmentRepository)(nil)

func (r *DepartmentRepository) Add(dept entity.Department) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.depts = append(r.depts, dept)
}

func (r *DepartmentRepository) MapByOperation(ctx context.Context) (map[int64][]entity.Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := make(map[int64][]entity.Department)
	for _, dept := range r.depts {
		for _, link := range dept.Operations {
			m[link.OperationID] = append(m[link.OperationID], dept)
		}
	}
	return m, nil
}

// OperationRateRepository 内存工价仓库
type OperationRateRepository struct {
	mu    sync.RWMutex
	rates []entity.OperationRate
}

func NewOperationRateRepository() *OperationRateRepository {
	return &OperationRateRepository{}
}

var _ repository.OperationRateRepository = (*OperationRateRepository)(nil)

func (r *OperationRateRepository) Add(rate entity.OperationRate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = append(r.rates, rate)
}

func (r *OperationRateRepository) ListByOperationIDs(ctx context.Context, operationIDs []int64) ([]entity.OperationRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wanted := make(map[int64]bool, len(operationIDs))
	for _, id := range operationIDs {
		wanted[id] = true
	}
	var out []entity.OperationRate
	for _, rate := range r.rates {
		if wanted[rate.OperationID] {
			out = append(out, rate)
		}
	}
	return out, nil
}

// MaterialFormulaRepository 内存物料公式仓库
type MaterialFormulaRepository struct {
	mu       sync.RWMutex
	formulas []entity.MaterialFormula
}

func NewMaterialFormulaRepository() *MaterialFormulaRepository {
	return &MaterialFormulaRepository{}
}

var _ repository.MaterialFormulaRepository = (*MaterialFormulaRepository)(nil)

func (r *MaterialFormulaRepository) Add(f entity.MaterialFormula) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formulas = append(r.formulas, f)
}

func (r *MaterialFormulaRepository) ListByOperationIDs(ctx context.Context, operationIDs []int64) ([]entity.MaterialFormula, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wanted := make(map[int64]bool, len(operationIDs))
	for _, id := range operationIDs {
		wanted[id] = true
	}
	var out []entity.MaterialFormula
	for _, f := range r.formulas {
		if wanted[f.OperationID] {
			out = append(out, f)
		}
	}
	return out, nil
}

// ComponentSchemaRepository 内存分解模板仓库
type ComponentSchemaRepository struct {
	mu      sync.RWMutex
	schemas []entity.ComponentSchema
}

func NewComponentSchemaRepository() *ComponentSchemaRepository {
	return &ComponentSchemaRepository{}
}

var _ repository.ComponentSchemaRepository = (*ComponentSchemaRepository)(nil)

func (r *ComponentSchemaRepository) Add(schema entity.ComponentSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas = append(r.schemas, schema)
}

func (r *ComponentSchemaRepository) ListByProductID(ctx context.Context, productID int64) ([]entity.ComponentSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.ComponentSchema
	for _, s := range r.schemas {
		if s.ProductID == productID {
			out = append(out, s)
		}
	}
	return out, nil
}

// ComponentRepository 内存部件仓库
type ComponentRepository struct {
	mu         sync.RWMutex
	components map[string][]entity.Component // orderItemID → components
}

func NewComponentRepository() *ComponentRepository {
	return &ComponentRepository{components: map[string][]entity.Component{}}
}

var _ repository.ComponentRepository = (*ComponentRepository)(nil)

func (r *ComponentRepository) DeleteByOrderItemID(ctx context.Context, orderItemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.components, orderItemID)
	return nil
}

func (r *ComponentRepository) CreateBatch(ctx context.Context, components []entity.Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range components {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		r.components[c.OrderItemID] = append(r.components[c.OrderItemID], c)
	}
	return nil
}

func (r *ComponentRepository) ListByOrderItemID(ctx context.Context, orderItemID string) ([]entity.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Component, len(r.components[orderItemID]))
	copy(out, r.components[orderItemID])
	return out, nil
}

// WorkOrderRepository 内存工单仓库
type WorkOrderRepository struct {
	mu     sync.RWMutex
	seq    int
	orders map[string]entity.WorkOrder
	order  []string // 保留创建顺序
}

func NewWorkOrderRepository() *WorkOrderRepository {
	return &WorkOrderRepository{orders: map[string]entity.WorkOrder{}}
}

var _ repository.WorkOrderRepository = (*WorkOrderRepository)(nil)

func (r *WorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wo.ID == "" {
		wo.ID = uuid.New().String()
	}
	if _, exists := r.orders[wo.ID]; exists {
		return fmt.Errorf("工单 %s 已存在", wo.ID)
	}
	r.orders[wo.ID] = *wo
	r.order = append(r.order, wo.ID)
	return nil
}

func (r *WorkOrderRepository) Update(ctx context.Context, wo *entity.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[wo.ID]; !exists {
		return fmt.Errorf("工单 %s 不存在", wo.ID)
	}
	r.orders[wo.ID] = *wo
	return nil
}

func (r *WorkOrderRepository) FindByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wo, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("工单 %s 不存在", id)
	}
	return &wo, nil
}

func (r *WorkOrderRepository) FindByOrderID(ctx context.Context, orderID string) ([]entity.WorkOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.WorkOrder
	for _, id := range r.order {
		if wo := r.orders[id]; wo.OrderID == orderID {
			out = append(out, wo)
		}
	}
	return out, nil
}

func (r *WorkOrderRepository) FindByDepartmentAndStatuses(ctx context.Context, departmentID int64, statuses []string) ([]entity.WorkOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	statusSet := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		statusSet[s] = true
	}
	var out []entity.WorkOrder
	for _, id := range r.order {
		wo := r.orders[id]
		if wo.DepartmentID != departmentID {
			continue
		}
		if len(statuses) > 0 && !statusSet[wo.Status] {
			continue
		}
		out = append(out, wo)
	}
	return out, nil
}

func (r *WorkOrderRepository) List(ctx context.Context, params repository.WOListParams) ([]entity.WorkOrder, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.WorkOrder
	for _, id := range r.order {
		wo := r.orders[id]
		if params.OrderID != "" && wo.OrderID != params.OrderID {
			continue
		}
		if params.DepartmentID != 0 && wo.DepartmentID != params.DepartmentID {
			continue
		}
		if params.OperationID != 0 && wo.OperationID != params.OperationID {
			continue
		}
		if params.Status != "" && wo.Status != params.Status {
			continue
		}
		out = append(out, wo)
	}
	return out, int64(len(out)), nil
}

func (r *WorkOrderRepository) GenerateNumber(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("WO-TEST-%04d", r.seq), nil
}

// All 按创建顺序返回全部工单
func (r *WorkOrderRepository) All() []entity.WorkOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.WorkOrder, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.orders[id])
	}
	return out
}
