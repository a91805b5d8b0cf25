package service

import (
	"context"
	"sync"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/shared/formula"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 物料专用哨兵工序：该步不生成工单，物料经由其它实际工序体现
const materialOnlyOperationID = 0

// 重新生成时作废旧工单的固定系统原因
const regenerateCancelReason = "订单重新生成工单，原工单作废"

// GeneratorService 工单生成编排器。
// 同一订单的生成/重新生成由进程内按订单互斥串行化，
// 工单按生成顺序独立持久化，后续失败不回滚已提交的工单
type GeneratorService struct {
	orderRepo   repository.OrderRepository
	routeRepo   repository.RouteRepository
	propOpRepo  repository.PropertyOperationRepository
	deptRepo    repository.DepartmentRepository
	rateRepo    repository.OperationRateRepository
	formulaRepo repository.MaterialFormulaRepository
	schemaRepo  repository.ComponentSchemaRepository
	woRepo      repository.WorkOrderRepository

	routeSvc     *RouteService
	componentSvc *ComponentService
	eval         formula.Evaluator
	logger       *zap.Logger
	now          func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex // orderID → 生成互斥
}

func NewGeneratorService(
	repos *repository.Repositories,
	routeSvc *RouteService,
	componentSvc *ComponentService,
	eval formula.Evaluator,
	logger *zap.Logger,
) *GeneratorService {
	return &GeneratorService{
		orderRepo:    repos.Order,
		routeRepo:    repos.Route,
		propOpRepo:   repos.PropertyOperation,
		deptRepo:     repos.Department,
		rateRepo:     repos.OperationRate,
		formulaRepo:  repos.MaterialFormula,
		schemaRepo:   repos.ComponentSchema,
		woRepo:       repos.WorkOrder,
		routeSvc:     routeSvc,
		componentSvc: componentSvc,
		eval:         eval,
		logger:       logger,
		now:          time.Now,
		locks:        map[string]*sync.Mutex{},
	}
}

// PriorityFromDeadline 按交期剩余天数计算优先级，天数按整天截断，
// 自上而下首个命中生效；无交期取 5
func PriorityFromDeadline(deadline *time.Time, now time.Time) int {
	if deadline == nil {
		return 5
	}
	days := int(deadline.Sub(now).Hours() / 24)
	switch {
	case days <= 0:
		return 10
	case days <= 3:
		return 9
	case days <= 7:
		return 8
	case days <= 14:
		return 7
	case days <= 21:
		return 6
	case days <= 30:
		return 5
	case days <= 60:
		return 4
	case days <= 90:
		return 3
	case days <= 180:
		return 2
	default:
		return 1
	}
}

// ResolveRate 工价解析：按切片顺序扫描，最后一条通用工价作为兜底，
// 首条属性值命中的专用工价立即生效；专用优先于通用。
// 解析结果与 map 遍历顺序无关
func ResolveRate(rates []entity.OperationRate, selectedValues map[int64]bool) (entity.OperationRate, bool) {
	var general entity.OperationRate
	var specific entity.OperationRate
	haveGeneral, haveSpecific := false, false
	for _, r := range rates {
		if r.IsGeneral() {
			general = r
			haveGeneral = true
			continue
		}
		if !haveSpecific && selectedValues[*r.PropertyValueID] {
			specific = r
			haveSpecific = true
		}
	}
	if haveSpecific {
		return specific, true
	}
	if haveGeneral {
		return general, true
	}
	return entity.OperationRate{}, false
}

func (s *GeneratorService) lockOrder(orderID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[orderID] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// GenerateWorkOrders 为订单生成全部工单
func (s *GeneratorService) GenerateWorkOrders(ctx context.Context, orderID string) ([]entity.WorkOrder, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()
	return s.generate(ctx, orderID)
}

// RegenerateWorkOrders 作废订单现有的全部非终态工单后重新生成。
// 已完工、已作废的工单不受影响。这是唯一支持的"更新"路径
func (s *GeneratorService) RegenerateWorkOrders(ctx context.Context, orderID string) ([]entity.WorkOrder, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()

	existing, err := s.woRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, wo := range existing {
		if entity.IsTerminalStatus(wo.Status) {
			continue
		}
		cancelled, err := wo.Cancel(regenerateCancelReason, now)
		if err != nil {
			return nil, err
		}
		if err := s.woRepo.Update(ctx, &cancelled); err != nil {
			return nil, err
		}
		s.logger.Info("Work order cancelled for regeneration",
			zap.String("wo_number", wo.WONumber),
			zap.String("order_id", orderID),
		)
	}
	return s.generate(ctx, orderID)
}

// operationBatch 一道工序待成单的明细集合，
// 工序按 明细→工序 遍历的首次出现顺序排列
type operationBatch struct {
	step  entity.OperationStep
	items []entity.OrderItem
}

func (s *GeneratorService) generate(ctx context.Context, orderID string) ([]entity.WorkOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, entity.WrapDomainError(entity.ErrValidation, err, "订单 %s 不存在", orderID)
	}
	if len(order.Items) == 0 {
		return nil, entity.NewDomainError(entity.ErrValidation, "订单 %s 没有明细，无法生成工单", order.OrderNumber)
	}

	productIDs := make([]int64, 0, len(order.Items))
	seenProducts := map[int64]bool{}
	propertyIDs := make([]int64, 0)
	seenProps := map[int64]bool{}
	for _, item := range order.Items {
		if !seenProducts[item.ProductID] {
			seenProducts[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
		for _, p := range item.Properties {
			if !seenProps[p.PropertyID] {
				seenProps[p.PropertyID] = true
				propertyIDs = append(propertyIDs, p.PropertyID)
			}
		}
	}

	// 前置校验：路线映射与部门映射都不能为空，违反则在写入任何数据前失败
	routes, err := s.routeRepo.MapByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, entity.NewDomainError(entity.ErrMissingRoute, "订单 %s 的产品均未配置工艺路线", order.OrderNumber)
	}
	departments, err := s.deptRepo.MapByOperation(ctx)
	if err != nil {
		return nil, err
	}
	if len(departments) == 0 {
		return nil, entity.NewDomainError(entity.ErrMissingDepartment, "没有任何部门配置工序承接关系")
	}
	propertyOps, err := s.propOpRepo.ListByPropertyIDs(ctx, propertyIDs)
	if err != nil {
		return nil, err
	}

	priority := PriorityFromDeadline(order.Deadline, s.now())

	// 生成部件（整体替换）
	for i := range order.Items {
		item := &order.Items[i]
		schemas, err := s.schemaRepo.ListByProductID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if len(schemas) == 0 {
			continue
		}
		if _, err := s.componentSvc.Regenerate(ctx, item, schemas); err != nil {
			return nil, err
		}
	}

	// 解析每条明细的路线，按工序首次出现顺序归集明细
	batches := make([]*operationBatch, 0)
	batchIndex := map[int64]int{}
	stepsByItem := make(map[string][]entity.OperationStep, len(order.Items))
	for _, item := range order.Items {
		route, ok := routes[item.ProductID]
		if !ok {
			return nil, entity.NewDomainError(entity.ErrMissingRoute, "产品 %s（ID %d）未配置工艺路线", item.ProductName, item.ProductID)
		}
		steps, err := s.routeSvc.BuildSteps(route, item.SelectedValues(), propertyOps)
		if err != nil {
			return nil, err
		}
		stepsByItem[item.ID] = steps
		for _, step := range steps {
			if step.OperationID == materialOnlyOperationID {
				// 物料专用哨兵工序：不建工单，物料经其它实际工序体现
				continue
			}
			if i, ok := batchIndex[step.OperationID]; ok {
				batches[i].items = append(batches[i].items, item)
				continue
			}
			batchIndex[step.OperationID] = len(batches)
			batches = append(batches, &operationBatch{step: step, items: []entity.OrderItem{item}})
		}
	}

	operationIDs := make([]int64, 0, len(batches))
	for _, b := range batches {
		operationIDs = append(operationIDs, b.step.OperationID)
	}
	rates, err := s.rateRepo.ListByOperationIDs(ctx, operationIDs)
	if err != nil {
		return nil, err
	}
	ratesByOp := map[int64][]entity.OperationRate{}
	for _, r := range rates {
		ratesByOp[r.OperationID] = append(ratesByOp[r.OperationID], r)
	}
	materialFormulas, err := s.formulaRepo.ListByOperationIDs(ctx, operationIDs)
	if err != nil {
		return nil, err
	}

	created := make([]entity.WorkOrder, 0, len(batches))
	for _, batch := range batches {
		dept, err := s.resolveDepartment(order, batch.step, departments)
		if err != nil {
			return nil, err
		}
		for _, group := range GroupItems(batch.items, dept) {
			wo, err := s.createWorkOrder(ctx, order, batch.step, dept, group, priority, ratesByOp[batch.step.OperationID], materialFormulas)
			if err != nil {
				return nil, err
			}
			created = append(created, *wo)
		}
	}

	s.logger.Info("Work orders generated",
		zap.String("order_number", order.OrderNumber),
		zap.Int("count", len(created)),
		zap.Int("priority", priority),
	)
	return created, nil
}

// resolveDepartment 解析工序承接部门，多部门时取 Priority 最大者
func (s *GeneratorService) resolveDepartment(order *entity.Order, step entity.OperationStep, departments map[int64][]entity.Department) (*entity.Department, error) {
	candidates := departments[step.OperationID]
	if len(candidates) == 0 {
		return nil, entity.NewDomainError(entity.ErrMissingDepartment, "工序 %s（ID %d）没有承接部门，订单 %s", step.Name, step.OperationID, order.OrderNumber)
	}
	best := candidates[0]
	for _, d := range candidates[1:] {
		if d.Priority > best.Priority {
			best = d
		}
	}
	return &best, nil
}

func (s *GeneratorService) createWorkOrder(
	ctx context.Context,
	order *entity.Order,
	step entity.OperationStep,
	dept *entity.Department,
	group ItemGroup,
	priority int,
	rates []entity.OperationRate,
	materialFormulas []entity.MaterialFormula,
) (*entity.WorkOrder, error) {
	number, err := s.woRepo.GenerateNumber(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	wo, err := entity.NewWorkOrder(uuid.New().String(), number, order, dept.ID, dept.Name, step.OperationID, step.Name, priority, group.Key, now)
	if err != nil {
		return nil, err
	}

	for _, item := range group.Items {
		rate, found := ResolveRate(rates, item.SelectedValueSet())
		if !found {
			// 未配置工价不算错误，工时与单价按0处理
			s.logger.Debug("No operation rate configured",
				zap.Int64("operation_id", step.OperationID),
				zap.Int64("product_id", item.ProductID),
			)
		}
		woItem := entity.WorkOrderItem{
			ID:                  uuid.New().String(),
			WorkOrderID:         wo.ID,
			OrderItemID:         item.ID,
			ProductID:           item.ProductID,
			ProductName:         item.ProductName,
			OperationID:         step.OperationID,
			OperationName:       step.Name,
			Quantity:            item.Quantity,
			Unit:                item.Unit,
			EstimatedHours:      rate.TimePerUnit * item.Quantity,
			PieceRate:           rate.RatePerUnit,
			CalculatedMaterials: s.calculateMaterials(item, step.OperationID, materialFormulas),
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		wo, err = wo.AddItem(woItem)
		if err != nil {
			return nil, err
		}
	}

	if err := s.woRepo.Create(ctx, &wo); err != nil {
		return nil, err
	}
	return &wo, nil
}

// calculateMaterials 计算明细在某工序上的物料消耗。
// 公式上下文为 H/W/D/Q 加数值型属性；求值失败或总量≤0的条目跳过
func (s *GeneratorService) calculateMaterials(item entity.OrderItem, operationID int64, formulas []entity.MaterialFormula) entity.MaterialCalculation {
	vars := item.FormulaContext()
	vars["Q"] = item.Quantity

	calc := entity.MaterialCalculation{
		Height:   item.Length,
		Width:    item.Width,
		Depth:    item.Depth,
		Quantity: item.Quantity,
	}
	for _, f := range formulas {
		if !f.AppliesTo(operationID, item.ProductID) {
			continue
		}
		perUnit, err := s.eval.Evaluate(f.ConsumptionFormula, vars)
		if err != nil {
			s.logger.Warn("Material formula evaluation failed, skipping",
				zap.String("material", f.MaterialName),
				zap.Int64("operation_id", operationID),
				zap.Error(err),
			)
			continue
		}
		total := perUnit * item.Quantity
		if total <= 0 {
			continue
		}
		calc.Materials = append(calc.Materials, entity.CalculatedMaterial{
			MaterialID:      f.MaterialID,
			MaterialCode:    f.MaterialCode,
			MaterialName:    f.MaterialName,
			QuantityPerUnit: perUnit,
			QuantityTotal:   total,
			Unit:            f.Unit,
		})
	}
	return calc
}
