package service

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository/memory"
	"github.com/bitfantasy/nimo-mes/internal/shared/formula"
	"go.uber.org/zap"
)

type generatorFixture struct {
	repos *memory.Repositories
	svc   *GeneratorService
}

func newGeneratorFixture() *generatorFixture {
	repos := memory.NewRepositories()
	logger := zap.NewNop()
	eval := formula.NewExprEvaluator()
	routeSvc := NewRouteService(logger)
	componentSvc := NewComponentService(repos.Component, eval, logger)
	svc := NewGeneratorService(repos.AsInterfaces(), routeSvc, componentSvc, eval, logger)
	return &generatorFixture{repos: repos, svc: svc}
}

// seedWardrobeOrder sets up an order with two wardrobe items and one shoe
// cabinet, a two-step route per product and one department per operation.
func (f *generatorFixture) seedWardrobeOrder(deadline *time.Time) {
	f.repos.Order.Add(entity.Order{
		ID:          "order-001",
		OrderNumber: "SO-2026-001",
		Deadline:    deadline,
		Items: []entity.OrderItem{
			{ID: "item-1", OrderID: "order-001", ProductID: 100, ProductName: "衣柜", Quantity: 2, Unit: "pcs", Length: 2000, Width: 800, Depth: 500},
			{ID: "item-2", OrderID: "order-001", ProductID: 100, ProductName: "衣柜", Quantity: 1, Unit: "pcs", Length: 2200, Width: 900, Depth: 500},
			{ID: "item-3", OrderID: "order-001", ProductID: 200, ProductName: "鞋柜", Quantity: 1, Unit: "pcs", Length: 1000, Width: 600, Depth: 300},
		},
	})

	f.repos.Route.Add(entity.Route{
		ID: "route-100", ProductID: 100, Name: "衣柜路线",
		Steps: []entity.RouteStep{
			{OperationID: 1, OperationCode: "CUT", OperationName: "开料", StepNumber: 1, IsRequired: true},
			{OperationID: 2, OperationCode: "EDGE", OperationName: "封边", StepNumber: 2, IsRequired: true},
		},
	})
	f.repos.Route.Add(entity.Route{
		ID: "route-200", ProductID: 200, Name: "鞋柜路线",
		Steps: []entity.RouteStep{
			{OperationID: 1, OperationCode: "CUT", OperationName: "开料", StepNumber: 1, IsRequired: true},
		},
	})

	f.repos.Department.Add(entity.Department{
		ID: 1, Code: "CUT-DEPT", Name: "开料车间", GroupingStrategy: entity.GroupingByOrder,
		Operations: []entity.DepartmentOperation{{DepartmentID: 1, OperationID: 1}},
	})
	f.repos.Department.Add(entity.Department{
		ID: 2, Code: "EDGE-DEPT", Name: "封边车间", GroupingStrategy: entity.GroupingByProduct,
		Operations: []entity.DepartmentOperation{{DepartmentID: 2, OperationID: 2}},
	})
}

func TestGenerateWorkOrders(t *testing.T) {
	f := newGeneratorFixture()
	f.seedWardrobeOrder(nil)

	wos, err := f.svc.GenerateWorkOrders(context.Background(), "order-001")
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}

	// Operation 1 (all 3 items, BY_ORDER) -> 1 work order.
	// Operation 2 (2 wardrobe items, BY_PRODUCT) -> 1 work order.
	if len(wos) != 2 {
		t.Fatalf("Expected 2 work orders, got %d", len(wos))
	}

	cut := wos[0]
	if cut.OperationID != 1 || cut.DepartmentID != 1 {
		t.Errorf("Expected first work order on operation 1 in department 1, got op %d dept %d", cut.OperationID, cut.DepartmentID)
	}
	if len(cut.Items) != 3 {
		t.Errorf("Expected 3 items on the cutting work order, got %d", len(cut.Items))
	}
	if cut.Status != entity.WOStatusPlanned {
		t.Errorf("Expected new work order in PLANNED, got %s", cut.Status)
	}
	if cut.Priority != 5 {
		t.Errorf("Expected default priority 5 without deadline, got %d", cut.Priority)
	}
	if cut.OrderNumber != "SO-2026-001" {
		t.Errorf("Expected order number copied onto work order, got %s", cut.OrderNumber)
	}

	edge := wos[1]
	if edge.OperationID != 2 || len(edge.Items) != 2 {
		t.Errorf("Expected edging work order with 2 wardrobe items, got op %d with %d items", edge.OperationID, len(edge.Items))
	}
}

func TestGeneratePriorityFromDeadline(t *testing.T) {
	f := newGeneratorFixture()
	deadline := time.Now().Add(2 * 24 * time.Hour)
	f.seedWardrobeOrder(&deadline)

	wos, err := f.svc.GenerateWorkOrders(context.Background(), "order-001")
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}
	for _, wo := range wos {
		if wo.Priority != 9 {
			t.Errorf("Expected priority 9 for deadline in 2 days, got %d", wo.Priority)
		}
	}
}

func TestGenerateFailsBeforeWriteWhenRoutesMissing(t *testing.T) {
	f := newGeneratorFixture()
	f.seedWardrobeOrder(nil)
	f.repos.Route = memory.NewRouteRepository() // wipe routes
	f.svc = NewGeneratorService(f.repos.AsInterfaces(), NewRouteService(zap.NewNop()),
		NewComponentService(f.repos.Component, formula.NewExprEvaluator(), zap.NewNop()),
		formula.NewExprEvaluator(), zap.NewNop())

	_, err := f.svc.GenerateWorkOrders(context.Background(), "order-001")
	if !entity.IsKind(err, entity.ErrMissingRoute) {
		t.Fatalf("Expected MISSING_ROUTE error, got %v", err)
	}
	if wos := f.repos.WorkOrder.All(); len(wos) != 0 {
		t.Errorf("Expected no work orders written, got %d", len(wos))
	}
}

func TestGenerateFailsBeforeWriteWhenDepartmentsMissing(t *testing.T) {
	f := newGeneratorFixture()
	f.seedWardrobeOrder(nil)
	f.repos.Department = memory.NewDepartmentRepository() // wipe departments
	f.svc = NewGeneratorService(f.repos.AsInterfaces(), NewRouteService(zap.NewNop()),
		NewComponentService(f.repos.Component, formula.NewExprEvaluator(), zap.NewNop()),
		formula.NewExprEvaluator(), zap.NewNop())

	_, err := f.svc.GenerateWorkOrders(context.Background(), "order-001")
	if !entity.IsKind(err, entity.ErrMissingDepartment) {
		t.Fatalf("Expected MISSING_DEPARTMENT error, got %v", err)
	}
	if wos := f.repos.WorkOrder.All(); len(wos) != 0 {
		t.Errorf("Expected no work orders written, got %d", len(wos))
	}
}

func TestGenerateRejectsEmptyOrder(t *testing.T) {
	f := newGeneratorFixture()
	f.repos.Order.Add(entity.Order{ID: "order-empty", OrderNumber: "SO-2026-002"})

	_, err := f.svc.GenerateWorkOrders(context.Background(), "order-empty")
	if !entity.IsKind(err, entity.ErrValidation) {
		t.Fatalf("Expected validation error for empty order, got %v", err)
	}
}

func TestGenerateSkipsMaterialOnlyOperation(t *testing.T) {
	f := newGeneratorFixture()
	f.repos.Order.Add(entity.Order{
		ID: "order-001", OrderNumber: "SO-2026-001",
		Items: []entity.OrderItem{
			{ID: "item-1", OrderID: "order-001", ProductID: 100, ProductName: "衣柜", Quantity: 1, Unit: "pcs"},
		},
	})
	f.repos.Route.Add(entity.Route{
		ID: "route-100", ProductID: 100, Name: "含物料步路线",
		Steps: []entity.RouteStep{
			{OperationID: 0, OperationCode: "MAT", OperationName: "物料", StepNumber: 1},
			{OperationID: 1, OperationCode: "CUT", OperationName: "开料", StepNumber: 2, IsRequired: true},
		},
	})
	f.repos.Department.Add(entity.Department{
		ID: 1, Code: "CUT-DEPT", Name: "开料车间", GroupingStrategy: entity.GroupingByOrder,
		Operations: []entity.DepartmentOperation{{DepartmentID: 1, OperationID: 1}},
	})

	wos, err := f.svc.GenerateWorkOrders(context.Background(), "order-001")
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}
	if len(wos) != 1 {
		t.Fatalf("Expected 1 work order, got %d", len(wos))
	}
	if wos[0].OperationID != 1 {
		t.Errorf("Expected only operation 1 to produce a work order, got %d", wos[0].OperationID)
	}
}

func TestGenerateResolvesDepartmentByPriority(t *testing.T) {
	f := newGeneratorFixture()
	f.seedWardrobeOrder(nil)
	// Second department also handles operation 1, with a higher priority.
	f.repos.Department.Add(entity.Department{
		ID: 3, Code: "CUT-DEPT-2", Name: "开料二车间", Priority: 10, GroupingStrategy: entity.GroupingByOrder,
		Operations: []entity.DepartmentOperation{{DepartmentID: 3, OperationID: 1}},
	})

	wos, err := f.svc.GenerateWorkOrders(context.Background(), "order-001")
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}
	for _, wo := range wos {
		if wo.OperationID == 1 && wo.DepartmentID != 3 {
			t.Errorf("Expected operation 1 routed to department 3 (priority 10), got %d", wo.DepartmentID)
		}
	}
}

func TestGenerateAppliesOperationRates(t *testing.T) {
	f := newGeneratorFixture()
	f.seedWardrobeOrder(nil)

	valueID := int64(101)
	f.repos.OperationRate.Add(entity.OperationRate{ID: "rate-1", OperationID: 1, TimePerUnit: 0.5, RatePerUnit: 10, Position: 1})
	f.repos.OperationRate.Add(entity.OperationRate{ID: "rate-2", OperationID: 1, PropertyValueID: &valueID, TimePerUnit: 0.8, RatePerUnit: 15, Position: 2})

	// item-1 selects property value 101 and gets the specific rate.
	order, _ := f.repos.Order.FindByID(context.Background(), "order-001")
	order.Items[0].Properties = []entity.OrderItemProperty{
		{PropertyID: 10, PropertyName: "材质", PropertyValueID: 101, Value: "实木"},
	}
	f.repos.Order.Add(*order)

	wos, err := f.svc.GenerateWorkOrders(context.Background(), "order-001")
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}

	var cut *entity.WorkOrder
	for i := range wos {
		if wos[i].OperationID == 1 {
			cut = &wos[i]
		}
	}
	if cut == nil {
		t.Fatal("Expected a work order for operation 1")
	}
	for _, item := range cut.Items {
		switch item.OrderItemID {
		case "item-1": // quantity 2, specific rate
			if item.EstimatedHours != 1.6 || item.PieceRate != 15 {
				t.Errorf("Expected specific rate (1.6h, 15), got (%vh, %v)", item.EstimatedHours, item.PieceRate)
			}
		case "item-2": // quantity 1, general rate
			if item.EstimatedHours != 0.5 || item.PieceRate != 10 {
				t.Errorf("Expected general rate (0.5h, 10), got (%vh, %v)", item.EstimatedHours, item.PieceRate)
			}
		}
	}
}

func TestGenerateCalculatesMaterials(t *testing.T) {
	f := newGeneratorFixture()
	f.repos.Order.Add(entity.Order{
		ID: "order-001", OrderNumber: "SO-2026-001",
		Items: []entity.OrderItem{
			{ID: "item-1", OrderID: "order-001", ProductID: 100, ProductName: "衣柜", Quantity: 2, Unit: "pcs", Length: 2000, Width: 800, Depth: 500},
		},
	})
	f.repos.Route.Add(entity.Route{
		ID: "route-100", ProductID: 100, Name: "衣柜路线",
		Steps: []entity.RouteStep{
			{OperationID: 1, OperationCode: "EDGE", OperationName: "封边", StepNumber: 1, IsRequired: true},
		},
	})
	f.repos.Department.Add(entity.Department{
		ID: 1, Code: "EDGE-DEPT", Name: "封边车间", GroupingStrategy: entity.GroupingByOrder,
		Operations: []entity.DepartmentOperation{{DepartmentID: 1, OperationID: 1}},
	})
	f.repos.MaterialFormula.Add(entity.MaterialFormula{
		ID: "mf-1", OperationID: 1, MaterialID: 500, MaterialCode: "EDGE-TAPE", MaterialName: "封边条",
		Unit: "m", ConsumptionFormula: "(H + W) * 2 / 1000",
	})
	f.repos.MaterialFormula.Add(entity.MaterialFormula{
		ID: "mf-2", OperationID: 99, MaterialID: 600, MaterialCode: "GLUE", MaterialName: "胶水",
		Unit: "kg", ConsumptionFormula: "0.1",
	})

	wos, err := f.svc.GenerateWorkOrders(context.Background(), "order-001")
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}
	if len(wos) != 1 || len(wos[0].Items) != 1 {
		t.Fatalf("Expected 1 work order with 1 item, got %d", len(wos))
	}

	calc := wos[0].Items[0].CalculatedMaterials
	if len(calc.Materials) != 1 {
		t.Fatalf("Expected 1 material (formula for other operation excluded), got %d", len(calc.Materials))
	}
	m := calc.Materials[0]
	if m.MaterialCode != "EDGE-TAPE" {
		t.Errorf("Expected EDGE-TAPE, got %s", m.MaterialCode)
	}
	// (2000 + 800) * 2 / 1000 = 5.6 per unit, 11.2 for quantity 2.
	if m.QuantityPerUnit != 5.6 || m.QuantityTotal != 11.2 {
		t.Errorf("Expected consumption 5.6/11.2, got %v/%v", m.QuantityPerUnit, m.QuantityTotal)
	}
	if calc.Height != 2000 || calc.Quantity != 2 {
		t.Errorf("Expected dimension snapshot in calculation, got H=%v Q=%v", calc.Height, calc.Quantity)
	}
}

func TestGenerateRegeneratesComponents(t *testing.T) {
	f := newGeneratorFixture()
	f.seedWardrobeOrder(nil)
	f.repos.ComponentSchema.Add(entity.ComponentSchema{
		ID: "cs-1", ProductID: 100, Name: "侧板",
		LengthFormula: "H", WidthFormula: "D", QuantityFormula: "2",
	})

	if _, err := f.svc.GenerateWorkOrders(context.Background(), "order-001"); err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}

	components, err := f.repos.Component.ListByOrderItemID(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("Failed to list components: %v", err)
	}
	if len(components) != 1 {
		t.Fatalf("Expected 1 component for item-1, got %d", len(components))
	}
	if components[0].Length != 2000 || components[0].QuantityTotal != 4 {
		t.Errorf("Expected side panel length 2000 total 4, got %v/%v", components[0].Length, components[0].QuantityTotal)
	}

	// item-3 is a different product with no schema, so no components.
	none, _ := f.repos.Component.ListByOrderItemID(context.Background(), "item-3")
	if len(none) != 0 {
		t.Errorf("Expected no components for item-3, got %d", len(none))
	}
}

func TestRegenerateCancelsNonTerminalWorkOrders(t *testing.T) {
	f := newGeneratorFixture()
	f.seedWardrobeOrder(nil)
	ctx := context.Background()

	first, err := f.svc.GenerateWorkOrders(ctx, "order-001")
	if err != nil {
		t.Fatalf("Expected first generation to succeed, got %v", err)
	}

	// Complete one work order; it must survive regeneration untouched.
	done := first[0]
	done, _ = done.Assign(time.Now())
	done, _ = done.Start(time.Now())
	done, _ = done.SendToQualityCheck(time.Now())
	done, _ = done.Complete(time.Now())
	if err := f.repos.WorkOrder.Update(ctx, &done); err != nil {
		t.Fatalf("Failed to update work order: %v", err)
	}

	regenerated, err := f.svc.RegenerateWorkOrders(ctx, "order-001")
	if err != nil {
		t.Fatalf("Expected regeneration to succeed, got %v", err)
	}
	if len(regenerated) != 2 {
		t.Fatalf("Expected 2 new work orders, got %d", len(regenerated))
	}

	all := f.repos.WorkOrder.All()
	if len(all) != 4 {
		t.Fatalf("Expected 4 work orders total after regeneration, got %d", len(all))
	}
	var completed, cancelled, planned int
	for _, wo := range all {
		switch wo.Status {
		case entity.WOStatusCompleted:
			completed++
		case entity.WOStatusCancelled:
			cancelled++
			if wo.Notes == "" {
				t.Error("Expected cancellation reason recorded in notes")
			}
		case entity.WOStatusPlanned:
			planned++
		}
	}
	if completed != 1 || cancelled != 1 || planned != 2 {
		t.Errorf("Expected 1 completed, 1 cancelled, 2 planned; got %d/%d/%d", completed, cancelled, planned)
	}
}

func TestPriorityFromDeadlineTable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		days int
		want int
	}{
		{-5, 10}, {0, 10}, {2, 9}, {3, 9}, {5, 8}, {7, 8},
		{10, 7}, {14, 7}, {20, 6}, {21, 6}, {30, 5},
		{45, 4}, {60, 4}, {90, 3}, {180, 2}, {200, 1},
	}
	for _, tc := range cases {
		deadline := now.Add(time.Duration(tc.days) * 24 * time.Hour)
		if got := PriorityFromDeadline(&deadline, now); got != tc.want {
			t.Errorf("Deadline in %d days: expected priority %d, got %d", tc.days, tc.want, got)
		}
	}
	if got := PriorityFromDeadline(nil, now); got != 5 {
		t.Errorf("Expected priority 5 without deadline, got %d", got)
	}
}

func TestPriorityFromDeadlineTruncatesPartialDays(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	// 3 days and 20 hours left still counts as 3 days.
	deadline := now.Add(3*24*time.Hour + 20*time.Hour)
	if got := PriorityFromDeadline(&deadline, now); got != 9 {
		t.Errorf("Expected partial day truncated to 3 days (priority 9), got %d", got)
	}
}

func TestResolveRate(t *testing.T) {
	v101, v202 := int64(101), int64(202)
	rates := []entity.OperationRate{
		{ID: "r1", OperationID: 1, TimePerUnit: 0.3, RatePerUnit: 5},                           // general
		{ID: "r2", OperationID: 1, PropertyValueID: &v101, TimePerUnit: 0.8, RatePerUnit: 15}, // specific
		{ID: "r3", OperationID: 1, PropertyValueID: &v202, TimePerUnit: 0.9, RatePerUnit: 20}, // specific
		{ID: "r4", OperationID: 1, TimePerUnit: 0.5, RatePerUnit: 10},                          // later general wins as fallback
	}

	// No selections: last general acts as fallback.
	rate, found := ResolveRate(rates, map[int64]bool{})
	if !found || rate.ID != "r4" {
		t.Errorf("Expected last general rate r4, got %v (found=%v)", rate.ID, found)
	}

	// First matching specific rate wins over both generals and later specifics.
	rate, found = ResolveRate(rates, map[int64]bool{101: true, 202: true})
	if !found || rate.ID != "r2" {
		t.Errorf("Expected first specific match r2, got %v (found=%v)", rate.ID, found)
	}

	rate, found = ResolveRate(rates, map[int64]bool{202: true})
	if !found || rate.ID != "r3" {
		t.Errorf("Expected specific rate r3, got %v (found=%v)", rate.ID, found)
	}

	if _, found = ResolveRate(nil, map[int64]bool{101: true}); found {
		t.Error("Expected no match with empty rate list")
	}
}

func TestGenerateMissingRouteForOneProduct(t *testing.T) {
	f := newGeneratorFixture()
	f.seedWardrobeOrder(nil)
	// Replace routes with only the wardrobe route, leaving product 200 uncovered.
	routes := memory.NewRouteRepository()
	routes.Add(entity.Route{
		ID: "route-100", ProductID: 100, Name: "衣柜路线",
		Steps: []entity.RouteStep{
			{OperationID: 1, OperationCode: "CUT", OperationName: "开料", StepNumber: 1, IsRequired: true},
		},
	})
	f.repos.Route = routes
	f.svc = NewGeneratorService(f.repos.AsInterfaces(), NewRouteService(zap.NewNop()),
		NewComponentService(f.repos.Component, formula.NewExprEvaluator(), zap.NewNop()),
		formula.NewExprEvaluator(), zap.NewNop())

	_, err := f.svc.GenerateWorkOrders(context.Background(), "order-001")
	if !entity.IsKind(err, entity.ErrMissingRoute) {
		t.Fatalf("Expected MISSING_ROUTE for uncovered product, got %v", err)
	}
}
