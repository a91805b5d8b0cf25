package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository/memory"
	"github.com/bitfantasy/nimo-mes/internal/shared/formula"
	"go.uber.org/zap"
)

func testOrderItem() *entity.OrderItem {
	return &entity.OrderItem{
		ID:          "item-001",
		OrderID:     "order-001",
		ProductID:   100,
		ProductName: "两门衣柜",
		Quantity:    3,
		Unit:        "pcs",
		Length:      2000,
		Width:       800,
		Depth:       500,
	}
}

func TestGenerateComponents(t *testing.T) {
	repo := memory.NewComponentRepository()
	svc := NewComponentService(repo, formula.NewExprEvaluator(), zap.NewNop())

	schemas := []entity.ComponentSchema{
		{Name: "侧板", LengthFormula: "H", WidthFormula: "D", QuantityFormula: "2"},
		{Name: "层板", LengthFormula: "W - 36", WidthFormula: "D - 20", QuantityFormula: "3"},
	}

	components := svc.Generate(testOrderItem(), schemas)
	if len(components) != 2 {
		t.Fatalf("Expected 2 components, got %d", len(components))
	}

	side := components[0]
	if side.Length != 2000 || side.Width != 500 || side.Quantity != 2 {
		t.Errorf("Expected side panel 2000x500 qty 2, got %vx%v qty %v", side.Length, side.Width, side.Quantity)
	}
	if side.QuantityTotal != 6 {
		t.Errorf("Expected total quantity 6 for order quantity 3, got %v", side.QuantityTotal)
	}

	shelf := components[1]
	if shelf.Length != 764 || shelf.Width != 480 {
		t.Errorf("Expected shelf 764x480, got %vx%v", shelf.Length, shelf.Width)
	}

	// Snapshot of the evaluation context is stored with the component.
	if side.Context["H"] != 2000 || side.Context["W"] != 800 || side.Context["D"] != 500 {
		t.Errorf("Expected context snapshot with item dimensions, got %v", side.Context)
	}
}

func TestGenerateUsesNumericProperties(t *testing.T) {
	repo := memory.NewComponentRepository()
	svc := NewComponentService(repo, formula.NewExprEvaluator(), zap.NewNop())

	item := testOrderItem()
	item.Properties = []entity.OrderItemProperty{
		{PropertyID: 10, PropertyName: "抽屉数", PropertyValueID: 101, Value: "4"},
		{PropertyID: 20, PropertyName: "颜色", PropertyValueID: 202, Value: "白色"}, // non-numeric, skipped
	}

	schemas := []entity.ComponentSchema{
		{Name: "抽屉面板", LengthFormula: "W / 2", WidthFormula: "200", QuantityFormula: "抽屉数"},
	}
	components := svc.Generate(item, schemas)
	if len(components) != 1 {
		t.Fatalf("Expected 1 component, got %d", len(components))
	}
	if components[0].Quantity != 4 {
		t.Errorf("Expected quantity from property value, got %v", components[0].Quantity)
	}
}

func TestGenerateDropsNonPositiveQuantity(t *testing.T) {
	repo := memory.NewComponentRepository()
	svc := NewComponentService(repo, formula.NewExprEvaluator(), zap.NewNop())

	schemas := []entity.ComponentSchema{
		{Name: "无用件", LengthFormula: "H", WidthFormula: "W", QuantityFormula: "0"},
		{Name: "负数件", LengthFormula: "H", WidthFormula: "W", QuantityFormula: "-1"},
		{Name: "正常件", LengthFormula: "H", WidthFormula: "W", QuantityFormula: "1"},
	}
	components := svc.Generate(testOrderItem(), schemas)
	if len(components) != 1 {
		t.Fatalf("Expected only the positive-quantity component, got %d", len(components))
	}
	if components[0].Name != "正常件" {
		t.Errorf("Expected 正常件, got %s", components[0].Name)
	}
}

func TestGenerateSkipsFailedSchema(t *testing.T) {
	repo := memory.NewComponentRepository()
	svc := NewComponentService(repo, formula.NewExprEvaluator(), zap.NewNop())

	schemas := []entity.ComponentSchema{
		{Name: "坏模板", LengthFormula: "UNDEFINED_VAR + 1", WidthFormula: "W", QuantityFormula: "1"},
		{Name: "好模板", LengthFormula: "H", WidthFormula: "W", QuantityFormula: "1"},
	}
	components := svc.Generate(testOrderItem(), schemas)
	if len(components) != 1 {
		t.Fatalf("Expected failed schema to be skipped, got %d components", len(components))
	}
	if components[0].Name != "好模板" {
		t.Errorf("Expected 好模板, got %s", components[0].Name)
	}
}

func TestRegenerateReplacesOldComponents(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewComponentRepository()
	svc := NewComponentService(repo, formula.NewExprEvaluator(), zap.NewNop())

	item := testOrderItem()
	stale := []entity.Component{
		{OrderItemID: item.ID, Name: "旧侧板", Length: 1, Width: 1, Quantity: 99},
	}
	if err := repo.CreateBatch(ctx, stale); err != nil {
		t.Fatalf("Failed to seed stale components: %v", err)
	}

	schemas := []entity.ComponentSchema{
		{Name: "侧板", LengthFormula: "H", WidthFormula: "D", QuantityFormula: "2"},
	}
	if _, err := svc.Regenerate(ctx, item, schemas); err != nil {
		t.Fatalf("Expected regenerate to succeed, got %v", err)
	}

	stored, err := repo.ListByOrderItemID(ctx, item.ID)
	if err != nil {
		t.Fatalf("Failed to list components: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("Expected old components replaced, got %d", len(stored))
	}
	if stored[0].Name != "侧板" {
		t.Errorf("Expected regenerated 侧板, got %s", stored[0].Name)
	}
}
