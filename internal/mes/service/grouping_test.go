package service

import (
	"fmt"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
)

func groupingItems() []entity.OrderItem {
	return []entity.OrderItem{
		{ID: "item-1", ProductID: 100, Quantity: 1},
		{ID: "item-2", ProductID: 100, Quantity: 2},
		{ID: "item-3", ProductID: 200, Quantity: 1},
	}
}

func TestGroupByOrder(t *testing.T) {
	dept := &entity.Department{ID: 1, GroupingStrategy: entity.GroupingByOrder}
	groups := GroupItems(groupingItems(), dept)
	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(groups))
	}
	if len(groups[0].Items) != 3 {
		t.Errorf("Expected all 3 items in one group, got %d", len(groups[0].Items))
	}
}

func TestGroupByProduct(t *testing.T) {
	dept := &entity.Department{ID: 1, GroupingStrategy: entity.GroupingByProduct}
	groups := GroupItems(groupingItems(), dept)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	// First-appearance order of products.
	if groups[0].Key != "product-100" || groups[1].Key != "product-200" {
		t.Errorf("Expected keys [product-100 product-200], got [%s %s]", groups[0].Key, groups[1].Key)
	}
	if len(groups[0].Items) != 2 || len(groups[1].Items) != 1 {
		t.Errorf("Expected group sizes 2 and 1, got %d and %d", len(groups[0].Items), len(groups[1].Items))
	}
}

func TestGroupByProperty(t *testing.T) {
	propertyID := int64(10)
	dept := &entity.Department{
		ID:                 1,
		GroupingStrategy:   entity.GroupingByProperty,
		GroupingPropertyID: &propertyID,
	}

	items := groupingItems()
	items[0].Properties = []entity.OrderItemProperty{{PropertyID: 10, PropertyValueID: 101}}
	items[2].Properties = []entity.OrderItemProperty{{PropertyID: 10, PropertyValueID: 101}}
	// items[1] has no value for property 10 and becomes a singleton group.

	groups := GroupItems(items, dept)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	if groups[0].Key != "property-101" || len(groups[0].Items) != 2 {
		t.Errorf("Expected property-101 with 2 items, got %s with %d", groups[0].Key, len(groups[0].Items))
	}
	if groups[1].Key != "item-item-2" || len(groups[1].Items) != 1 {
		t.Errorf("Expected singleton group for item-2, got %s with %d", groups[1].Key, len(groups[1].Items))
	}
}

func TestGroupByPropertyWithoutPropertyFallsBack(t *testing.T) {
	dept := &entity.Department{
		ID:               1,
		GroupingStrategy: entity.GroupingByProperty,
		// GroupingPropertyID not configured
	}
	groups := GroupItems(groupingItems(), dept)
	if len(groups) != 3 {
		t.Fatalf("Expected fallback to one group per item, got %d groups", len(groups))
	}
}

func TestNoGrouping(t *testing.T) {
	dept := &entity.Department{ID: 1, GroupingStrategy: entity.GroupingNone}
	groups := GroupItems(groupingItems(), dept)
	if len(groups) != 3 {
		t.Fatalf("Expected 3 singleton groups, got %d", len(groups))
	}
	for i, g := range groups {
		if len(g.Items) != 1 {
			t.Errorf("Expected singleton group at index %d, got %d items", i, len(g.Items))
		}
	}
}

func TestGroupChunking(t *testing.T) {
	dept := &entity.Department{ID: 1, GroupingStrategy: entity.GroupingByOrder, MaxGroupSize: 2}

	items := make([]entity.OrderItem, 5)
	for i := range items {
		items[i] = entity.OrderItem{ID: fmt.Sprintf("item-%d", i+1), ProductID: 100, Quantity: 1}
	}

	groups := GroupItems(items, dept)
	if len(groups) != 3 {
		t.Fatalf("Expected 3 chunks of [2 2 1], got %d groups", len(groups))
	}
	wantKeys := []string{"order-1", "order-2", "order-3"}
	wantSizes := []int{2, 2, 1}
	for i, g := range groups {
		if g.Key != wantKeys[i] {
			t.Errorf("Expected key %s, got %s", wantKeys[i], g.Key)
		}
		if len(g.Items) != wantSizes[i] {
			t.Errorf("Expected chunk size %d, got %d", wantSizes[i], len(g.Items))
		}
	}
	// Item order survives chunking.
	if groups[0].Items[0].ID != "item-1" || groups[2].Items[0].ID != "item-5" {
		t.Error("Expected chunking to preserve item order")
	}
}

func TestDefaultMaxGroupSize(t *testing.T) {
	dept := &entity.Department{ID: 1, GroupingStrategy: entity.GroupingByOrder}

	items := make([]entity.OrderItem, entity.DefaultMaxGroupSize+1)
	for i := range items {
		items[i] = entity.OrderItem{ID: fmt.Sprintf("item-%d", i+1), ProductID: 100, Quantity: 1}
	}

	groups := GroupItems(items, dept)
	if len(groups) != 2 {
		t.Fatalf("Expected default max size to split into 2 groups, got %d", len(groups))
	}
	if len(groups[0].Items) != entity.DefaultMaxGroupSize {
		t.Errorf("Expected first chunk of %d, got %d", entity.DefaultMaxGroupSize, len(groups[0].Items))
	}
}
