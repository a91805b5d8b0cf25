package entity

import (
	"strconv"
	"time"
)

// OrderStatus 销售订单状态
const (
	OrderStatusPending    = "PENDING"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusInWork     = "IN_WORK"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
)

// Order 销售订单（工单生成的输入，订单本身的维护在外部系统）
type Order struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderNumber  string     `json:"order_number" gorm:"size:50;not null;uniqueIndex"`
	CustomerName string     `json:"customer_name" gorm:"size:128"`
	Status       string     `json:"status" gorm:"size:20;not null;default:PENDING"`
	Deadline     *time.Time `json:"deadline"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "mes_orders"
}

// OrderItem 订单明细。Length/Width/Depth 为成品外形尺寸（毫米），
// 在公式上下文中分别映射为 H / W / D
type OrderItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderID     string    `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID   int64     `json:"product_id" gorm:"not null;index"`
	ProductName string    `json:"product_name" gorm:"size:128"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit        string    `json:"unit" gorm:"size:20;not null;default:pcs"`
	Length      float64   `json:"length" gorm:"type:decimal(12,2);default:0"`
	Width       float64   `json:"width" gorm:"type:decimal(12,2);default:0"`
	Depth       float64   `json:"depth" gorm:"type:decimal(12,2);default:0"`
	Position    int       `json:"position" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Properties []OrderItemProperty `json:"properties,omitempty" gorm:"foreignKey:OrderItemID"`
	Components []Component         `json:"components,omitempty" gorm:"foreignKey:OrderItemID"`
}

func (OrderItem) TableName() string {
	return "mes_order_items"
}

// OrderItemProperty 订单明细的属性选择。Value 为属性值字面量，
// 可解析为数字的值会参与公式计算
type OrderItemProperty struct {
	ID              string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderItemID     string `json:"order_item_id" gorm:"type:uuid;not null;index"`
	PropertyID      int64  `json:"property_id" gorm:"not null"`
	PropertyName    string `json:"property_name" gorm:"size:64"`
	PropertyValueID int64  `json:"property_value_id" gorm:"not null"`
	Value           string `json:"value" gorm:"size:128"`
}

func (OrderItemProperty) TableName() string {
	return "mes_order_item_properties"
}

// SelectedValues 属性选择映射 propertyID → propertyValueID
func (i *OrderItem) SelectedValues() map[int64]int64 {
	m := make(map[int64]int64, len(i.Properties))
	for _, p := range i.Properties {
		m[p.PropertyID] = p.PropertyValueID
	}
	return m
}

// SelectedValueSet 已选属性值ID集合（工价匹配用）
func (i *OrderItem) SelectedValueSet() map[int64]bool {
	m := make(map[int64]bool, len(i.Properties))
	for _, p := range i.Properties {
		m[p.PropertyValueID] = true
	}
	return m
}

// FormulaContext 公式计算上下文：H/W/D 尺寸加上所有数值型属性
func (i *OrderItem) FormulaContext() map[string]float64 {
	vars := map[string]float64{
		"H": i.Length,
		"W": i.Width,
		"D": i.Depth,
	}
	for _, p := range i.Properties {
		if v, err := strconv.ParseFloat(p.Value, 64); err == nil {
			vars[p.PropertyName] = v
		}
	}
	return vars
}
