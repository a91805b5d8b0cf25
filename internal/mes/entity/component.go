package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FormulaContext 公式计算上下文快照，jsonb 存储
type FormulaContext map[string]float64

func (c FormulaContext) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func (c *FormulaContext) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("无法将 %T 扫描为 FormulaContext", value)
	}
}

// ComponentSchema 产品部件分解模板：三个公式分别计算部件的长、宽、数量
type ComponentSchema struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ProductID       int64     `json:"product_id" gorm:"not null;index"`
	Name            string    `json:"name" gorm:"size:128;not null"`
	LengthFormula   string    `json:"length_formula" gorm:"size:512;not null"`
	WidthFormula    string    `json:"width_formula" gorm:"size:512;not null"`
	QuantityFormula string    `json:"quantity_formula" gorm:"size:512;not null"`
	Position        int       `json:"position" gorm:"default:0"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ComponentSchema) TableName() string {
	return "mes_component_schemas"
}

// Component 订单明细分解出的物理部件。每次生成整体替换（先删后插），不做增量合并
type Component struct {
	ID            string         `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderItemID   string         `json:"order_item_id" gorm:"type:uuid;not null;index"`
	Name          string         `json:"name" gorm:"size:128;not null"`
	Length        float64        `json:"length" gorm:"type:decimal(12,2);not null;default:0"`
	Width         float64        `json:"width" gorm:"type:decimal(12,2);not null;default:0"`
	Quantity      float64        `json:"quantity" gorm:"type:decimal(12,4);not null"`
	QuantityTotal float64        `json:"quantity_total" gorm:"type:decimal(12,4);not null"`
	Context       FormulaContext `json:"context" gorm:"type:jsonb"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (Component) TableName() string {
	return "mes_components"
}
