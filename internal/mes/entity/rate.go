package entity

import "time"

// OperationRate 工序工价。PropertyValueID 为空表示通用工价，
// 否则为绑定特定属性值的专用工价
type OperationRate struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OperationID     int64     `json:"operation_id" gorm:"not null;index"`
	PropertyValueID *int64    `json:"property_value_id" gorm:"index"`
	TimePerUnit     float64   `json:"time_per_unit" gorm:"type:decimal(12,4);not null;default:0"`
	RatePerUnit     float64   `json:"rate_per_unit" gorm:"type:decimal(12,4);not null;default:0"`
	Position        int       `json:"position" gorm:"default:0"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (OperationRate) TableName() string {
	return "mes_operation_rates"
}

// IsGeneral 是否通用工价
func (r *OperationRate) IsGeneral() bool {
	return r.PropertyValueID == nil
}

// MaterialFormula 工序物料消耗公式。ProductID 为空表示不限产品
type MaterialFormula struct {
	ID                 string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OperationID        int64     `json:"operation_id" gorm:"not null;index"`
	ProductID          *int64    `json:"product_id" gorm:"index"`
	MaterialID         int64     `json:"material_id" gorm:"not null"`
	MaterialCode       string    `json:"material_code" gorm:"size:64"`
	MaterialName       string    `json:"material_name" gorm:"size:128"`
	Unit               string    `json:"unit" gorm:"size:20;not null;default:pcs"`
	ConsumptionFormula string    `json:"consumption_formula" gorm:"size:512;not null"`
	Position           int       `json:"position" gorm:"default:0"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (MaterialFormula) TableName() string {
	return "mes_material_formulas"
}

// AppliesTo 判断公式是否适用于指定工序和产品
func (f *MaterialFormula) AppliesTo(operationID, productID int64) bool {
	if f.OperationID != operationID {
		return false
	}
	return f.ProductID == nil || *f.ProductID == productID
}
