package entity

import "time"

// StepSource 工序来源
const (
	StepSourceBaseRoute         = "base_route"
	StepSourcePropertyOperation = "property_operation"
)

// Route 产品基础工艺路线
type Route struct {
	ID        string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ProductID int64      `json:"product_id" gorm:"not null;uniqueIndex"`
	Name      string     `json:"name" gorm:"size:128"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Steps []RouteStep `json:"steps,omitempty" gorm:"foreignKey:RouteID"`
}

func (Route) TableName() string {
	return "mes_routes"
}

// RouteStep 基础路线工序
type RouteStep struct {
	ID            string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	RouteID       string `json:"route_id" gorm:"type:uuid;not null;index"`
	OperationID   int64  `json:"operation_id" gorm:"not null"`
	OperationCode string `json:"operation_code" gorm:"size:32"`
	OperationName string `json:"operation_name" gorm:"size:128"`
	StepNumber    int    `json:"step_number" gorm:"not null"`
	IsRequired    bool   `json:"is_required" gorm:"default:false"`
}

func (RouteStep) TableName() string {
	return "mes_route_steps"
}

// PropertyOperation 属性值与工序的关联规则：选择某属性值即追加对应工序
type PropertyOperation struct {
	ID              string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PropertyID      int64  `json:"property_id" gorm:"not null;index"`
	PropertyValueID int64  `json:"property_value_id" gorm:"not null;index"`
	OperationID     int64  `json:"operation_id" gorm:"not null"`
	OperationCode   string `json:"operation_code" gorm:"size:32"`
	OperationName   string `json:"operation_name" gorm:"size:128"`
	IsRequired      bool   `json:"is_required" gorm:"default:false"`
	Position        int    `json:"position" gorm:"default:0"`
}

func (PropertyOperation) TableName() string {
	return "mes_property_operations"
}

// OperationStep 解析后的路线工序（值对象，不落库）。
// 同一条解析结果中 OperationID 唯一，StepNumber 为 1..N 连续编号
type OperationStep struct {
	OperationID int64  `json:"operation_id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	StepNumber  int    `json:"step_number"`
	IsRequired  bool   `json:"is_required"`
	Source      string `json:"source"`
}
