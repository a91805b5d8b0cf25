package entity

import "time"

// GroupingStrategy 工单分组策略
const (
	GroupingByOrder    = "BY_ORDER"    // 整单一组
	GroupingByProduct  = "BY_PRODUCT"  // 按产品分组
	GroupingByProperty = "BY_PROPERTY" // 按指定属性值分组
	GroupingNone       = "NO_GROUPING" // 每行单独成组
)

// DefaultMaxGroupSize 单个工单最大明细数，超出时按序切分
const DefaultMaxGroupSize = 100

// Department 生产部门。Priority 用于同一工序注册多个部门时的裁决（取最大）
type Department struct {
	ID                 int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Code               string     `json:"code" gorm:"size:32;not null;uniqueIndex"`
	Name               string     `json:"name" gorm:"size:128;not null"`
	Priority           int        `json:"priority" gorm:"default:0"`
	GroupingStrategy   string     `json:"grouping_strategy" gorm:"size:20;not null;default:NO_GROUPING"`
	GroupingPropertyID *int64     `json:"grouping_property_id"`
	MaxGroupSize       int        `json:"max_group_size" gorm:"default:100"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at" gorm:"index"`

	Operations []DepartmentOperation `json:"operations,omitempty" gorm:"foreignKey:DepartmentID"`
}

func (Department) TableName() string {
	return "mes_departments"
}

// DepartmentOperation 部门承接的工序
type DepartmentOperation struct {
	ID           string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	DepartmentID int64  `json:"department_id" gorm:"not null;index"`
	OperationID  int64  `json:"operation_id" gorm:"not null;index"`
}

func (DepartmentOperation) TableName() string {
	return "mes_department_operations"
}
