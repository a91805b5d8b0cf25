package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有MES表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 订单
		&Order{},
		&OrderItem{},
		&OrderItemProperty{},

		// 工艺
		&Route{},
		&RouteStep{},
		&PropertyOperation{},
		&OperationRate{},
		&MaterialFormula{},

		// 部门
		&Department{},
		&DepartmentOperation{},

		// 部件分解
		&ComponentSchema{},
		&Component{},

		// 工单
		&WorkOrder{},
		&WorkOrderItem{},
	)
}
