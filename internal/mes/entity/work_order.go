package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WorkOrderStatus 工单状态
const (
	WOStatusPlanned      = "PLANNED"
	WOStatusAssigned     = "ASSIGNED"
	WOStatusInProgress   = "IN_PROGRESS"
	WOStatusQualityCheck = "QUALITY_CHECK"
	WOStatusCompleted    = "COMPLETED"
	WOStatusCancelled    = "CANCELLED"
)

// 工单优先级取值范围
const (
	MinPriority = 1
	MaxPriority = 10
)

// workOrderTransitions 合法状态迁移表。COMPLETED 与 CANCELLED 为终态
var workOrderTransitions = map[string][]string{
	WOStatusPlanned:      {WOStatusAssigned, WOStatusCancelled},
	WOStatusAssigned:     {WOStatusInProgress, WOStatusCancelled},
	WOStatusInProgress:   {WOStatusQualityCheck, WOStatusCancelled},
	WOStatusQualityCheck: {WOStatusCompleted, WOStatusInProgress, WOStatusCancelled},
	WOStatusCompleted:    {},
	WOStatusCancelled:    {},
}

// WorkOrderStatuses 对外暴露的状态全集
var WorkOrderStatuses = []string{
	WOStatusPlanned, WOStatusAssigned, WOStatusInProgress,
	WOStatusQualityCheck, WOStatusCompleted, WOStatusCancelled,
}

// CanTransition 判断状态迁移是否在迁移表内
func CanTransition(from, to string) bool {
	for _, t := range workOrderTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus 是否终态
func IsTerminalStatus(status string) bool {
	return status == WOStatusCompleted || status == WOStatusCancelled
}

// WorkOrder 生产工单聚合根。
// 状态只能通过迁移方法变更，迁移方法采用值接收者，返回变更后的快照或领域错误，
// 不对原对象做隐式修改；持久化按整聚合替换
type WorkOrder struct {
	ID                     string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	WONumber               string     `json:"wo_number" gorm:"size:50;not null;uniqueIndex"`
	OrderID                string     `json:"order_id" gorm:"type:uuid;not null;index"`
	OrderNumber            string     `json:"order_number" gorm:"size:50"`
	DepartmentID           int64      `json:"department_id" gorm:"not null;index"`
	DepartmentName         string     `json:"department_name" gorm:"size:128"`
	OperationID            int64      `json:"operation_id" gorm:"not null;index"`
	OperationName          string     `json:"operation_name" gorm:"size:128"`
	Status                 string     `json:"status" gorm:"size:20;not null;default:PLANNED;index"`
	Priority               int        `json:"priority" gorm:"not null;default:5"`
	PriorityOverride       *int       `json:"priority_override"`
	PriorityOverrideReason string     `json:"priority_override_reason" gorm:"size:512"`
	Deadline               *time.Time `json:"deadline"`
	GroupKey               string     `json:"group_key" gorm:"size:128"`
	AssignedAt             *time.Time `json:"assigned_at"`
	StartedAt              *time.Time `json:"started_at"`
	QualityCheckAt         *time.Time `json:"quality_check_at"`
	CompletedAt            *time.Time `json:"completed_at"`
	CancelledAt            *time.Time `json:"cancelled_at"`
	Notes                  string     `json:"notes" gorm:"type:text"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`

	Items []WorkOrderItem `json:"items,omitempty" gorm:"foreignKey:WorkOrderID"`
}

func (WorkOrder) TableName() string {
	return "mes_work_orders"
}

// NewWorkOrder 创建 PLANNED 状态的空工单
func NewWorkOrder(id, woNumber string, order *Order, departmentID int64, departmentName string, operationID int64, operationName string, priority int, groupKey string, now time.Time) (WorkOrder, error) {
	if priority < MinPriority || priority > MaxPriority {
		return WorkOrder{}, NewDomainError(ErrValidation, "工单优先级必须在 %d-%d 之间: %d", MinPriority, MaxPriority, priority)
	}
	return WorkOrder{
		ID:             id,
		WONumber:       woNumber,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		DepartmentID:   departmentID,
		DepartmentName: departmentName,
		OperationID:    operationID,
		OperationName:  operationName,
		Status:         WOStatusPlanned,
		Priority:       priority,
		Deadline:       order.Deadline,
		GroupKey:       groupKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// EffectivePriority 有效优先级：人工覆盖值优先，否则取系统计算值
func (w WorkOrder) EffectivePriority() int {
	if w.PriorityOverride != nil {
		return *w.PriorityOverride
	}
	return w.Priority
}

func (w WorkOrder) transition(to string) (WorkOrder, error) {
	if !CanTransition(w.Status, to) {
		return w, NewDomainError(ErrInvalidTransition, "工单 %s 不允许从 %s 迁移到 %s", w.WONumber, w.Status, to)
	}
	w.Status = to
	return w, nil
}

// AddItem 追加工单明细，仅 PLANNED 状态允许
func (w WorkOrder) AddItem(item WorkOrderItem) (WorkOrder, error) {
	if w.Status != WOStatusPlanned {
		return w, NewDomainError(ErrValidation, "工单 %s 状态为 %s，只有 PLANNED 状态可以修改明细", w.WONumber, w.Status)
	}
	if err := item.Validate(); err != nil {
		return w, err
	}
	items := make([]WorkOrderItem, len(w.Items), len(w.Items)+1)
	copy(items, w.Items)
	w.Items = append(items, item)
	return w, nil
}

// RemoveItem 移除工单明细，仅 PLANNED 状态允许
func (w WorkOrder) RemoveItem(itemID string) (WorkOrder, error) {
	if w.Status != WOStatusPlanned {
		return w, NewDomainError(ErrValidation, "工单 %s 状态为 %s，只有 PLANNED 状态可以修改明细", w.WONumber, w.Status)
	}
	items := make([]WorkOrderItem, 0, len(w.Items))
	found := false
	for _, it := range w.Items {
		if it.ID == itemID {
			found = true
			continue
		}
		items = append(items, it)
	}
	if !found {
		return w, NewDomainError(ErrValidation, "工单 %s 中不存在明细 %s", w.WONumber, itemID)
	}
	w.Items = items
	return w, nil
}

// Assign 下发工单。要求至少一条明细，打 AssignedAt 时间戳（仅一次）
func (w WorkOrder) Assign(now time.Time) (WorkOrder, error) {
	if len(w.Items) == 0 {
		return w, NewDomainError(ErrValidation, "工单 %s 没有明细，不能下发", w.WONumber)
	}
	next, err := w.transition(WOStatusAssigned)
	if err != nil {
		return w, err
	}
	if next.AssignedAt == nil {
		next.AssignedAt = &now
	}
	return next, nil
}

// Start 开工，仅允许从 ASSIGNED 进入
func (w WorkOrder) Start(now time.Time) (WorkOrder, error) {
	next, err := w.transition(WOStatusInProgress)
	if err != nil {
		return w, err
	}
	if next.StartedAt == nil {
		next.StartedAt = &now
	}
	return next, nil
}

// SendToQualityCheck 送检，仅允许从 IN_PROGRESS 进入
func (w WorkOrder) SendToQualityCheck(now time.Time) (WorkOrder, error) {
	next, err := w.transition(WOStatusQualityCheck)
	if err != nil {
		return w, err
	}
	if next.QualityCheckAt == nil {
		next.QualityCheckAt = &now
	}
	return next, nil
}

// Complete 完工，仅允许从 QUALITY_CHECK 进入
func (w WorkOrder) Complete(now time.Time) (WorkOrder, error) {
	next, err := w.transition(WOStatusCompleted)
	if err != nil {
		return w, err
	}
	if next.CompletedAt == nil {
		next.CompletedAt = &now
	}
	return next, nil
}

// ReturnToProgress 质检退回返工。StartedAt 不重复打戳
func (w WorkOrder) ReturnToProgress() (WorkOrder, error) {
	if w.Status != WOStatusQualityCheck {
		return w, NewDomainError(ErrInvalidTransition, "工单 %s 状态为 %s，只有质检中的工单可以退回返工", w.WONumber, w.Status)
	}
	return w.transition(WOStatusInProgress)
}

// Cancel 作废工单。已完工的工单不可作废，作废原因必填并前置到备注
func (w WorkOrder) Cancel(reason string, now time.Time) (WorkOrder, error) {
	if strings.TrimSpace(reason) == "" {
		return w, NewDomainError(ErrValidation, "作废工单 %s 必须填写原因", w.WONumber)
	}
	if w.Status == WOStatusCompleted {
		return w, NewDomainError(ErrInvalidTransition, "工单 %s 已完工，不能作废", w.WONumber)
	}
	next, err := w.transition(WOStatusCancelled)
	if err != nil {
		return w, err
	}
	if next.Notes != "" {
		next.Notes = fmt.Sprintf("[作废] %s\n%s", reason, next.Notes)
	} else {
		next.Notes = fmt.Sprintf("[作废] %s", reason)
	}
	if next.CancelledAt == nil {
		next.CancelledAt = &now
	}
	return next, nil
}

// OverridePriority 人工覆盖优先级，必须附原因
func (w WorkOrder) OverridePriority(priority int, reason string) (WorkOrder, error) {
	if priority < MinPriority || priority > MaxPriority {
		return w, NewDomainError(ErrValidation, "工单优先级必须在 %d-%d 之间: %d", MinPriority, MaxPriority, priority)
	}
	if strings.TrimSpace(reason) == "" {
		return w, NewDomainError(ErrValidation, "覆盖工单 %s 优先级必须填写原因", w.WONumber)
	}
	w.PriorityOverride = &priority
	w.PriorityOverrideReason = reason
	return w, nil
}

// CalculatedMaterial 工单明细的物料消耗计算结果
type CalculatedMaterial struct {
	MaterialID      int64   `json:"material_id"`
	MaterialCode    string  `json:"material_code"`
	MaterialName    string  `json:"material_name"`
	QuantityPerUnit float64 `json:"quantity_per_unit"`
	QuantityTotal   float64 `json:"quantity_total"`
	Unit            string  `json:"unit"`
}

// MaterialCalculation 物料清单及生成时的尺寸快照，jsonb 存储
type MaterialCalculation struct {
	Materials []CalculatedMaterial `json:"materials"`
	Height    float64              `json:"h"`
	Width     float64              `json:"w"`
	Depth     float64              `json:"d"`
	Quantity  float64              `json:"q"`
}

func (m MaterialCalculation) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *MaterialCalculation) Scan(value interface{}) error {
	if value == nil {
		*m = MaterialCalculation{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("无法将 %T 扫描为 MaterialCalculation", value)
	}
}

// WorkOrderItem 工单明细，对应一条订单明细在某道工序上的任务
type WorkOrderItem struct {
	ID                  string              `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	WorkOrderID         string              `json:"work_order_id" gorm:"type:uuid;not null;index"`
	OrderItemID         string              `json:"order_item_id" gorm:"type:uuid;not null;index"`
	ProductID           int64               `json:"product_id" gorm:"not null"`
	ProductName         string              `json:"product_name" gorm:"size:128"`
	OperationID         int64               `json:"operation_id" gorm:"not null"`
	OperationName       string              `json:"operation_name" gorm:"size:128"`
	Quantity            float64             `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit                string              `json:"unit" gorm:"size:20;not null;default:pcs"`
	EstimatedHours      float64             `json:"estimated_hours" gorm:"type:decimal(12,4);not null;default:0"`
	PieceRate           float64             `json:"piece_rate" gorm:"type:decimal(12,4);not null;default:0"`
	ActualHours         *float64            `json:"actual_hours" gorm:"type:decimal(12,4)"`
	CalculatedMaterials MaterialCalculation `json:"calculated_materials" gorm:"type:jsonb"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func (WorkOrderItem) TableName() string {
	return "mes_work_order_items"
}

// Validate 校验明细不变量
func (it WorkOrderItem) Validate() error {
	if it.Quantity <= 0 {
		return NewDomainError(ErrValidation, "工单明细数量必须大于0: %v", it.Quantity)
	}
	if it.EstimatedHours < 0 {
		return NewDomainError(ErrValidation, "工单明细预估工时不能为负: %v", it.EstimatedHours)
	}
	if it.PieceRate < 0 {
		return NewDomainError(ErrValidation, "工单明细计件单价不能为负: %v", it.PieceRate)
	}
	if it.ActualHours != nil && *it.ActualHours < 0 {
		return NewDomainError(ErrValidation, "工单明细实际工时不能为负: %v", *it.ActualHours)
	}
	return nil
}

// RecordActualHours 记录实际工时
func (it WorkOrderItem) RecordActualHours(hours float64) (WorkOrderItem, error) {
	if hours < 0 {
		return it, NewDomainError(ErrValidation, "实际工时不能为负: %v", hours)
	}
	it.ActualHours = &hours
	return it, nil
}

// PieceRatePayment 计件工资 = 计件单价 × 数量
func (it WorkOrderItem) PieceRatePayment() float64 {
	return it.PieceRate * it.Quantity
}
