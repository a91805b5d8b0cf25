package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"go.uber.org/zap"
)

// WorkOrderService 工单生命周期服务：加载聚合，应用迁移，整体保存
type WorkOrderService struct {
	woRepo        repository.WorkOrderRepository
	componentRepo repository.ComponentRepository
	logger        *zap.Logger
	now           func() time.Time
}

func NewWorkOrderService(woRepo repository.WorkOrderRepository, componentRepo repository.ComponentRepository, logger *zap.Logger) *WorkOrderService {
	return &WorkOrderService{
		woRepo:        woRepo,
		componentRepo: componentRepo,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *WorkOrderService) GetByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.woRepo.FindByID(ctx, id)
}

func (s *WorkOrderService) ListByOrderID(ctx context.Context, orderID string) ([]entity.WorkOrder, error) {
	return s.woRepo.FindByOrderID(ctx, orderID)
}

func (s *WorkOrderService) List(ctx context.Context, params repository.WOListParams) ([]entity.WorkOrder, int64, error) {
	return s.woRepo.List(ctx, params)
}

func (s *WorkOrderService) apply(ctx context.Context, id string, op string, fn func(entity.WorkOrder) (entity.WorkOrder, error)) (*entity.WorkOrder, error) {
	wo, err := s.woRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(*wo)
	if err != nil {
		return nil, err
	}
	if err := s.woRepo.Update(ctx, &next); err != nil {
		return nil, err
	}
	s.logger.Info("Work order transition",
		zap.String("wo_number", next.WONumber),
		zap.String("operation", op),
		zap.String("from", wo.Status),
		zap.String("to", next.Status),
	)
	return &next, nil
}

// Assign 下发
func (s *WorkOrderService) Assign(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.apply(ctx, id, "assign", func(wo entity.WorkOrder) (entity.WorkOrder, error) {
		return wo.Assign(s.now())
	})
}

// Start 开工
func (s *WorkOrderService) Start(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.apply(ctx, id, "start", func(wo entity.WorkOrder) (entity.WorkOrder, error) {
		return wo.Start(s.now())
	})
}

// SendToQualityCheck 送检
func (s *WorkOrderService) SendToQualityCheck(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.apply(ctx, id, "quality_check", func(wo entity.WorkOrder) (entity.WorkOrder, error) {
		return wo.SendToQualityCheck(s.now())
	})
}

// Complete 完工
func (s *WorkOrderService) Complete(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.apply(ctx, id, "complete", func(wo entity.WorkOrder) (entity.WorkOrder, error) {
		return wo.Complete(s.now())
	})
}

// ReturnToProgress 质检退回返工
func (s *WorkOrderService) ReturnToProgress(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.apply(ctx, id, "return_to_progress", func(wo entity.WorkOrder) (entity.WorkOrder, error) {
		return wo.ReturnToProgress()
	})
}

// Cancel 作废
func (s *WorkOrderService) Cancel(ctx context.Context, id, reason string) (*entity.WorkOrder, error) {
	return s.apply(ctx, id, "cancel", func(wo entity.WorkOrder) (entity.WorkOrder, error) {
		return wo.Cancel(reason, s.now())
	})
}

// RecordActualHours 记录某条明细的实际工时
func (s *WorkOrderService) RecordActualHours(ctx context.Context, id, itemID string, hours float64) (*entity.WorkOrder, error) {
	return s.apply(ctx, id, "record_actual_hours", func(wo entity.WorkOrder) (entity.WorkOrder, error) {
		for i := range wo.Items {
			if wo.Items[i].ID != itemID {
				continue
			}
			updated, err := wo.Items[i].RecordActualHours(hours)
			if err != nil {
				return wo, err
			}
			items := make([]entity.WorkOrderItem, len(wo.Items))
			copy(items, wo.Items)
			items[i] = updated
			wo.Items = items
			return wo, nil
		}
		return wo, entity.NewDomainError(entity.ErrValidation, "工单 %s 中不存在明细 %s", wo.WONumber, itemID)
	})
}

// CNCExport 下游CNC导出的数据形状
type CNCExport struct {
	WorkOrderID     string          `json:"workOrderId"`
	WorkOrderNumber string          `json:"workOrderNumber"`
	Operation       string          `json:"operation"`
	CreatedAt       time.Time       `json:"createdAt"`
	Items           []CNCExportItem `json:"items"`
}

type CNCExportItem struct {
	ProductName string               `json:"productName"`
	OrderItemID string               `json:"orderItemId"`
	Quantity    float64              `json:"quantity"`
	Components  []CNCExportComponent `json:"components"`
}

type CNCExportComponent struct {
	Name          string                `json:"name"`
	Length        float64               `json:"length"`
	Width         float64               `json:"width"`
	Quantity      float64               `json:"quantity"`
	QuantityTotal float64               `json:"quantityTotal"`
	Context       entity.FormulaContext `json:"context"`
}

// ExportForCNC 组装工单的CNC导出数据：工单明细加上各订单明细的部件清单
func (s *WorkOrderService) ExportForCNC(ctx context.Context, id string) (*CNCExport, error) {
	wo, err := s.woRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	export := &CNCExport{
		WorkOrderID:     wo.ID,
		WorkOrderNumber: wo.WONumber,
		Operation:       wo.OperationName,
		CreatedAt:       wo.CreatedAt,
		Items:           make([]CNCExportItem, 0, len(wo.Items)),
	}
	for _, item := range wo.Items {
		components, err := s.componentRepo.ListByOrderItemID(ctx, item.OrderItemID)
		if err != nil {
			return nil, err
		}
		exportItem := CNCExportItem{
			ProductName: item.ProductName,
			OrderItemID: item.OrderItemID,
			Quantity:    item.Quantity,
			Components:  make([]CNCExportComponent, 0, len(components)),
		}
		for _, c := range components {
			exportItem.Components = append(exportItem.Components, CNCExportComponent{
				Name:          c.Name,
				Length:        c.Length,
				Width:         c.Width,
				Quantity:      c.Quantity,
				QuantityTotal: c.QuantityTotal,
				Context:       c.Context,
			})
		}
		export.Items = append(export.Items, exportItem)
	}
	return export, nil
}
