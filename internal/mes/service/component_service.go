package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/shared/formula"
	"go.uber.org/zap"
)

// ComponentService 按产品的分解模板把订单明细拆成物理部件。
// 单个模板的公式求值失败只跳过该模板，不影响其余模板
type ComponentService struct {
	componentRepo repository.ComponentRepository
	eval          formula.Evaluator
	logger        *zap.Logger
}

func NewComponentService(componentRepo repository.ComponentRepository, eval formula.Evaluator, logger *zap.Logger) *ComponentService {
	return &ComponentService{componentRepo: componentRepo, eval: eval, logger: logger}
}

// Generate 对明细逐模板求值，返回数量大于0的部件。
// 上下文为 H/W/D 尺寸加数值型属性，快照存入部件
func (s *ComponentService) Generate(item *entity.OrderItem, schemas []entity.ComponentSchema) []entity.Component {
	vars := item.FormulaContext()
	components := make([]entity.Component, 0, len(schemas))
	for _, schema := range schemas {
		length, err := s.eval.Evaluate(schema.LengthFormula, vars)
		if err != nil {
			s.skip(item, schema, "length", err)
			continue
		}
		width, err := s.eval.Evaluate(schema.WidthFormula, vars)
		if err != nil {
			s.skip(item, schema, "width", err)
			continue
		}
		quantity, err := s.eval.Evaluate(schema.QuantityFormula, vars)
		if err != nil {
			s.skip(item, schema, "quantity", err)
			continue
		}
		if quantity <= 0 {
			continue
		}
		components = append(components, entity.Component{
			OrderItemID:   item.ID,
			Name:          schema.Name,
			Length:        length,
			Width:         width,
			Quantity:      quantity,
			QuantityTotal: quantity * item.Quantity,
			Context:       vars,
		})
	}
	return components
}

// Regenerate 重新生成明细的部件集合：先删除旧部件再插入新部件，
// 整体替换而非增量合并
func (s *ComponentService) Regenerate(ctx context.Context, item *entity.OrderItem, schemas []entity.ComponentSchema) ([]entity.Component, error) {
	components := s.Generate(item, schemas)
	if err := s.componentRepo.DeleteByOrderItemID(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("删除明细 %s 的旧部件失败: %w", item.ID, err)
	}
	if err := s.componentRepo.CreateBatch(ctx, components); err != nil {
		return nil, fmt.Errorf("保存明细 %s 的部件失败: %w", item.ID, err)
	}
	return components, nil
}

func (s *ComponentService) skip(item *entity.OrderItem, schema entity.ComponentSchema, field string, err error) {
	if s.logger != nil {
		s.logger.Warn("Component schema evaluation failed, skipping",
			zap.String("order_item_id", item.ID),
			zap.String("schema", schema.Name),
			zap.String("field", field),
			zap.Error(err),
		)
	}
}
