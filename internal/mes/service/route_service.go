package service

import (
	"fmt"
	"sort"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"go.uber.org/zap"
)

// 属性工序的临时编号起点：排在基础工序之后，重编号前生效
const propertyStepNumberBase = 1000

// RouteService 解析产品的实际工艺路线：
// 基础路线 + 属性值触发的追加工序，按工序去重后重新编号
type RouteService struct {
	logger *zap.Logger
}

func NewRouteService(logger *zap.Logger) *RouteService {
	return &RouteService{logger: logger}
}

// BuildSteps 合并基础路线与属性触发工序。
// selectedValues 为明细的属性选择 propertyID → propertyValueID，
// propertyOps 为与产品相关的全部属性工序规则（可为空，遍历顺序即注入顺序）。
// 合并规则：同一工序先出现者保留；后出现者仅当把 IsRequired 从 false 升为 true
// 时生效（工序名加注），必选永远不会被可选覆盖。
// 结果按合并前编号稳定排序，再从 1 连续重编号
func (s *RouteService) BuildSteps(route *entity.Route, selectedValues map[int64]int64, propertyOps []entity.PropertyOperation) ([]entity.OperationStep, error) {
	if route == nil {
		return nil, entity.NewDomainError(entity.ErrValidation, "工艺路线不能为空")
	}
	if route.Steps == nil {
		return nil, entity.NewDomainError(entity.ErrValidation, "工艺路线 %s 没有工序明细", route.Name)
	}

	candidates := make([]entity.OperationStep, 0, len(route.Steps)+len(propertyOps))
	for _, st := range route.Steps {
		candidates = append(candidates, entity.OperationStep{
			OperationID: st.OperationID,
			Code:        st.OperationCode,
			Name:        st.OperationName,
			StepNumber:  st.StepNumber,
			IsRequired:  st.IsRequired,
			Source:      entity.StepSourceBaseRoute,
		})
	}

	next := propertyStepNumberBase
	for _, po := range propertyOps {
		valueID, ok := selectedValues[po.PropertyID]
		if !ok || valueID != po.PropertyValueID {
			continue
		}
		candidates = append(candidates, entity.OperationStep{
			OperationID: po.OperationID,
			Code:        po.OperationCode,
			Name:        po.OperationName,
			StepNumber:  next,
			IsRequired:  po.IsRequired,
			Source:      entity.StepSourcePropertyOperation,
		})
		next++
	}

	merged := make([]entity.OperationStep, 0, len(candidates))
	index := make(map[int64]int, len(candidates))
	for _, c := range candidates {
		if i, ok := index[c.OperationID]; ok {
			if !merged[i].IsRequired && c.IsRequired {
				merged[i].IsRequired = true
				merged[i].Name = fmt.Sprintf("%s（必须）", merged[i].Name)
			}
			continue
		}
		index[c.OperationID] = len(merged)
		merged = append(merged, c)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StepNumber < merged[j].StepNumber
	})
	for i := range merged {
		merged[i].StepNumber = i + 1
	}

	if s.logger != nil {
		s.logger.Debug("Route resolved",
			zap.Int64("product_id", route.ProductID),
			zap.Int("base_steps", len(route.Steps)),
			zap.Int("resolved_steps", len(merged)),
		)
	}
	return merged, nil
}

// ValidateRouteCompleteness 浅校验：路线必须含至少一道必选工序。
// 不检查实际完工状态
func (s *RouteService) ValidateRouteCompleteness(steps []entity.OperationStep) error {
	for _, st := range steps {
		if st.IsRequired {
			return nil
		}
	}
	return entity.NewDomainError(entity.ErrValidation, "工艺路线没有必选工序")
}
