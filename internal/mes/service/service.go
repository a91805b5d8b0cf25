package service

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/shared/formula"
	"go.uber.org/zap"
)

// Services MES 服务集合
type Services struct {
	Route     *RouteService
	Component *ComponentService
	Generator *GeneratorService
	WorkOrder *WorkOrderService
	Priority  *PriorityService
}

func NewServices(repos *repository.Repositories, eval formula.Evaluator, logger *zap.Logger) *Services {
	routeSvc := NewRouteService(logger)
	componentSvc := NewComponentService(repos.Component, eval, logger)
	return &Services{
		Route:     routeSvc,
		Component: componentSvc,
		Generator: NewGeneratorService(repos, routeSvc, componentSvc, eval, logger),
		WorkOrder: NewWorkOrderService(repos.WorkOrder, repos.Component, logger),
		Priority:  NewPriorityService(repos.WorkOrder, logger),
	}
}
