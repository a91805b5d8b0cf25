package service

import (
	"context"
	"sort"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"go.uber.org/zap"
)

// ApprovalLevel 优先级覆盖的审批层级。审批是建议性的（仅记录），不阻断操作
type ApprovalLevel string

const (
	ApprovalNone     ApprovalLevel = "NONE"
	ApprovalManager  ApprovalLevel = "MANAGER"
	ApprovalDirector ApprovalLevel = "DIRECTOR"
	ApprovalAdmin    ApprovalLevel = "ADMIN"
)

// 同部门有效优先级高出此值的进行中工单会阻塞开工
const blockingPriorityGap = 3

// ApprovalLevelFor 按有效优先级改动的绝对值确定审批层级
func ApprovalLevelFor(current, target int) ApprovalLevel {
	delta := target - current
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= 1:
		return ApprovalNone
	case delta <= 3:
		return ApprovalManager
	case delta <= 5:
		return ApprovalDirector
	default:
		return ApprovalAdmin
	}
}

// PriorityService 优先级覆盖与调度阻塞判定
type PriorityService struct {
	woRepo repository.WorkOrderRepository
	logger *zap.Logger
}

func NewPriorityService(woRepo repository.WorkOrderRepository, logger *zap.Logger) *PriorityService {
	return &PriorityService{woRepo: woRepo, logger: logger}
}

// OverridePriority 人工覆盖工单优先级。审批层级只记录日志，不做流程阻断
func (s *PriorityService) OverridePriority(ctx context.Context, workOrderID string, priority int, reason string) (*entity.WorkOrder, error) {
	wo, err := s.woRepo.FindByID(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	level := ApprovalLevelFor(wo.EffectivePriority(), priority)
	next, err := wo.OverridePriority(priority, reason)
	if err != nil {
		return nil, err
	}
	if err := s.woRepo.Update(ctx, &next); err != nil {
		return nil, err
	}
	s.logger.Info("Work order priority overridden",
		zap.String("wo_number", next.WONumber),
		zap.Int("from", wo.EffectivePriority()),
		zap.Int("to", priority),
		zap.String("approval_level", string(level)),
		zap.String("reason", reason),
	)
	return &next, nil
}

// IsBlocked 判断工单是否被同部门更高优先级的工单阻塞开工：
// 同部门存在 ASSIGNED/IN_PROGRESS 状态、有效优先级高出3分及以上的其它工单即阻塞。
// 返回首个阻塞方
func (s *PriorityService) IsBlocked(ctx context.Context, wo *entity.WorkOrder) (bool, *entity.WorkOrder, error) {
	peers, err := s.woRepo.FindByDepartmentAndStatuses(ctx, wo.DepartmentID,
		[]string{entity.WOStatusAssigned, entity.WOStatusInProgress})
	if err != nil {
		return false, nil, err
	}
	for i := range peers {
		peer := &peers[i]
		if peer.ID == wo.ID {
			continue
		}
		if peer.EffectivePriority() >= wo.EffectivePriority()+blockingPriorityGap {
			return true, peer, nil
		}
	}
	return false, nil, nil
}

// SortByProcessingOrder 推荐处理顺序：有效优先级降序，交期升序，无交期排最后
func SortByProcessingOrder(wos []entity.WorkOrder) {
	sort.SliceStable(wos, func(i, j int) bool {
		pi, pj := wos[i].EffectivePriority(), wos[j].EffectivePriority()
		if pi != pj {
			return pi > pj
		}
		di, dj := wos[i].Deadline, wos[j].Deadline
		switch {
		case di == nil && dj == nil:
			return false
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})
}
