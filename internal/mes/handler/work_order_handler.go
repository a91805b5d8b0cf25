package handler

import (
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

type WorkOrderHandler struct {
	woSvc       *service.WorkOrderService
	generator   *service.GeneratorService
	prioritySvc *service.PriorityService
}

func NewWorkOrderHandler(woSvc *service.WorkOrderService, generator *service.GeneratorService, prioritySvc *service.PriorityService) *WorkOrderHandler {
	return &WorkOrderHandler{woSvc: woSvc, generator: generator, prioritySvc: prioritySvc}
}

// Generate 为订单生成工单
func (h *WorkOrderHandler) Generate(c *gin.Context) {
	wos, err := h.generator.GenerateWorkOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wos})
}

// Regenerate 作废非终态工单后重新生成
func (h *WorkOrderHandler) Regenerate(c *gin.Context) {
	wos, err := h.generator.RegenerateWorkOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wos})
}

// ListByOrder 查询订单的全部工单
func (h *WorkOrderHandler) ListByOrder(c *gin.Context) {
	wos, err := h.woSvc.ListByOrderID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wos})
}

// List 工单列表。sort=processing 时按推荐处理顺序排序
func (h *WorkOrderHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	deptID, _ := strconv.ParseInt(c.Query("department_id"), 10, 64)
	opID, _ := strconv.ParseInt(c.Query("operation_id"), 10, 64)
	params := repository.WOListParams{
		OrderID:      c.Query("order_id"),
		DepartmentID: deptID,
		OperationID:  opID,
		Status:       c.Query("status"),
		Keyword:      c.Query("keyword"),
		Page:         page,
		Size:         size,
	}
	wos, total, err := h.woSvc.List(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("sort") == "processing" {
		service.SortByProcessingOrder(wos)
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{
		"items": wos, "total": total, "page": page, "size": size,
	}})
}

// Get 工单详情
func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.woSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": "工单不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

// Assign 下发工单
func (h *WorkOrderHandler) Assign(c *gin.Context) {
	wo, err := h.woSvc.Assign(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

// Start 开工
func (h *WorkOrderHandler) Start(c *gin.Context) {
	wo, err := h.woSvc.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

// QualityCheck 送检
func (h *WorkOrderHandler) QualityCheck(c *gin.Context) {
	wo, err := h.woSvc.SendToQualityCheck(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

// Complete 完工
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	wo, err := h.woSvc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

// Return 质检退回返工
func (h *WorkOrderHandler) Return(c *gin.Context) {
	wo, err := h.woSvc.ReturnToProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

// Cancel 作废工单
func (h *WorkOrderHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	wo, err := h.woSvc.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

// OverridePriority 人工覆盖优先级
func (h *WorkOrderHandler) OverridePriority(c *gin.Context) {
	var req struct {
		Priority int    `json:"priority" binding:"required,min=1,max=10"`
		Reason   string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	wo, err := h.prioritySvc.OverridePriority(c.Request.Context(), c.Param("id"), req.Priority, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

// Blocked 查询工单是否被同部门高优先级工单阻塞开工
func (h *WorkOrderHandler) Blocked(c *gin.Context) {
	wo, err := h.woSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": "工单不存在"})
		return
	}
	blocked, blocker, err := h.prioritySvc.IsBlocked(c.Request.Context(), wo)
	if err != nil {
		respondError(c, err)
		return
	}
	data := gin.H{"blocked": blocked}
	if blocker != nil {
		data["blocked_by"] = blocker.WONumber
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}

// RecordHours 记录明细实际工时
func (h *WorkOrderHandler) RecordHours(c *gin.Context) {
	var req struct {
		Hours float64 `json:"hours" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	wo, err := h.woSvc.RecordActualHours(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.Hours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

// CNCExport 输出下游CNC消费的数据形状
func (h *WorkOrderHandler) CNCExport(c *gin.Context) {
	export, err := h.woSvc.ExportForCNC(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": export})
}
