package handler

import (
	"net/http"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// Handlers MES 处理器集合
type Handlers struct {
	WorkOrder *WorkOrderHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		WorkOrder: NewWorkOrderHandler(services.WorkOrder, services.Generator, services.Priority),
	}
}

// statusForDomainError 领域错误类别到HTTP状态码的映射
func statusForDomainError(err error) int {
	switch {
	case entity.IsKind(err, entity.ErrInvalidTransition):
		return http.StatusConflict
	case entity.IsKind(err, entity.ErrMissingRoute),
		entity.IsKind(err, entity.ErrMissingDepartment):
		return http.StatusNotFound
	case entity.IsKind(err, entity.ErrValidation),
		entity.IsKind(err, entity.ErrFormula):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusForDomainError(err)
	code := 50001
	switch status {
	case http.StatusBadRequest:
		code = 10001
	case http.StatusNotFound:
		code = 10002
	case http.StatusConflict:
		code = 10004
	}
	c.JSON(status, gin.H{"code": code, "message": err.Error()})
}
