package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-oee/internal/middleware"
	"github.com/bitfantasy/nimo-oee/internal/oee/analytics"
	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/repository"
	"github.com/bitfantasy/nimo-oee/internal/oee/service"
	"github.com/bitfantasy/nimo-oee/internal/oee/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Dashboard   *DashboardHandler
	Machine     *MachineHandler
	ErrorReport *ErrorReportHandler
	Maintenance *MaintenanceHandler
	SparePart   *SparePartHandler
	Record      *RecordHandler
	SSE         *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Dashboard:   NewDashboardHandler(svc.Dashboard, svc.Export),
		Machine:     NewMachineHandler(svc.Machine),
		ErrorReport: NewErrorReportHandler(svc.ErrorReport),
		Maintenance: NewMaintenanceHandler(svc.Maintenance),
		SparePart:   NewSparePartHandler(svc.SparePart),
		Record:      NewRecordHandler(svc.Defect, svc.Purchasing, svc.Generation, logger),
		SSE:         NewSSEHandler(hub),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 数据冲突或状态不允许
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// Unprocessable 引用的主数据不存在
func Unprocessable(c *gin.Context, message string) {
	Error(c, 42200, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// RespondError 按错误类型映射响应码
func RespondError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, analytics.ErrInvalidQuery),
		errors.Is(err, repository.ErrInvalidRange):
		BadRequest(c, msg)
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, msg)
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidTransition):
		Conflict(c, msg)
	case errors.Is(err, entity.ErrReferenceNotFound):
		Unprocessable(c, msg)
	case errors.Is(err, context.Canceled):
		// 客户端已断开
		c.Abort()
	default:
		InternalError(c, msg)
	}
}

// GetUserID 从上下文获取用户ID，令牌中的 uid 为数字
func GetUserID(c *gin.Context) int {
	id, err := strconv.Atoi(c.GetString(middleware.KeyUserID))
	if err != nil {
		return 0
	}
	return id
}

// paramID 解析路径中的数字ID
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		BadRequest(c, "无效的ID: "+c.Param(name))
		return 0, false
	}
	return id, true
}
