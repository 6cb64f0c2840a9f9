package handler

import (
	"github.com/bitfantasy/nimo-oee/internal/oee/service"
	"github.com/gin-gonic/gin"
)

type MaintenanceHandler struct {
	svc *service.MaintenanceService
}

func NewMaintenanceHandler(svc *service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{svc: svc}
}

// Create POST /maintenance-orders，未指定创建人时使用当前用户
func (h *MaintenanceHandler) Create(c *gin.Context) {
	var req service.CreateMaintenanceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if req.CreatedByID == 0 {
		req.CreatedByID = GetUserID(c)
	}
	o, err := h.svc.AddMaintenanceOrder(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, o)
}

// Get GET /maintenance-orders/:id
func (h *MaintenanceHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.GetMaintenanceOrder(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, o)
}

// Start POST /maintenance-orders/:id/start
func (h *MaintenanceHandler) Start(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.StartMaintenanceOrder(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, o)
}

// Complete POST /maintenance-orders/:id/complete，请求体可为空
func (h *MaintenanceHandler) Complete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CompleteMaintenanceOrderInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}
	o, err := h.svc.CompleteMaintenanceOrder(c.Request.Context(), id, &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, o)
}

// Cancel POST /maintenance-orders/:id/cancel
func (h *MaintenanceHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.CancelMaintenanceOrder(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, o)
}

// CreateFromSchedule POST /pm-schedules/:id/work-order
func (h *MaintenanceHandler) CreateFromSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.CreatePmOrderFromSchedule(c.Request.Context(), id, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, o)
}
