package handler

import (
	"github.com/bitfantasy/nimo-oee/internal/oee/service"
	"github.com/gin-gonic/gin"
)

type SparePartHandler struct {
	svc *service.SparePartService
}

func NewSparePartHandler(svc *service.SparePartService) *SparePartHandler {
	return &SparePartHandler{svc: svc}
}

// Create POST /spare-parts
func (h *SparePartHandler) Create(c *gin.Context) {
	var req service.CreateSparePartInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	p, err := h.svc.AddSparePart(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, p)
}

// Update PUT /spare-parts/:id
func (h *SparePartHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateSparePartInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	p, err := h.svc.UpdateSparePart(c.Request.Context(), id, &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

// ToggleFlag POST /spare-parts/:id/toggle-flag
func (h *SparePartHandler) ToggleFlag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.ToggleFlagForOrder(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

// Get GET /spare-parts/:id 带消耗与采购历史
func (h *SparePartHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetSparePartDetails(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}
