package handler

import (
	"github.com/bitfantasy/nimo-oee/internal/oee/service"
	"github.com/gin-gonic/gin"
)

type MachineHandler struct {
	svc *service.MachineService
}

func NewMachineHandler(svc *service.MachineService) *MachineHandler {
	return &MachineHandler{svc: svc}
}

// Create POST /machines
func (h *MachineHandler) Create(c *gin.Context) {
	var req service.CreateMachineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	m, err := h.svc.AddMachine(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, m)
}

// Update PUT /machines/:id
func (h *MachineHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateMachineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	m, err := h.svc.UpdateMachine(c.Request.Context(), id, &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, m)
}

type createAreaRequest struct {
	LineID string `json:"line_id" binding:"required"`
	Area   string `json:"area" binding:"required"`
}

// CreateArea POST /areas
func (h *MachineHandler) CreateArea(c *gin.Context) {
	var req createAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	la, err := h.svc.AddArea(c.Request.Context(), req.LineID, req.Area)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, la)
}

type renameAreaRequest struct {
	OldName string `json:"old_name" binding:"required"`
	NewName string `json:"new_name" binding:"required"`
}

// RenameArea PUT /areas/rename
func (h *MachineHandler) RenameArea(c *gin.Context) {
	var req renameAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	n, err := h.svc.RenameArea(c.Request.Context(), req.OldName, req.NewName)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"area": req.NewName, "lines": n})
}
