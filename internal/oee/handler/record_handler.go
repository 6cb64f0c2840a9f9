package handler

import (
	"github.com/bitfantasy/nimo-oee/internal/middleware"
	"github.com/bitfantasy/nimo-oee/internal/oee/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecordHandler 缺陷登记、采购与耗材申请、模拟数据重建
type RecordHandler struct {
	defects    *service.DefectService
	purchasing *service.PurchasingService
	generation *service.GenerationService
	logger     *zap.Logger
}

func NewRecordHandler(defects *service.DefectService, purchasing *service.PurchasingService, generation *service.GenerationService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{defects: defects, purchasing: purchasing, generation: generation, logger: logger}
}

// CreateDefect POST /defects，未指定上报人时使用当前用户
func (h *RecordHandler) CreateDefect(c *gin.Context) {
	var req service.CreateDefectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if req.ReporterID == 0 {
		req.ReporterID = GetUserID(c)
	}
	d, err := h.defects.AddDefectRecord(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, d)
}

// CreatePurchaseRequest POST /purchase-requests
func (h *RecordHandler) CreatePurchaseRequest(c *gin.Context) {
	var req service.CreatePurchaseRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	r, err := h.purchasing.AddMcPartRequest(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, r)
}

// CreateConsumableRequest POST /consumable-requests
func (h *RecordHandler) CreateConsumableRequest(c *gin.Context) {
	var req service.CreateConsumableRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	r, err := h.purchasing.AddConsumableRequest(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, r)
}

type regenerateRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// Regenerate POST /admin/regenerate
func (h *RecordHandler) Regenerate(c *gin.Context) {
	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.generation.Regenerate(c.Request.Context(), req.StartDate, req.EndDate)
	if err != nil {
		h.logger.Warn("regenerate failed", zap.String(middleware.KeyUserID, c.GetString(middleware.KeyUserID)), zap.Error(err))
		RespondError(c, err)
		return
	}
	Success(c, res)
}
