package handler

import (
	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/service"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	svc    *service.DashboardService
	export *service.ExportService
}

func NewDashboardHandler(svc *service.DashboardService, export *service.ExportService) *DashboardHandler {
	return &DashboardHandler{svc: svc, export: export}
}

// Filters GET /filters
func (h *DashboardHandler) Filters(c *gin.Context) {
	f, err := h.svc.Filters(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, f)
}

// MasterData GET /master-data
func (h *DashboardHandler) MasterData(c *gin.Context) {
	m, err := h.svc.MasterData(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, m)
}

// bindQuery 未给日期时使用默认日期
func (h *DashboardHandler) bindQuery(c *gin.Context) (entity.DashboardQuery, bool) {
	var q entity.DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return q, false
	}
	if q.StartDate == "" {
		f, err := h.svc.Filters(c.Request.Context())
		if err != nil {
			RespondError(c, err)
			return q, false
		}
		q.StartDate = f.DefaultDate
	}
	return q, true
}

// Query GET /dashboard?start_date&end_date&area&shift&status
func (h *DashboardHandler) Query(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	data, err := h.svc.Query(c.Request.Context(), q)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, data)
}

// Export GET /dashboard/export
func (h *DashboardHandler) Export(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	f, filename, err := h.export.ExportDashboard(c.Request.Context(), q)
	if err != nil {
		RespondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
