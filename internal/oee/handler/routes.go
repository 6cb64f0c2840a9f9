package handler

import (
	"github.com/bitfantasy/nimo-oee/internal/middleware"
	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册 /api/v1 下的全部接口
func RegisterRoutes(v1 *gin.RouterGroup, h *Handlers, jwtSecret string) {
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtSecret))

	// SSE
	authorized.GET("/events", h.SSE.Stream)

	authorized.GET("/filters", h.Dashboard.Filters)
	authorized.GET("/master-data", h.Dashboard.MasterData)
	authorized.GET("/dashboard", h.Dashboard.Query)
	authorized.GET("/dashboard/export", h.Dashboard.Export)

	supervisor := middleware.RequireRole(entity.RoleSupervisor)
	maintenance := middleware.RequireRole(entity.RoleMaintenance, entity.RoleSupervisor)

	machines := authorized.Group("/machines", supervisor)
	{
		machines.POST("", h.Machine.Create)
		machines.PUT("/:id", h.Machine.Update)
	}

	areas := authorized.Group("/areas", supervisor)
	{
		areas.POST("", h.Machine.CreateArea)
		areas.PUT("/rename", h.Machine.RenameArea)
	}

	errorReports := authorized.Group("/error-reports")
	{
		errorReports.POST("", h.ErrorReport.Create)
		errorReports.GET("/:id", h.ErrorReport.Get)
		errorReports.PUT("/:id", h.ErrorReport.Update)
		errorReports.POST("/:id/images", h.ErrorReport.AddImage)
	}

	orders := authorized.Group("/maintenance-orders", maintenance)
	{
		orders.POST("", h.Maintenance.Create)
		orders.GET("/:id", h.Maintenance.Get)
		orders.POST("/:id/start", h.Maintenance.Start)
		orders.POST("/:id/complete", h.Maintenance.Complete)
		orders.POST("/:id/cancel", h.Maintenance.Cancel)
	}
	authorized.POST("/pm-schedules/:id/work-order", maintenance, h.Maintenance.CreateFromSchedule)

	parts := authorized.Group("/spare-parts")
	{
		parts.GET("/:id", h.SparePart.Get)
		parts.POST("", maintenance, h.SparePart.Create)
		parts.PUT("/:id", maintenance, h.SparePart.Update)
		parts.POST("/:id/toggle-flag", maintenance, h.SparePart.ToggleFlag)
	}

	authorized.POST("/defects", h.Record.CreateDefect)
	authorized.POST("/purchase-requests", maintenance, h.Record.CreatePurchaseRequest)
	authorized.POST("/consumable-requests", h.Record.CreateConsumableRequest)

	admin := authorized.Group("/admin", middleware.RequireRole(middleware.AdminRole))
	{
		admin.POST("/regenerate", h.Record.Regenerate)
	}
}
