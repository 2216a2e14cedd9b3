package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DashboardSummary handles GET /api/dashboard/summary.
func (h *Handler) DashboardSummary(c *gin.Context) {
	summary, err := h.svc.Dashboard.Summary(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// DashboardMaintenance handles GET /api/dashboard/maintenance.
func (h *Handler) DashboardMaintenance(c *gin.Context) {
	summary, err := h.svc.Dashboard.MaintenanceSummary(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// DashboardPerformance handles GET /api/metrics/performance?limit=.
func (h *Handler) DashboardPerformance(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	rows, err := h.svc.Dashboard.PerformanceMetrics(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
