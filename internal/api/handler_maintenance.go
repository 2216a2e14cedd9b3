package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"machinery-backend/internal/model"
	"machinery-backend/internal/service"
	"machinery-backend/internal/store"
)

func queryTime(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		badRequest(c, "invalid "+name+": expected RFC3339")
		return time.Time{}, false
	}
	return t, true
}

// ListMaintenance handles GET /api/maintenance?scope=today|week|overdue|all.
// The status, machine_id, from, to and limit filters apply to the "all" scope.
func (h *Handler) ListMaintenance(c *gin.Context) {
	machineID, ok := queryInt(c, "machine_id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	from, ok := queryTime(c, "from")
	if !ok {
		return
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return
	}
	f := store.MaintenanceFilter{MachineID: int64(machineID), From: from, To: to, Limit: limit}
	if raw := c.Query("status"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			f.Statuses = append(f.Statuses, model.MaintenanceStatus(strings.TrimSpace(st)))
		}
	}
	records, err := h.svc.Maintenance.List(c.Request.Context(), c.Query("scope"), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetMaintenance handles GET /api/maintenance/:id.
func (h *Handler) GetMaintenance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	record, err := h.svc.Maintenance.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ScheduleMaintenance handles POST /api/maintenance.
func (h *Handler) ScheduleMaintenance(c *gin.Context) {
	var req service.MaintenanceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	record, err := h.svc.Maintenance.Schedule(c.Request.Context(), actor(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// StartMaintenance handles POST /api/maintenance/:id/start.
func (h *Handler) StartMaintenance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	record, err := h.svc.Maintenance.Start(c.Request.Context(), actor(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// CompleteMaintenance handles POST /api/maintenance/:id/complete.
func (h *Handler) CompleteMaintenance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.CompleteInput
	if !bindOptionalJSON(c, &req) {
		return
	}
	record, err := h.svc.Maintenance.Complete(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// CancelMaintenance handles POST /api/maintenance/:id/cancel.
func (h *Handler) CancelMaintenance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	notes, ok := bindNotes(c)
	if !ok {
		return
	}
	record, err := h.svc.Maintenance.Cancel(c.Request.Context(), actor(c), id, notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
