package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"machinery-backend/internal/model"
	"machinery-backend/internal/service"
	"machinery-backend/internal/store"
)

type notesRequest struct {
	Notes string `json:"notes"`
}

// bindOptionalJSON binds the request body into v, treating an empty body as
// the zero value.
func bindOptionalJSON(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return false
	}
	return true
}

func bindNotes(c *gin.Context) (string, bool) {
	var req notesRequest
	ok := bindOptionalJSON(c, &req)
	return req.Notes, ok
}

// ListAlerts handles GET /api/alerts?status=&priority=&machine_id=&limit=.
func (h *Handler) ListAlerts(c *gin.Context) {
	machineID, ok := queryInt(c, "machine_id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	f := store.AlertFilter{
		MachineID: int64(machineID),
		Priority:  model.AlertPriority(c.Query("priority")),
		Limit:     limit,
	}
	if raw := c.Query("status"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			f.Statuses = append(f.Statuses, model.AlertStatus(strings.TrimSpace(st)))
		}
	}
	alerts, err := h.svc.Alerts.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// ActiveAlerts handles GET /api/alerts/active?limit=.
func (h *Handler) ActiveAlerts(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	alerts, err := h.svc.Alerts.ListActive(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// GetAlert handles GET /api/alerts/:id.
func (h *Handler) GetAlert(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	alert, err := h.svc.Alerts.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// CreateAlert handles POST /api/alerts.
func (h *Handler) CreateAlert(c *gin.Context) {
	var req service.AlertInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	alert, err := h.svc.Alerts.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

// StartAlert handles POST /api/alerts/:id/start.
func (h *Handler) StartAlert(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	alert, err := h.svc.Alerts.Start(c.Request.Context(), actor(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// ResolveAlert handles POST /api/alerts/:id/resolve.
func (h *Handler) ResolveAlert(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	notes, ok := bindNotes(c)
	if !ok {
		return
	}
	if _, err := h.svc.Alerts.Resolve(c.Request.Context(), actor(c), id, notes); err != nil {
		h.writeError(c, err)
		return
	}
	succeed(c, "Alert resolved")
}

// IgnoreAlert handles POST /api/alerts/:id/ignore.
func (h *Handler) IgnoreAlert(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	notes, ok := bindNotes(c)
	if !ok {
		return
	}
	alert, err := h.svc.Alerts.Ignore(c.Request.Context(), actor(c), id, notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}
