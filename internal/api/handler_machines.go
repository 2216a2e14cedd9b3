package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"machinery-backend/internal/export"
	"machinery-backend/internal/model"
	"machinery-backend/internal/service"
	"machinery-backend/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) machineFilter(c *gin.Context) (store.MachineFilter, bool) {
	category, ok := queryInt(c, "category")
	if !ok {
		return store.MachineFilter{}, false
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return store.MachineFilter{}, false
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return store.MachineFilter{}, false
	}
	f := store.MachineFilter{
		CategoryID: int64(category),
		Status:     model.MachineStatus(c.Query("status")),
		Center:     c.Query("center"),
		Query:      c.Query("q"),
		Limit:      limit,
		Offset:     offset,
	}
	if f.Status != "" && !f.Status.IsValid() {
		h.writeError(c, fmt.Errorf("%w: %q", model.ErrInvalidStatus, f.Status))
		return store.MachineFilter{}, false
	}
	return f, true
}

// ListMachines handles GET /api/machines.
func (h *Handler) ListMachines(c *gin.Context) {
	f, ok := h.machineFilter(c)
	if !ok {
		return
	}
	machines, total, err := h.svc.Registry.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"machines": machines, "total": total})
}

// SearchMachines handles GET /api/machines/search?q=.
func (h *Handler) SearchMachines(c *gin.Context) {
	machines, err := h.svc.Registry.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, machines)
}

// ExportMachines handles GET /api/machines/export and returns an xlsx workbook.
func (h *Handler) ExportMachines(c *gin.Context) {
	f, ok := h.machineFilter(c)
	if !ok {
		return
	}
	if f.Limit == 0 {
		f.Limit = 500
	}
	machines, _, err := h.svc.Registry.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	today := h.svc.Registry.Today()
	data, err := export.MachinesWorkbook(machines, today)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="inventario-%s.xlsx"`, today.Format("20060102")))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// CreateMachine handles POST /api/machines.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req service.MachineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.svc.Registry.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// GetMachine handles GET /api/machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.Registry.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"machine":           m,
		"needs_maintenance": m.NeedsMaintenance(h.svc.Registry.Today()),
		"warranty_ends_on":  m.WarrantyEndsOn().Format("2006-01-02"),
	})
}

// UpdateMachine handles PUT /api/machines/:id.
func (h *Handler) UpdateMachine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.MachineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.svc.Registry.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// DeleteMachine handles DELETE /api/machines/:id.
func (h *Handler) DeleteMachine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Registry.Delete(c.Request.Context(), actor(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangeMachineStatus handles POST /api/machines/:id/status.
func (h *Handler) ChangeMachineStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.StatusChange
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.svc.Registry.ChangeStatus(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	succeed(c, fmt.Sprintf("Machine %s status changed to %s", m.InventoryCode, m.Status))
}

// MachineHistory handles GET /api/machines/:id/history.
func (h *Handler) MachineHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	entries, err := h.svc.Registry.History(c.Request.Context(), id, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// DueForMaintenance handles GET /api/machines/due.
func (h *Handler) DueForMaintenance(c *gin.Context) {
	machines, err := h.svc.Registry.DueForMaintenance(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, machines)
}
