package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"machinery-backend/internal/service"
)

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func activeFilter(c *gin.Context) (*bool, bool) {
	raw := c.Query("active")
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, "invalid active")
		return nil, false
	}
	return &v, true
}

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(c *gin.Context) {
	active, ok := activeFilter(c)
	if !ok {
		return
	}
	categories, err := h.svc.Catalog.Categories(c.Request.Context(), active)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(c *gin.Context) {
	var req service.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cat, err := h.svc.Catalog.CreateCategory(c.Request.Context(), actor(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// SetCategoryActive handles PATCH /api/categories/:id.
func (h *Handler) SetCategoryActive(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cat, err := h.svc.Catalog.SetCategoryActive(c.Request.Context(), actor(c), id, *req.Active)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// DeleteCategory handles DELETE /api/categories/:id.
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteCategory(c.Request.Context(), actor(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSuppliers handles GET /api/suppliers.
func (h *Handler) ListSuppliers(c *gin.Context) {
	active, ok := activeFilter(c)
	if !ok {
		return
	}
	suppliers, err := h.svc.Catalog.Suppliers(c.Request.Context(), active)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

// CreateSupplier handles POST /api/suppliers.
func (h *Handler) CreateSupplier(c *gin.Context) {
	var req service.SupplierInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sup, err := h.svc.Catalog.CreateSupplier(c.Request.Context(), actor(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sup)
}

// SetSupplierActive handles PATCH /api/suppliers/:id.
func (h *Handler) SetSupplierActive(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sup, err := h.svc.Catalog.SetSupplierActive(c.Request.Context(), actor(c), id, *req.Active)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sup)
}

// DeleteSupplier handles DELETE /api/suppliers/:id.
func (h *Handler) DeleteSupplier(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteSupplier(c.Request.Context(), actor(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
