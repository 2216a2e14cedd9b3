package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machinery-backend/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	result, err := h.svc.Identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(c *gin.Context) {
	a := actor(c)
	c.JSON(http.StatusOK, gin.H{"user_id": a.UserID, "name": a.Name, "role": a.Role})
}

// ListUsers handles GET /api/users?role=.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.Identity.Users(c.Request.Context(), c.Query("role"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser handles POST /api/users (admin only).
func (h *Handler) CreateUser(c *gin.Context) {
	var req service.UserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := h.svc.Identity.CreateUser(c.Request.Context(), actor(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// AuditTrail handles GET /api/audit/:entity/:id.
func (h *Handler) AuditTrail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	records, err := h.svc.Audit.AuditTrail(c.Request.Context(), c.Param("entity"), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
