package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"machinery-backend/internal/model"
	"machinery-backend/internal/mw"
	"machinery-backend/internal/service"
)

type errorBody struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details []model.FieldError `json:"details,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// writeError maps a service error onto the response envelope. Unexpected
// errors are logged and reported as 500 without their message.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("route", c.FullPath()),
			zap.String("request_id", mw.GetRequestID(c)), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: body})
}

func classify(err error) (int, errorBody) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Code: "validation_error", Message: verr.Error(), Details: verr.Errors}
	case errors.Is(err, model.ErrInvalidStatus):
		return http.StatusBadRequest, errorBody{Code: "invalid_status", Message: "invalid status"}
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, errorBody{Code: "validation_error", Message: err.Error()}
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, errorBody{Code: "not_found", Message: err.Error()}
	case errors.Is(err, model.ErrAlreadyResolved):
		return http.StatusConflict, errorBody{Code: "already_resolved", Message: "alert already resolved"}
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict, errorBody{Code: "invalid_transition", Message: err.Error()}
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, errorBody{Code: "conflict", Message: err.Error()}
	case errors.Is(err, model.ErrPermission):
		return http.StatusForbidden, errorBody{Code: "permission_denied", Message: err.Error()}
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody{Code: "unauthenticated", Message: "invalid credentials"}
	default:
		return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal server error"}
	}
}

func badRequest(c *gin.Context, message string) {
	mw.AbortWithError(c, http.StatusBadRequest, "bad_request", message)
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// actor returns the authenticated actor; routes without authentication act as the system.
func actor(c *gin.Context) service.Actor {
	if a, ok := mw.GetActor(c); ok {
		return a
	}
	return service.SystemActor
}

func succeed(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}
