package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machinery-backend/internal/mw"
)

// GetVAPIDPublicKey returns the VAPID public key browsers need to subscribe.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		mw.AbortWithError(c, http.StatusServiceUnavailable, "push_disabled", "vapid keys are not configured")
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
