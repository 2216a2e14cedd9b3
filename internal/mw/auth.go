package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"machinery-backend/internal/service"
)

const actorKey = "actor"

// Authenticator resolves a bearer token to an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Actor, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved actor in the context.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}
		actor, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok || !actor.IsAdmin() {
			AbortWithError(c, http.StatusForbidden, "permission_denied", "administrator role required")
			return
		}
		c.Next()
	}
}

// GetActor returns the authenticated actor, if any.
func GetActor(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return service.Actor{}, false
	}
	actor, ok := v.(service.Actor)
	return actor, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
