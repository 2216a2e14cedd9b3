package mw

import "github.com/gin-gonic/gin"

// AbortWithError stops the chain with the standard error envelope.
func AbortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}
