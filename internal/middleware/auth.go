package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderWorkerToken is the shared-secret header submitting workers present.
const HeaderWorkerToken = "X-Worker-Token"

// WorkerToken returns Gin middleware that checks the worker shared secret.
// An empty configured token rejects everything; a misconfigured deployment
// must not expose an open API.
func WorkerToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(HeaderWorkerToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "missing or invalid worker token"},
			})
			return
		}
		c.Next()
	}
}
