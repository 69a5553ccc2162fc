// Package auth guards the kiosk API surface with a single shared key.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	keyHeader = "X-API-Key"
	keyQuery  = "api_key"
)

// RequireKey rejects requests that do not present the shared kiosk key.
// The key arrives in the X-API-Key header, or in the api_key query
// parameter for the dashboard WebSocket, where the browser cannot set
// headers on the upgrade request. An empty configured key disables the
// check for local development.
func RequireKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		presented := c.GetHeader(keyHeader)
		if presented == "" {
			presented = c.Query(keyQuery)
		}
		if presented == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "api key required"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "api key rejected"})
			return
		}

		c.Next()
	}
}
