package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// APITokenAuth validates a shared API token on every request, accepted either
// as "Authorization: Bearer <token>" or an "X-Api-Key" header. Auth is on by
// default; disabled=true restores the historical open-endpoint behavior and an
// empty configured token rejects everything instead of letting everyone in.
func APITokenAuth(token string, disabled bool, logger *logrus.Logger) gin.HandlerFunc {
	log := logger.WithField("component", "auth")

	return func(c *gin.Context) {
		if disabled {
			c.Next()
			return
		}

		presented := c.GetHeader("X-Api-Key")
		if presented == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				presented = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if token == "" || presented == "" ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			log.WithField("path", c.Request.URL.Path).Warn("Rejected unauthenticated request")
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Valid API token required",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
