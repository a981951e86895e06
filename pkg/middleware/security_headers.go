package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders hardens responses. The daemon listens on loopback only,
// so HSTS and CSP are intentionally omitted.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "no-referrer")
		c.Writer.Header().Set("Cache-Control", "no-store")

		c.Next()
	}
}
