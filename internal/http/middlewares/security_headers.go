package middlewares

import "github.com/gin-gonic/gin"

// JSON-only API, so nothing needs to load
const defaultCSP = "default-src 'none'; frame-ancestors 'none'"

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")
		c.Header("Cache-Control", "no-store")
		c.Header("Content-Security-Policy", defaultCSP)
		c.Next()
	}
}
