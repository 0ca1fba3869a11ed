package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequestIDHeader carries the correlation id of a request
const RequestIDHeader = "X-Request-ID"

// GetRealClientIP returns the caller's address as reported by the reverse
// proxy. X-Real-IP wins, then the first entry of X-Forwarded-For. Values
// that do not parse as an IP are ignored and gin's ClientIP is used.
func GetRealClientIP(c *gin.Context) string {
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	return c.ClientIP()
}
