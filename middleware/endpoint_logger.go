package middleware

import (
	"fmt"
	"time"

	"github.com/ariebrainware/clinic-app/util"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// EndpointCallLogger logs each HTTP request and records it as an endpoint
// security event.
func EndpointCallLogger(security *util.SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		userID, _ := GetUserID(c)

		evt := log.Info()
		if status >= 500 {
			evt = log.Error()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Str("ip", c.ClientIP()).
			Uint("user_id", userID).
			Strs("errors", c.Errors.Errors()).
			Msg("request")

		details := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"raw_path":    c.Request.URL.Path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
		}
		if userID != 0 {
			details["user_id"] = userID
		}

		security.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventEndpointCall,
			UserID:    fmt.Sprintf("%d", userID),
			Username:  GetUsername(c),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			Details:   details,
		})
	}
}
