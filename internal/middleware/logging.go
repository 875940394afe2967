// Package middleware provides HTTP middleware for request logging and metrics.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/epgrab/internal/logger"
)

// RequestLogger returns a Gin middleware for logging HTTP requests
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		// Health probes and scrapes are frequent, keep them out of info
		event := logger.Log.Info()
		if path == "/metrics" || path == "/api/health" {
			event = logger.Log.Debug()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")

		if len(c.Errors) > 0 {
			logger.Log.Error().
				Strs("errors", c.Errors.Errors()).
				Str("path", path).
				Msg("Request completed with errors")
		}
	}
}
