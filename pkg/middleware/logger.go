package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trackforce/fieldguard/pkg/logger"
)

// RequestLogger logs each HTTP request with its latency and outcome
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("correlation_id", GetCorrelationID(c)),
		}

		if len(c.Errors) > 0 {
			logger.Error("request completed with errors",
				append(fields, zap.String("errors", c.Errors.String()))...)
		} else {
			logger.Info("request completed", fields...)
		}
	}
}
