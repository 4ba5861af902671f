package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/milkrun-inc/milkrun/internal/shared/constants"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

func Logger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"latency", latency,
			"client_ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
		}

		if requestID := c.GetHeader("X-Request-ID"); requestID != "" {
			args = append(args, "request_id", requestID)
		}

		if customerSID, exists := c.Get(constants.ContextKeyCustomerSID); exists {
			args = append(args, "customer_sid", customerSID)
		}
		if partnerSID, exists := c.Get(constants.ContextKeyPartnerSID); exists {
			args = append(args, "partner_sid", partnerSID)
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			log.Errorw("HTTP request completed with server error", args...)
		case status >= 400:
			log.Warnw("HTTP request completed with client error", args...)
		default:
			log.Debugw("HTTP request completed", args...)
		}
	}
}
