package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger 记录每个 HTTP 请求的元数据。
//
// 日志在处理完成后写出，因此能带上 AuthMiddleware 写入的 userID；
// 未认证路由（注册、登录、healthz）的 user_id 为 0。
// 慢请求与 5xx 提升为 Warn 级别。
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	const slowThreshold = 500 * time.Millisecond

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if logger == nil {
			return
		}

		status := c.Writer.Status()
		latency := time.Since(start)

		var userID uint
		if v, ok := c.Get("userID"); ok {
			if id, ok := v.(uint); ok {
				userID = id
			}
		}

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("client_ip", c.ClientIP()),
			slog.String("latency", latency.String()),
		}

		if status >= 500 || latency > slowThreshold {
			logger.Warn("http request", attrs...)
			return
		}
		logger.Info("http request", attrs...)
	}
}
