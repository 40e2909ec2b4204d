package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// CtxKeySamples 记录本次请求评估的样本数，由预测 handler 写入。
const CtxKeySamples = "svr.samples"

// Logger 访问日志中间件。trace_id 由 logging.TraceHandler 从请求上下文注入；
// 预测请求额外记录样本数。
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []any{
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"ip", c.ClientIP(),
			"cost", time.Since(start),
		}
		if id := c.GetString(CtxKeyRequestID); id != "" {
			attrs = append(attrs, "request_id", id)
		}
		if n, ok := c.Get(CtxKeySamples); ok {
			attrs = append(attrs, "samples", n)
		}
		logger.InfoContext(c.Request.Context(), "http request", attrs...)
	}
}
