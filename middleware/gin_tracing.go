package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gykovacs/vessel-sub003/tracing"
)

// HeaderXTraceID 定义 Trace ID 响应头名称。
const HeaderXTraceID = "X-Trace-ID"

// Tracing 为预测请求创建 OpenTelemetry Span；skipPaths（健康检查、指标抓取）不产生 Span。
func Tracing(serviceName string, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		_, ok := skip[r.URL.Path]
		return !ok
	}))
}

// TraceIDHeader 把当前 Span 的 Trace ID 写入响应头，需放在 Tracing 之后。
func TraceIDHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if traceID := tracing.GetTraceID(c.Request.Context()); traceID != "" {
			c.Header(HeaderXTraceID, traceID)
		}
		c.Next()
	}
}
