package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/gykovacs/vessel-sub003/response"
	"github.com/gykovacs/vessel-sub003/xerrors"
)

// ErrPredictionPanic 是推理过程中发生 panic 时返回给客户端的错误，不暴露内部细节。
var ErrPredictionPanic = xerrors.New(xerrors.ErrInternal, 500001, "prediction failed", "an unexpected error occurred", nil)

// Recovery 捕获处理链中的 panic，记录路由与堆栈后按 xerrors 映射返回 500。
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.ErrorContext(c.Request.Context(), "panic recovered",
					"error", err,
					"method", c.Request.Method,
					"route", c.FullPath(),
					"request_id", c.GetString(CtxKeyRequestID),
					"stack", string(debug.Stack()),
				)
				response.Error(c, ErrPredictionPanic)
				c.Abort()
			}
		}()
		c.Next()
	}
}
