package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gykovacs/vessel-sub003/idgen"
)

const (
	// HeaderXRequestID 请求 ID 头。
	HeaderXRequestID = "X-Request-ID"
	// CtxKeyRequestID 请求 ID 在 gin.Context 中的键，供访问日志与 panic 日志关联。
	CtxKeyRequestID = "request_id"
)

// RequestID 透传或生成请求 ID 并写入响应头。gen 为空时只透传。
func RequestID(gen idgen.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderXRequestID)
		if id == "" && gen != nil {
			id = idgen.Format(gen.Generate())
		}
		if id != "" {
			c.Header(HeaderXRequestID, id)
			c.Set(CtxKeyRequestID, id)
		}
		c.Next()
	}
}
