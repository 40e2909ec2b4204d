package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gykovacs/vessel-sub003/response"
)

// MaxBodyBytes 限制预测请求体大小，limit ≤ 0 时不生效。
// 批量请求的样本数随请求体增长，超限时直接返回 413，不进入 JSON 解析。
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > limit {
			response.ErrorWithStatus(c, http.StatusRequestEntityTooLarge, "regression payload too large",
				fmt.Sprintf("content length %d exceeds %d bytes", c.Request.ContentLength, limit))
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
