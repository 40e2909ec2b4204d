// Package response 提供统一的 HTTP JSON 响应封装，错误按 xerrors 类型映射状态码。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

// Success 发送一个标准的成功响应。
// 默认：HTTP 200，业务码 0，消息 "success"。
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"msg":  "success",
		"data": data,
	})
}

// SuccessWithRawData 发送原始数据的成功响应 (不包装 code 和 msg)。
// 用于健康检查等系统接口。
func SuccessWithRawData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error 发送错误响应。
// 错误链中存在 *xerrors.Error 时使用其状态码、业务码与消息，否则返回 500。
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	if e, ok := xerrors.FromError(err); ok {
		c.JSON(e.HTTPStatus(), gin.H{
			"code":   e.Code,
			"msg":    e.Message,
			"detail": e.Detail,
		})
		return
	}

	ErrorWithStatus(c, http.StatusInternalServerError, "internal error", err.Error())
}

// ErrorWithStatus 发送一个带有指定 HTTP 状态码、消息和详情的错误响应。
func ErrorWithStatus(c *gin.Context, status int, msg string, detail string) {
	c.JSON(status, gin.H{
		"code":   status,
		"msg":    msg,
		"detail": detail,
	})
}
