package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobnest/internal/api/middleware"
	"jobnest/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// StatusFor 把错误分类映射为 HTTP 状态码。
// Conflict 沿用原有客户端约定返回 400。
func StatusFor(code errcode.Code) int {
	switch code {
	case errcode.CodeNotFound:
		return http.StatusNotFound
	case errcode.CodeForbidden:
		return http.StatusForbidden
	case errcode.CodeConflict, errcode.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError 根据错误分类写出响应；未分类错误连同堆栈记录日志。
func WriteError(c *gin.Context, err error) {
	code := errcode.CodeOf(err)
	if code == errcode.CodeInternal {
		attrs := []any{slog.Any("error", err)}
		var classified *errcode.Error
		if errors.As(err, &classified) && len(classified.Stack) > 0 {
			attrs = append(attrs, slog.String("stack", string(classified.Stack)))
		}
		middleware.LoggerFromContext(c).Error("request failed", attrs...)
	}
	Error(c, StatusFor(code), errcode.MessageOf(err))
}
