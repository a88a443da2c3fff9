package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"alt-text-ai-api/internal/interfaces/http/dto"
	"alt-text-ai-api/pkg/errors"
	"alt-text-ai-api/pkg/logger"
)

// Recovery panic 恢复中间件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				// 获取堆栈信息
				stack := string(debug.Stack())

				// 记录错误日志
				logger.Error(c.Request.Context(), "panic recovered",
					fmt.Errorf("%v", rec),
					"stack", stack,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				// 返回 500 错误
				dto.AbortWithError(c, errors.New(errors.CodeInternalError, "internal server error"))
			}
		}()

		c.Next()
	}
}
