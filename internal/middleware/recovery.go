package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery Panic 恢复中间件
func Recovery(logger *zap.Logger, reject RejectFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("panic", err),
					zap.String("request_id", GetRequestID(c)),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))

				if c.Writer.Written() {
					c.Abort()
					return
				}
				reject(c, http.StatusInternalServerError, "Internal server error. Please try again later.")
				c.Abort()
			}
		}()
		c.Next()
	}
}
