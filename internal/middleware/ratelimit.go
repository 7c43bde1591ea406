package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RejectFunc 中断请求并向用户展示错误
type RejectFunc func(c *gin.Context, status int, message string)

// NewGlobalLimiter 全局令牌桶, rps <= 0 时不限制
func NewGlobalLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// GlobalRateLimit 全局限流中间件, 保护进程本身, 与按客户端的下载限流相互独立
func GlobalRateLimit(limiter *rate.Limiter, reject RejectFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			reject(c, http.StatusTooManyRequests, "Server is busy. Please try again later.")
			c.Abort()
			return
		}
		c.Next()
	}
}
