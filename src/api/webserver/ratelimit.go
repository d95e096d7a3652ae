package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RateLimiter hands out request tokens per key. *rpcproxy.Limiter
// implements it.
type RateLimiter interface {
	Allow(key string) bool
}

// RateLimitMiddleware spends one token per request from the caller's
// bucket, keyed by signed-in wallet or else client IP.
func RateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(walletKey)
		if key == "" {
			key = c.ClientIP()
		}
		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"err": "rate limit exceeded", "retry": true})
			return
		}
		c.Next()
	}
}
