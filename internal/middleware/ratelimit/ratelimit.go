package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	applog "tracker/internal/log"
)

// New builds an in-memory limiter from a formatted rate such as "300-M".
func New(rate string) (*limiter.Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	return limiter.New(memory.NewStore(), r), nil
}

// Middleware limits requests per client IP.
func Middleware(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		logger := applog.FromContext(c.Request.Context()).WithComponent(applog.ComponentRateLimit)

		lctx, err := l.Get(c.Request.Context(), ip)
		if err != nil {
			logger.Error("Failed to get rate limit context", applog.FieldClientIP, ip, applog.FieldError, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			logger.Warn("Rate limit exceeded", applog.FieldClientIP, ip, "limit", lctx.Limit)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}

		c.Next()
	}
}
