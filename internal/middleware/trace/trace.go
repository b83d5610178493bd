package trace

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	applog "tracker/internal/log"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	AverageResponseTime int64 // in microseconds, last request
}

// Middleware assigns request IDs, stores a request-scoped logger and logs
// each request.
type Middleware struct {
	logger  *applog.Logger
	metrics Metrics
}

func NewMiddleware(logger *applog.Logger) *Middleware {
	return &Middleware{logger: logger.WithComponent(applog.ComponentHTTP)}
}

// Handler returns the gin handler.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set(requestIDKey, requestID)

		requestLogger := m.logger.With(
			applog.FieldRequestID, requestID,
			applog.FieldMethod, c.Request.Method,
			applog.FieldPath, c.Request.URL.Path,
		)
		c.Request = c.Request.WithContext(applog.IntoContext(c.Request.Context(), requestLogger))

		atomic.AddInt64(&m.metrics.TotalRequests, 1)

		c.Next()

		duration := time.Since(start)
		atomic.StoreInt64(&m.metrics.AverageResponseTime, duration.Microseconds())

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= 400 && status < 500 {
			level = slog.LevelWarn
		} else if status >= 500 {
			level = slog.LevelError
		}

		fields := applog.NewFields().
			WithHTTPResponse(status, duration.Milliseconds()).
			WithClientIP(c.ClientIP())
		if len(c.Errors) > 0 {
			fields[applog.FieldError] = c.Errors.String()
		}
		requestLogger.Log(c.Request.Context(), level, "HTTP request completed", fields.ToSlice()...)
	}
}

// RequestID returns the ID assigned to the current request.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&m.metrics.TotalRequests),
		AverageResponseTime: atomic.LoadInt64(&m.metrics.AverageResponseTime),
	}
}
