package httpapi

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/arung-agamani/denpa-broadcast/internal/identity"
)

// SecurityHeaders adds standard HTTP security headers to every response,
// matching the teacher's securityHeaders middleware.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Next()
	}
}

// CORS applies clientOrigin as the CORS allow-origin header. An origin of
// "*" allows any origin.
func CORS(clientOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", clientOrigin)
		c.Header("Vary", "Origin")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// RequestLog logs each request through slog, grounded on the pack's
// loggingMiddleware convention.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"durationMs", time.Since(start).Milliseconds(),
		)
	}
}

// queueLimiterRate and queueLimiterBurst bound how often one identity may
// submit tracks; generous enough not to interfere with normal use.
const (
	queueLimiterRate  = rate.Limit(1)
	queueLimiterBurst = 5
)

var (
	queueLimitersMu sync.Mutex
	queueLimiters   = map[string]*rate.Limiter{}
)

// QueueRateLimit throttles POST/PATCH/DELETE on /api/queue per authenticated
// subject, independent of the per-IP auth-failure limiter in internal/identity.
func QueueRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := identity.UserFrom(c)
		if !ok {
			c.Next()
			return
		}
		if !limiterFor(user.ID).Allow() {
			c.AbortWithStatusJSON(429, gin.H{"error": "too many queue requests, slow down"})
			return
		}
		c.Next()
	}
}

func limiterFor(subject string) *rate.Limiter {
	queueLimitersMu.Lock()
	defer queueLimitersMu.Unlock()
	l, ok := queueLimiters[subject]
	if !ok {
		l = rate.NewLimiter(queueLimiterRate, queueLimiterBurst)
		queueLimiters[subject] = l
	}
	return l
}
