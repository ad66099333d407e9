package gateway

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"agrimarket/internal/logger"
	"agrimarket/internal/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const requestIDKey = "RequestID"

// corsMiddleware allows browser dashboards served from another origin.
func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestIDMiddleware tags each request with an id, reusing X-Request-ID when
// the caller sends one, and carries it in the request context.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = logger.NewRequestID()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), id))
		c.Next()
	}
}

// requestLogger logs every request and counts it per route.
func requestLogger(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.HTTPRequest(route, status)

		attrs := append(logger.LogWithTrace(c.Request.Context()),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", float64(time.Since(start).Microseconds())/1000,
			"client_ip", c.ClientIP(),
		)
		if status >= http.StatusInternalServerError {
			slog.Error("http request", attrs...)
			return
		}
		slog.Debug("http request", attrs...)
	}
}

// ipLimiter hands out one token bucket per client IP. Idle buckets are
// swept every sweepEvery.
type ipLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ipBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type ipBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

const sweepEvery = 5 * time.Minute

func newIPLimiter(perSec float64, burst int) *ipLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{
		limiters:  make(map[string]*ipBucket),
		limit:     rate.Limit(perSec),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepEvery {
		for k, b := range l.limiters {
			if now.Sub(b.lastSeen) >= sweepEvery {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.limiters[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// rateLimitMiddleware rejects clients exceeding their per-IP budget.
func rateLimitMiddleware(l *ipLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.allow(ip, time.Now()) {
			slog.Warn("rate limit exceeded", "client_ip", ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
