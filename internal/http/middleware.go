// Package http provides the HTTP API server, its middleware chain and the
// Prometheus metrics server.
package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/allisson/lockbox/internal/httputil"
	"github.com/allisson/lockbox/internal/identity"
)

// Identity headers set by the upstream identity layer. The service trusts
// these as given; validating the credentials behind them is out of scope.
const (
	HeaderSubjectID = "X-Subject-Id"
	HeaderRoles     = "X-Roles"
)

// CustomLoggerMiddleware logs HTTP requests with the request id.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("http request",
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_addr", c.ClientIP()),
		)
	}
}

// IdentityMiddleware resolves the caller identity from the identity headers
// and stores it in the request context. Requests without a subject id are
// rejected with 401 before reaching any handler.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID := strings.TrimSpace(c.GetHeader(HeaderSubjectID))
		if subjectID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.ErrorResponse{
				Error:   "unauthorized",
				Message: "missing subject identity header",
			})
			return
		}

		ident := identity.Identity{
			SubjectID: subjectID,
			Roles:     parseRoles(c.GetHeader(HeaderRoles)),
		}

		ctx := identity.WithIdentity(c.Request.Context(), ident)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// parseRoles splits a comma-separated role list, trimming whitespace and
// dropping empty entries.
func parseRoles(rolesHeader string) []string {
	if rolesHeader == "" {
		return nil
	}

	parts := strings.Split(rolesHeader, ",")
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			roles = append(roles, trimmed)
		}
	}

	return roles
}

// subjectRateLimiter tracks one token-bucket limiter per subject id.
type subjectRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// newSubjectRateLimiter creates a per-subject rate limiter.
func newSubjectRateLimiter(requestsPerSec float64, burst int) *subjectRateLimiter {
	return &subjectRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(requestsPerSec),
		burst:    burst,
	}
}

// limiter returns the limiter for one subject, creating it on first use.
func (s *subjectRateLimiter) limiter(subjectID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[subjectID]
	if !ok {
		limiter = rate.NewLimiter(s.rps, s.burst)
		s.limiters[subjectID] = limiter
	}

	return limiter
}

// RateLimitMiddleware applies per-subject rate limiting. It must run after
// IdentityMiddleware; requests without an identity fall back to the client IP
// as the bucket key.
func RateLimitMiddleware(requestsPerSec float64, burst int) gin.HandlerFunc {
	limiters := newSubjectRateLimiter(requestsPerSec, burst)

	return func(c *gin.Context) {
		key := c.ClientIP()
		if ident, ok := identity.GetIdentity(c.Request.Context()); ok {
			key = ident.SubjectID
		}

		if !limiters.limiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.ErrorResponse{
				Error:   "rate_limited",
				Message: "too many requests",
			})
			return
		}

		c.Next()
	}
}
