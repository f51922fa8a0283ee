package http

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"bundle-storefront/internal/core/ports"
	"bundle-storefront/internal/observability"
)

// RateLimiterMiddleware limits requests per client IP and advertises the quota in response headers.
type RateLimiterMiddleware struct {
	repo   ports.RateLimiterRepository
	limit  int
	window time.Duration
	logger *slog.Logger
}

func NewRateLimiterMiddleware(repo ports.RateLimiterRepository, limit int, window time.Duration, logger *slog.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		repo:   repo,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP may already have stripped the port.
		return r.RemoteAddr
	}
	return ip
}

func (m *RateLimiterMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := m.repo.Allow(r.Context(), clientIP(r), m.limit, m.window)
		if err != nil {
			// Fail open: a broken limiter must not take the storefront down.
			observability.LoggerFrom(r.Context(), m.logger).Error("rate limit check failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			observability.RequestsRateLimited.Inc()
			seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
			writeJSONError(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
