package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	// OrdersCreated counts stored orders.
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Orders stored, by network and status.",
		},
		[]string{"network", "status"},
	)
	// OrdersRejected counts refused order submissions.
	OrdersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_rejected_total",
			Help: "Order submissions rejected, by reason.",
		},
		[]string{"reason"},
	)
	// RequestsRateLimited counts requests refused by the rate limiter.
	RequestsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_requests_rate_limited_total",
			Help: "Requests refused with 429.",
		},
	)
	// Verifications counts payment verification outcomes.
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_verifications_total",
			Help: "Payment verifications, by outcome and source.",
		},
		[]string{"status", "source"},
	)
)

// NewMetricsMiddleware Creates HTTP middleware for collecting Prometheus metrics.
// The path label is the chi route pattern so ids in URLs do not explode cardinality.
func NewMetricsMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				duration := time.Since(start)
				path := r.URL.Path
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					path = rctx.RoutePattern()
				}

				httpRequestDuration.WithLabelValues(serviceName, r.Method, path).Observe(duration.Seconds())
				httpRequestsTotal.WithLabelValues(serviceName, r.Method, path, strconv.Itoa(ww.Status())).Inc()
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
