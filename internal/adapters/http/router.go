package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bundle-storefront/internal/observability"
)

// RouterConfig carries everything the API routes need.
type RouterConfig struct {
	ServiceName  string
	Orders       *OrderHandler
	Verification *VerificationHandler
	System       *SystemHandler
	Admin        *AdminHandler
	RateLimiter  *RateLimiterMiddleware // optional
	AdminSecret  string                 // empty leaves order listing open
	Logger       *slog.Logger
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	mw := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
	}
	if cfg.RateLimiter != nil {
		mw = append(mw, cfg.RateLimiter.Handler)
	}
	mw = append(mw,
		middleware.Recoverer,
		observability.NewLoggerMiddleware(cfg.Logger),
		observability.NewMetricsMiddleware(cfg.ServiceName),
		observability.NewTracingMiddleware(cfg.ServiceName),
	)
	r.Use(mw...)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", cfg.System.HandleHealth)
		r.Get("/info", cfg.System.HandleInfo)
		r.Get("/config", cfg.System.HandleConfig)
		r.Get("/catalog", cfg.System.HandleCatalog)
		r.Get("/verify-payment", cfg.Verification.HandleVerifyPayment)

		r.Post("/orders", cfg.Orders.HandleCreateOrder)
		r.Group(func(r chi.Router) {
			r.Use(OptionalJWTMiddleware(cfg.AdminSecret, cfg.Logger))
			r.Get("/orders", cfg.Orders.HandleListOrders)
			r.Get("/orders/export/excel", cfg.Orders.HandleExportOrders)
		})

		// Reconciliation is only reachable with a signed admin token.
		if cfg.Admin != nil && cfg.AdminSecret != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(JWTMiddleware([]byte(cfg.AdminSecret), cfg.Logger))
				r.Post("/reconcile", cfg.Admin.HandleReconcile)
			})
		}
	})

	return r
}
