package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"bundle-storefront/internal/adapters/gateway/paystack"
	httphandler "bundle-storefront/internal/adapters/http"
	"bundle-storefront/internal/adapters/messaging/kafka"
	"bundle-storefront/internal/adapters/messaging/mock"
	"bundle-storefront/internal/adapters/storage"
	"bundle-storefront/internal/adapters/storage/redis"
	"bundle-storefront/internal/app"
	"bundle-storefront/internal/config"
	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/core/ports"
	"bundle-storefront/internal/observability"
)

const serviceName = "bundle-storefront"

var databaseNames = map[string]string{
	"postgres": "PostgreSQL",
	"mongo":    "MongoDB",
	"mongodb":  "MongoDB",
	"memory":   "in-memory",
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	flag.Parse()

	// --- 1. Configuration and Logging ---
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	cfg, err := config.Load(*configPath)
	if err != nil {
		fallbackLogger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("Application starting", "env", cfg.App.Env, "port", cfg.Server.Port, "storage", cfg.Storage.Driver)

	// --- 2. Observability ---
	shutdownTracer, err := observability.InitTracer(cfg.Jaeger.Port, serviceName)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Failed to shutdown tracer", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- 3. Dependencies ---
	// Storage connects in the background; until then the API answers 503 and health reports "initializing".
	repo := storage.NewDeferred()
	storage.ConnectInBackground(ctx, repo, func(ctx context.Context) (ports.OrderRepository, error) {
		return storage.Open(ctx, cfg)
	}, 0, time.Second, logger)
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("Failed to close storage", "error", err)
		}
	}()

	var broker ports.MessageBroker
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		kb, err := kafka.NewBroker(ctx, brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Error("Failed to create Kafka broker", "error", err)
			os.Exit(1)
		}
		defer kb.Close()
		broker = kb
		logger.Info("Kafka broker created", "topic", cfg.Kafka.Topic)
	} else {
		mb := mock.NewBroker(logger)
		defer mb.Close()
		broker = mb
		logger.Info("Kafka not configured, order events are only logged")
	}

	var (
		rateLimiter *httphandler.RateLimiterMiddleware
		verifyCache ports.VerificationCache
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer closeRedis(rdb, logger)
		rateLimiter = httphandler.NewRateLimiterMiddleware(redis.NewRateLimiterAdapter(rdb),
			cfg.Server.RateLimit, cfg.Server.RateWindow, logger)
		verifyCache = redis.NewVerificationCache(rdb, redis.DefaultVerificationTTL)
		logger.Info("Connected to Redis")
	}

	// --- 4. Service Layer ---
	catalog := domain.DefaultCatalog()
	orderService := app.NewOrderService(repo, broker, catalog, logger)
	gateway := paystack.NewClient(cfg.Paystack.BaseURL, cfg.PaystackSecretKey(), cfg.Paystack.Timeout)
	verificationService := app.NewVerificationService(gateway, verifyCache, logger)
	reconciler := app.NewReconciler(repo, verificationService, logger)

	if cfg.PaystackPublicKey() == "" {
		logger.Warn("Paystack public key not set, checkout cannot start", "mode", cfg.Paystack.Mode)
	}
	if cfg.Admin.JWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set, order history is public and reconciliation is disabled")
	}

	// --- 5. HTTP Router ---
	router := httphandler.NewRouter(httphandler.RouterConfig{
		ServiceName:  serviceName,
		Orders:       httphandler.NewOrderHandler(orderService, logger),
		Verification: httphandler.NewVerificationHandler(verificationService, logger),
		System: httphandler.NewSystemHandler(
			orderService.Ready,
			httphandler.AppInfo{
				Name:        cfg.App.Name,
				Version:     cfg.App.Version,
				Database:    databaseNames[cfg.Storage.Driver],
				Environment: cfg.App.Env,
			},
			httphandler.PublicConfig{PaystackKey: cfg.PaystackPublicKey(), Mode: cfg.Paystack.Mode},
			catalog,
			logger,
		),
		Admin:       httphandler.NewAdminHandler(reconciler, logger),
		RateLimiter: rateLimiter,
		AdminSecret: cfg.Admin.JWTSecret,
		Logger:      logger,
	})

	// --- 6. HTTP Server ---
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		logger.Error("HTTP server failed", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		return
	}

	logger.Info("Server exited properly")
}

func closeRedis(rdb *goredis.Client, logger *slog.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Warn("Failed to close Redis", "error", err)
	}
}
