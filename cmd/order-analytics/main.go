package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"bundle-storefront/internal/adapters/messaging/kafka"
	"bundle-storefront/internal/adapters/storage/redis"
	"bundle-storefront/internal/analytics"
	"bundle-storefront/internal/config"
	"bundle-storefront/internal/observability"
)

const consumerGroup = "order-analytics-group"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		observability.SetupLogger("").Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("order analytics starting", "env", cfg.App.Env, "topic", cfg.Kafka.Topic)

	brokers := cfg.KafkaBrokers()
	if len(brokers) == 0 {
		logger.Error("KAFKA_BROKERS is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ClickHouse: order facts for the sales reports.
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := analytics.Open(openCtx, cfg.ClickHouse)
	if err == nil {
		err = store.EnsureSchema(openCtx)
	}
	cancel()
	if err != nil {
		logger.Error("failed to prepare ClickHouse", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close ClickHouse connection", "error", err)
		}
	}()

	// Redis is optional; without it only the stateless review rules run.
	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer func(rdb *goredis.Client) {
			if err := rdb.Close(); err != nil {
				logger.Error("Failed to close redis connection", "error", err)
			}
		}(rdb)
	} else {
		logger.Warn("Redis not configured, per-phone review rule disabled")
	}

	signals := analytics.NewSignalEngine(rdb, analytics.DefaultSignalConfig())
	processor := analytics.NewProcessor(store, signals, logger)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:  brokers,
		Group:    consumerGroup,
		Topic:    cfg.Kafka.Topic,
		DLQTopic: cfg.Kafka.DLQTopic,
		Poison:   analytics.ErrMalformedEvent,
	}, logger)
	if err != nil {
		logger.Error("failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	logger.Info("order analytics running", "group", consumerGroup)
	if err := consumer.Run(ctx, processor.Handle); err != nil {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("order analytics stopped")
}
