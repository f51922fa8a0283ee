package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bundle-storefront/internal/analytics"
	"bundle-storefront/internal/config"
	"bundle-storefront/internal/observability"
)

// Check describes one diagnostic check.
type Check struct {
	Name     string
	Func     func(ctx context.Context) error
	Skipped  bool
	Error    error
	Duration time.Duration
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	apiURL := flag.String("api", "", "storefront base URL (default http://localhost<server.port>)")
	flag.Parse()

	logger := observability.SetupLogger("development")
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *apiURL == "" {
		*apiURL = "http://localhost" + cfg.Server.Port
	}

	checks := buildChecks(cfg, *apiURL, logger)
	fmt.Println("Running storefront diagnostics...")
	runChecks(checks, 15*time.Second)

	if report(checks) {
		color.Red("\nDiagnostics found problems.")
		os.Exit(1)
	}
	color.Green("\nAll systems operational.")
}

func buildChecks(cfg *config.Config, apiURL string, logger *slog.Logger) []Check {
	checks := []Check{
		{Name: "Storefront API", Func: func(ctx context.Context) error {
			return checkHTTPHealth(ctx, strings.TrimRight(apiURL, "/")+"/api/health", logger)
		}},
		{Name: "Paystack API", Func: func(ctx context.Context) error {
			return checkReachable(ctx, cfg.Paystack.BaseURL, logger)
		}},
	}

	switch cfg.Storage.Driver {
	case "postgres":
		checks = append(checks, Check{Name: "PostgreSQL", Func: func(ctx context.Context) error {
			return checkPostgres(ctx, cfg.Postgres.DSN, logger)
		}})
	case "mongo", "mongodb":
		checks = append(checks, Check{Name: "MongoDB", Func: func(ctx context.Context) error {
			return checkMongo(ctx, cfg.Mongo.URI, logger)
		}})
	}

	checks = append(checks,
		Check{Name: "Redis", Skipped: cfg.Redis.Addr == "", Func: func(ctx context.Context) error {
			return checkRedis(ctx, cfg.Redis.Addr, logger)
		}},
		Check{Name: "Kafka Cluster", Skipped: len(cfg.KafkaBrokers()) == 0, Func: func(ctx context.Context) error {
			return checkKafka(ctx, cfg.KafkaBrokers())
		}},
		Check{Name: "ClickHouse", Skipped: cfg.ClickHouse.Addr == "", Func: func(ctx context.Context) error {
			return checkClickHouse(ctx, cfg.ClickHouse)
		}},
	)
	return checks
}

func runChecks(checks []Check, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var wg sync.WaitGroup
	for i := range checks {
		if checks[i].Skipped {
			continue
		}
		wg.Add(1)
		go func(c *Check) {
			defer wg.Done()
			start := time.Now()
			c.Error = c.Func(ctx)
			c.Duration = time.Since(start)
		}(&checks[i])
	}
	wg.Wait()
}

// report prints the results and returns true when any check failed.
func report(checks []Check) bool {
	ok := color.New(color.FgGreen).SprintFunc()
	failed := color.New(color.FgRed, color.Bold).SprintFunc()
	skipped := color.New(color.FgYellow).SprintFunc()

	fmt.Println("\n--- Diagnostics report ---")
	hasErrors := false
	for _, c := range checks {
		switch {
		case c.Skipped:
			fmt.Printf("[%s] %-20s not configured\n", skipped("SKIP"), c.Name)
		case c.Error != nil:
			hasErrors = true
			fmt.Printf("[%s] %-20s (%v) - %v\n", failed("FAIL"), c.Name, c.Duration.Round(time.Millisecond), c.Error)
		default:
			fmt.Printf("[%s] %-20s (%v)\n", ok(" OK "), c.Name, c.Duration.Round(time.Millisecond))
		}
	}
	return hasErrors
}

// --- Functions for checks ---

func checkHTTPHealth(ctx context.Context, url string, logger *slog.Logger) error {
	status, err := get(ctx, url, logger)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("unexpected status: %d", status)
	}
	return nil
}

// checkReachable only needs an HTTP answer; an unauthenticated request to the gateway root is expected to fail.
func checkReachable(ctx context.Context, url string, logger *slog.Logger) error {
	status, err := get(ctx, url, logger)
	if err != nil {
		return err
	}
	if status >= 500 {
		return fmt.Errorf("unexpected status: %d", status)
	}
	return nil
}

func get(ctx context.Context, url string, logger *slog.Logger) (int, error) {
	if !strings.HasPrefix(url, "http") {
		url = "http://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()
	return resp.StatusCode, nil
}

func checkPostgres(ctx context.Context, dsn string, logger *slog.Logger) error {
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			logger.Error("failed to close Postgres connection", "error", err)
		}
	}()
	return conn.Ping(ctx)
}

func checkMongo(ctx context.Context, uri string, logger *slog.Logger) error {
	if uri == "" {
		return fmt.Errorf("MONGODB_URI is not set")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect from MongoDB", "error", err)
		}
	}()
	return client.Ping(ctx, nil)
}

func checkRedis(ctx context.Context, addr string, logger *slog.Logger) error {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("failed to close Redis", "error", err)
		}
	}()
	return rdb.Ping(ctx).Err()
}

func checkKafka(ctx context.Context, brokers []string) error {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DialTimeout(5*time.Second),
	)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Ping(ctx)
}

func checkClickHouse(ctx context.Context, cfg config.ClickHouseConfig) error {
	store, err := analytics.Open(ctx, cfg)
	if err != nil {
		return err
	}
	return store.Close()
}
