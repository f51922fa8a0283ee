package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"bundle-storefront/internal/config"
)

const factsSchema = `
CREATE TABLE IF NOT EXISTS order_facts (
    order_id       String,
    transaction_id String,
    network        LowCardinality(String),
    bundle         LowCardinality(String),
    amount         Decimal(12, 2),
    status         LowCardinality(String),
    review         UInt8,
    review_reason  String,
    created_at     DateTime64(3, 'UTC'),
    processed_at   DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree(processed_at)
ORDER BY (network, transaction_id)`

// OrderFact is one row of order_facts.
type OrderFact struct {
	OrderID       string
	TransactionID string
	Network       string
	Bundle        string
	Amount        decimal.Decimal
	Status        string
	Review        bool
	ReviewReason  string
	CreatedAt     time.Time
	ProcessedAt   time.Time
}

// NetworkSales aggregates completed sales for one network.
type NetworkSales struct {
	Network string
	Orders  uint64
	Revenue decimal.Decimal
}

type BundleSales struct {
	Network string
	Bundle  string
	Orders  uint64
	Revenue decimal.Decimal
}

// Store writes and queries order facts in ClickHouse.
type Store struct {
	conn driver.Conn
}

func Open(ctx context.Context, cfg config.ClickHouseConfig) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("clickhouse address is not configured")
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, factsSchema); err != nil {
		return fmt.Errorf("create order_facts: %w", err)
	}
	return nil
}

func (s *Store) InsertFact(ctx context.Context, f OrderFact) error {
	var review uint8
	if f.Review {
		review = 1
	}
	err := s.conn.Exec(ctx, `
		INSERT INTO order_facts
		    (order_id, transaction_id, network, bundle, amount, status, review, review_reason, created_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.OrderID, f.TransactionID, f.Network, f.Bundle, f.Amount, f.Status,
		review, f.ReviewReason, f.CreatedAt, f.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order fact %s: %w", f.TransactionID, err)
	}
	return nil
}

// SalesByNetwork sums completed orders since the given time.
func (s *Store) SalesByNetwork(ctx context.Context, since time.Time) ([]NetworkSales, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT network, count() AS orders, sum(amount) AS revenue
		FROM order_facts FINAL
		WHERE status = 'completed' AND created_at >= ?
		GROUP BY network
		ORDER BY revenue DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("query sales by network: %w", err)
	}
	defer rows.Close()

	var out []NetworkSales
	for rows.Next() {
		var r NetworkSales
		if err := rows.Scan(&r.Network, &r.Orders, &r.Revenue); err != nil {
			return nil, fmt.Errorf("scan sales by network: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) TopBundles(ctx context.Context, since time.Time, limit int) ([]BundleSales, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT network, bundle, count() AS orders, sum(amount) AS revenue
		FROM order_facts FINAL
		WHERE status = 'completed' AND created_at >= ?
		GROUP BY network, bundle
		ORDER BY orders DESC, revenue DESC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query top bundles: %w", err)
	}
	defer rows.Close()

	var out []BundleSales
	for rows.Next() {
		var r BundleSales
		if err := rows.Scan(&r.Network, &r.Bundle, &r.Orders, &r.Revenue); err != nil {
			return nil, fmt.Errorf("scan top bundles: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReviewQueue lists orders flagged for review, newest first.
func (s *Store) ReviewQueue(ctx context.Context, limit int) ([]OrderFact, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT order_id, transaction_id, network, bundle, amount, status, review_reason, created_at
		FROM order_facts FINAL
		WHERE review = 1
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query review queue: %w", err)
	}
	defer rows.Close()

	var out []OrderFact
	for rows.Next() {
		f := OrderFact{Review: true}
		if err := rows.Scan(&f.OrderID, &f.TransactionID, &f.Network, &f.Bundle, &f.Amount, &f.Status, &f.ReviewReason, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review queue: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
