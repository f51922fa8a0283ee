package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bundle-storefront/internal/core/domain"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id                TEXT        NOT NULL,
    transaction_id    TEXT        PRIMARY KEY,
    customer_name     TEXT        NOT NULL,
    email             TEXT        NOT NULL,
    phone             TEXT        NOT NULL,
    network           TEXT        NOT NULL,
    bundle            TEXT        NOT NULL,
    amount            NUMERIC(12,2) NOT NULL,
    gateway_reference TEXT        NOT NULL DEFAULT '',
    date_time         TEXT        NOT NULL DEFAULT '',
    status            TEXT        NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_created_at_idx ON orders (created_at DESC);
CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status);
`

const selectColumns = `id, transaction_id, customer_name, email, phone, network, bundle,
	amount, gateway_reference, date_time, status, created_at, updated_at`

// Repository is an implementation of the OrderRepository port for PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository instance.
// Accepts a DSN (Data Source Name) to connect to and makes sure the orders table exists.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Let's check that the connection to the database actually works.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ensure schema: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Insert stores a new order. A second insert with the same transaction id fails with
// domain.ErrDuplicateTransaction and leaves the stored row untouched.
func (r *Repository) Insert(ctx context.Context, o domain.Order) error {
	const sql = `
		INSERT INTO orders
		    (id, transaction_id, customer_name, email, phone, network, bundle,
		     amount, gateway_reference, date_time, status, created_at, updated_at)
		VALUES
		    ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.pool.Exec(ctx, sql,
		o.ID,
		o.TransactionID,
		o.CustomerName,
		o.Email,
		o.Phone,
		o.Network,
		o.Bundle,
		o.Amount,
		o.GatewayReference,
		o.DateTime,
		string(o.Status),
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// List returns every order, newest first.
func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	return collect(rows)
}

func (r *Repository) FindByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by status: %w", err)
	}
	return collect(rows)
}

// UpdateStatus moves an order from one status to another.
// The WHERE clause on the current status makes concurrent updates safe.
func (r *Repository) UpdateStatus(ctx context.Context, transactionID string, from, to domain.OrderStatus) error {
	if !domain.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE transaction_id = $2 AND status = $3`,
		string(to), transactionID, string(from))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE transaction_id = $1)`, transactionID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return domain.ErrOrderNotFound
	}
	return domain.ErrInvalidTransition
}

func collect(rows pgx.Rows) ([]domain.Order, error) {
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		var (
			o      domain.Order
			status string
		)
		err := row.Scan(
			&o.ID, &o.TransactionID, &o.CustomerName, &o.Email, &o.Phone, &o.Network, &o.Bundle,
			&o.Amount, &o.GatewayReference, &o.DateTime, &status, &o.CreatedAt, &o.UpdatedAt,
		)
		o.Status = domain.OrderStatus(status)
		o.CreatedAt = o.CreatedAt.UTC()
		o.UpdatedAt = o.UpdatedAt.UTC()
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}
	return orders, nil
}
