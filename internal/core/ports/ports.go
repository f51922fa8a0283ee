package ports

import (
	"context"
	"io"
	"time"

	"bundle-storefront/internal/core/domain"
)

// OrderRepository is an "outgoing port". It defines WHAT we want to do with the storage, but not HOW.
// Implementations exist for PostgreSQL, MongoDB and in-memory.
// Insert must return domain.ErrDuplicateTransaction when the transaction id is already stored.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	List(ctx context.Context) ([]domain.Order, error)
	FindByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, transactionID string, from, to domain.OrderStatus) error
	Ping(ctx context.Context) error
	Close() error
}

// MessageBroker is another outgoing port for sending messages.
type MessageBroker interface {
	PublishOrderCreated(ctx context.Context, order domain.Order) error
}

// PaymentVerifier asks the payment gateway for the true state of a reference.
type PaymentVerifier interface {
	Verify(ctx context.Context, reference string) (domain.Verification, error)
}

// VerificationCache stores terminal verification results.
type VerificationCache interface {
	Get(ctx context.Context, reference string) (domain.Verification, bool, error)
	Put(ctx context.Context, v domain.Verification) error
}

// RateLimitDecision is the outcome of counting one request against a window.
// RetryAfter is only set when the request is refused.
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiterRepository backs the HTTP rate limiter.
type RateLimiterRepository interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}

// OrderService is an "incoming port" that defines how the outside world can interact with orders.
type OrderService interface {
	CreateOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	ExportOrders(ctx context.Context, w io.Writer) (int, error)
	Ready(ctx context.Context) bool
}

// VerificationService is the read-only reconciliation path against the gateway.
type VerificationService interface {
	Verify(ctx context.Context, reference string) (domain.Verification, error)
}
