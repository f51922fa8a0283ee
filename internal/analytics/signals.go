package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bundle-storefront/internal/core/domain"
)

// SignalConfig tunes the review rules.
type SignalConfig struct {
	AmountThreshold   float64
	PhoneWindow       time.Duration
	PhoneMaxPurchases int64
}

func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		AmountThreshold:   300,
		PhoneWindow:       10 * time.Minute,
		PhoneMaxPurchases: 5,
	}
}

// Signal marks an order an operator may want to look at.
type Signal struct {
	Review bool
	Reason string
}

// SignalEngine flags orders using Redis counters shared by all analytics workers.
// With a nil client only the stateless rules run.
type SignalEngine struct {
	rdb *redis.Client
	cfg SignalConfig
}

func NewSignalEngine(rdb *redis.Client, cfg SignalConfig) *SignalEngine {
	return &SignalEngine{rdb: rdb, cfg: cfg}
}

func (e *SignalEngine) Check(ctx context.Context, ev domain.OrderCreatedEvent) (Signal, error) {
	// Rule 1: the gateway never confirmed the payment.
	if ev.Status == domain.StatusPendingVerification {
		return Signal{Review: true, Reason: "payment not verified"}, nil
	}

	// Rule 2: unusually large single purchase.
	if ev.Amount.InexactFloat64() > e.cfg.AmountThreshold {
		return Signal{Review: true, Reason: "amount exceeds threshold"}, nil
	}

	// Rule 3: many purchases for one phone number within the window.
	if ev.Phone == "" || e.rdb == nil {
		return Signal{}, nil
	}
	key := "phone_orders:" + ev.Phone
	count, err := e.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Signal{}, fmt.Errorf("redis INCR failed: %w", err)
	}
	if count == 1 {
		if err := e.rdb.Expire(ctx, key, e.cfg.PhoneWindow).Err(); err != nil {
			return Signal{}, fmt.Errorf("redis EXPIRE failed: %w", err)
		}
	}
	if count > e.cfg.PhoneMaxPurchases {
		return Signal{
			Review: true,
			Reason: fmt.Sprintf("high frequency: %d purchases in %s", count, e.cfg.PhoneWindow),
		}, nil
	}
	return Signal{}, nil
}
