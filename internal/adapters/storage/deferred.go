// Package storage selects the order store and lets the API start before it is reachable.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"bundle-storefront/internal/adapters/storage/memory"
	"bundle-storefront/internal/adapters/storage/mongo"
	"bundle-storefront/internal/adapters/storage/postgres"
	"bundle-storefront/internal/config"
	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/core/ports"
)

// Deferred is an OrderRepository whose backing store is attached later.
// Until then every call fails with domain.ErrStorageUnavailable.
type Deferred struct {
	repo atomic.Pointer[ports.OrderRepository]
}

func NewDeferred() *Deferred {
	return &Deferred{}
}

// Attach installs the connected repository.
func (d *Deferred) Attach(repo ports.OrderRepository) {
	d.repo.Store(&repo)
}

func (d *Deferred) current() (ports.OrderRepository, error) {
	p := d.repo.Load()
	if p == nil {
		return nil, domain.ErrStorageUnavailable
	}
	return *p, nil
}

func (d *Deferred) Insert(ctx context.Context, o domain.Order) error {
	repo, err := d.current()
	if err != nil {
		return err
	}
	return repo.Insert(ctx, o)
}

func (d *Deferred) List(ctx context.Context) ([]domain.Order, error) {
	repo, err := d.current()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx)
}

func (d *Deferred) FindByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	repo, err := d.current()
	if err != nil {
		return nil, err
	}
	return repo.FindByStatus(ctx, status)
}

func (d *Deferred) UpdateStatus(ctx context.Context, transactionID string, from, to domain.OrderStatus) error {
	repo, err := d.current()
	if err != nil {
		return err
	}
	return repo.UpdateStatus(ctx, transactionID, from, to)
}

func (d *Deferred) Ping(ctx context.Context) error {
	repo, err := d.current()
	if err != nil {
		return err
	}
	return repo.Ping(ctx)
}

func (d *Deferred) Close() error {
	repo, err := d.current()
	if err != nil {
		return nil
	}
	return repo.Close()
}

// Open connects to the store named by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config) (ports.OrderRepository, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return postgres.NewRepository(ctx, cfg.Postgres.DSN)
	case "mongo", "mongodb":
		return mongo.NewRepository(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	case "memory":
		return memory.NewRepository(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// ConnectFunc opens the backing store once.
type ConnectFunc func(ctx context.Context) (ports.OrderRepository, error)

// ConnectInBackground retries connect with a doubling backoff until it succeeds,
// attempts are exhausted or ctx is cancelled. The returned channel is closed when it gives up or attaches.
func ConnectInBackground(ctx context.Context, d *Deferred, connect ConnectFunc, attempts int, backoff time.Duration, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		wait := backoff
		for attempt := 1; attempts <= 0 || attempt <= attempts; attempt++ {
			attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			repo, err := connect(attemptCtx)
			cancel()
			if err == nil {
				d.Attach(repo)
				logger.Info("order storage connected", "attempt", attempt)
				return
			}
			logger.Warn("order storage not reachable, retrying", "attempt", attempt, "retry_in", wait, "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			if wait < 30*time.Second {
				wait *= 2
			}
		}
		logger.Error("order storage unavailable, giving up", "attempts", attempts)
	}()
	return done
}
