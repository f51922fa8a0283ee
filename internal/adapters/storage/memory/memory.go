package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"bundle-storefront/internal/core/domain"
)

// Repository keeps orders in process memory. It is used for local development
// and in tests; data is lost on restart.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]entry
	seq    uint64
	now    func() time.Time
}

type entry struct {
	order domain.Order
	seq   uint64
}

func NewRepository() *Repository {
	return &Repository{
		orders: make(map[string]entry),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) Insert(_ context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.TransactionID]; ok {
		return domain.ErrDuplicateTransaction
	}
	r.seq++
	r.orders[o.TransactionID] = entry{order: o, seq: r.seq}
	return nil
}

func (r *Repository) List(_ context.Context) ([]domain.Order, error) {
	return r.filter(func(domain.Order) bool { return true }), nil
}

func (r *Repository) FindByStatus(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.Status == status }), nil
}

func (r *Repository) UpdateStatus(_ context.Context, transactionID string, from, to domain.OrderStatus) error {
	if !domain.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.orders[transactionID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if e.order.Status != from {
		return domain.ErrInvalidTransition
	}
	e.order.Status = to
	e.order.UpdatedAt = r.now()
	r.orders[transactionID] = e
	return nil
}

func (r *Repository) Ping(context.Context) error { return nil }

func (r *Repository) Close() error { return nil }

// Len reports the number of stored orders.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// filter returns matching orders newest first; insertion order breaks ties.
func (r *Repository) filter(keep func(domain.Order) bool) []domain.Order {
	r.mu.RLock()
	entries := make([]entry, 0, len(r.orders))
	for _, e := range r.orders {
		if keep(e.order) {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.order.CreatedAt.Equal(b.order.CreatedAt) {
			return a.order.CreatedAt.After(b.order.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]domain.Order, len(entries))
	for i, e := range entries {
		out[i] = e.order
	}
	return out
}
