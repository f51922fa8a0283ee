package checkout

import (
	"sync"

	"bundle-storefront/internal/core/domain"
)

const ConfirmationKey = "lastOrder"

// Confirmation is handed to the confirmation view.
type Confirmation struct {
	Order    domain.NewOrder
	OrderID  string
	Warnings []string
}

// SessionStore is short-lived storage scoped to one customer session.
type SessionStore interface {
	Put(key string, c Confirmation)
	Get(key string) (Confirmation, bool)
}

// Navigator moves the customer to another view.
type Navigator interface {
	Navigate(view string)
}

// MemorySession is an in-process SessionStore.
type MemorySession struct {
	mu    sync.Mutex
	items map[string]Confirmation
}

func NewMemorySession() *MemorySession {
	return &MemorySession{items: make(map[string]Confirmation)}
}

func (s *MemorySession) Put(key string, c Confirmation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = c
}

func (s *MemorySession) Get(key string) (Confirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[key]
	return c, ok
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(view string)

func (f NavigatorFunc) Navigate(view string) { f(view) }
