package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a persisted purchase of a data bundle.
// TransactionID is the primary key; ID is the server-generated identifier returned to clients.
type Order struct {
	ID               string
	TransactionID    string
	CustomerName     string
	Email            string
	Phone            string
	Network          string
	Bundle           string
	Amount           decimal.Decimal
	GatewayReference string
	DateTime         string // client supplied, display only
	Status           OrderStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrder is the input of the persistence service, as submitted by the storefront.
type NewOrder struct {
	TransactionID    string
	CustomerName     string
	Email            string
	Phone            string
	Network          string
	Bundle           string
	Amount           decimal.Decimal
	GatewayReference string
	DateTime         string
	Status           string
}

// OrderCreatedEvent is published after an order is stored.
type OrderCreatedEvent struct {
	OrderID       string          `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Phone         string          `json:"phone"`
	Network       string          `json:"network"`
	Bundle        string          `json:"bundle"`
	Amount        decimal.Decimal `json:"amount"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (o Order) CreatedEvent() OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:       o.ID,
		TransactionID: o.TransactionID,
		Phone:         o.Phone,
		Network:       o.Network,
		Bundle:        o.Bundle,
		Amount:        o.Amount,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
	}
}
