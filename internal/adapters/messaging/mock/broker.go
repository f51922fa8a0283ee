package mock

import (
	"context"
	"log/slog"

	"bundle-storefront/internal/core/domain"
)

// Broker is a MessageBroker that only logs. It is used when no Kafka brokers are configured.
type Broker struct {
	logger *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{logger: logger}
}

func (b *Broker) Close() {}

func (b *Broker) PublishOrderCreated(_ context.Context, o domain.Order) error {
	b.logger.Debug("order.created (not published, kafka disabled)",
		"transaction_id", o.TransactionID,
		"network", o.Network,
		"bundle", o.Bundle,
		"amount", o.Amount.StringFixed(2),
	)
	return nil
}
