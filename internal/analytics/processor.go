// Package analytics turns order.created events into ClickHouse facts and review signals.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bundle-storefront/internal/core/domain"
)

// ErrMalformedEvent marks records that can never be processed and belong in the DLQ.
var ErrMalformedEvent = errors.New("malformed order event")

type FactWriter interface {
	InsertFact(ctx context.Context, f OrderFact) error
}

type Signaler interface {
	Check(ctx context.Context, ev domain.OrderCreatedEvent) (Signal, error)
}

// Processor handles one order.created payload.
type Processor struct {
	facts   FactWriter
	signals Signaler // optional
	logger  *slog.Logger
	now     func() time.Time
}

func NewProcessor(facts FactWriter, signals Signaler, logger *slog.Logger) *Processor {
	return &Processor{
		facts:   facts,
		signals: signals,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DecodeEvent parses and sanity checks an order.created payload.
func DecodeEvent(payload []byte) (domain.OrderCreatedEvent, error) {
	var ev domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(ev.TransactionID) == "" {
		return ev, fmt.Errorf("%w: missing transaction_id", ErrMalformedEvent)
	}
	if _, ok := domain.ParseStatus(string(ev.Status)); !ok {
		return ev, fmt.Errorf("%w: unknown status %q", ErrMalformedEvent, ev.Status)
	}
	return ev, nil
}

// Handle returns ErrMalformedEvent for poison messages; any other error is retryable.
func (p *Processor) Handle(ctx context.Context, payload []byte) error {
	ev, err := DecodeEvent(payload)
	if err != nil {
		return err
	}

	var sig Signal
	if p.signals != nil {
		sig, err = p.signals.Check(ctx, ev)
		if err != nil {
			// Signals are advisory; record the fact anyway.
			p.logger.Warn("review signal check failed", "transaction_id", ev.TransactionID, "error", err)
		}
	}

	status := ev.Status
	if status == "" {
		status = domain.StatusCompleted
	}
	fact := OrderFact{
		OrderID:       ev.OrderID,
		TransactionID: ev.TransactionID,
		Network:       ev.Network,
		Bundle:        ev.Bundle,
		Amount:        ev.Amount,
		Status:        string(status),
		Review:        sig.Review,
		ReviewReason:  sig.Reason,
		CreatedAt:     ev.CreatedAt,
		ProcessedAt:   p.now(),
	}
	if err := p.facts.InsertFact(ctx, fact); err != nil {
		return err
	}

	p.logger.Info("order fact recorded", "transaction_id", ev.TransactionID, "network", ev.Network, "review", sig.Review)
	return nil
}
