package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/core/ports"
	"bundle-storefront/internal/observability"
	"bundle-storefront/internal/validation"
)

// orderService is the implementation of the OrderService port
type orderService struct {
	repo     ports.OrderRepository
	broker   ports.MessageBroker
	catalog  *domain.Catalog
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService is the constructor of our service.
// Dependencies come in through interfaces; the catalog is the authoritative price list.
func NewOrderService(repo ports.OrderRepository, broker ports.MessageBroker, catalog *domain.Catalog, logger *slog.Logger) ports.OrderService {
	return &orderService{
		repo:     repo,
		broker:   broker,
		catalog:  catalog,
		validate: validation.NewStructValidator(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type orderInput struct {
	TransactionID string `validate:"required"`
	CustomerName  string `validate:"required"`
	Email         string `validate:"required,shop_email"`
	Phone         string `validate:"required,gh_phone"`
	Network       string `validate:"required"`
	Bundle        string `validate:"required"`
	Status        string `validate:"order_status"`
}

func (s *orderService) CreateOrder(ctx context.Context, in domain.NewOrder) (order *domain.Order, err error) {
	ctx, span := observability.StartSpan(ctx, "orders.create", attribute.String("transaction_id", in.TransactionID))
	defer func() { observability.EndSpan(span, err) }()

	return s.createOrder(ctx, in)
}

func (s *orderService) createOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error) {
	input := orderInput{
		TransactionID: strings.TrimSpace(in.TransactionID),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		Email:         strings.TrimSpace(in.Email),
		Phone:         validation.NormalizePhone(in.Phone),
		Network:       strings.TrimSpace(in.Network),
		Bundle:        strings.TrimSpace(in.Bundle),
		Status:        strings.TrimSpace(in.Status),
	}
	if err := validation.Struct(s.validate, input); err != nil {
		observability.OrdersRejected.WithLabelValues("validation").Inc()
		return nil, err
	}
	if !in.Amount.IsPositive() {
		observability.OrdersRejected.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidationFailed)
	}

	network, err := domain.ParseNetwork(input.Network)
	if err != nil {
		observability.OrdersRejected.WithLabelValues("validation").Inc()
		return nil, err
	}
	offer, ok := s.catalog.Lookup(string(network), input.Bundle)
	if !ok {
		observability.OrdersRejected.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: unknown bundle %q for network %s", domain.ErrValidationFailed, input.Bundle, network)
	}
	if !in.Amount.Equal(offer.Price) {
		observability.OrdersRejected.WithLabelValues("price_mismatch").Inc()
		s.logger.Warn("order amount does not match catalog",
			"transaction_id", input.TransactionID, "amount", in.Amount.StringFixed(2), "catalog_price", offer.Price.StringFixed(2))
		return nil, domain.ErrPriceMismatch
	}

	status, _ := domain.ParseStatus(input.Status)
	now := s.now()
	order := domain.Order{
		ID:               uuid.NewString(),
		TransactionID:    input.TransactionID,
		CustomerName:     input.CustomerName,
		Email:            input.Email,
		Phone:            input.Phone,
		Network:          string(network),
		Bundle:           input.Bundle,
		Amount:           in.Amount,
		GatewayReference: strings.TrimSpace(in.GatewayReference),
		DateTime:         in.DateTime,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, order); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateTransaction):
			observability.OrdersRejected.WithLabelValues("duplicate").Inc()
			return nil, err
		case errors.Is(err, domain.ErrStorageUnavailable):
			return nil, err
		}
		return nil, fmt.Errorf("save order: %w", err)
	}
	observability.OrdersCreated.WithLabelValues(order.Network, string(order.Status)).Inc()

	// The order is stored; a broker failure must not fail the request.
	if err := s.broker.PublishOrderCreated(ctx, order); err != nil {
		s.logger.Warn("failed to publish order.created", "transaction_id", order.TransactionID, "error", err)
	}

	return &order, nil
}

func (s *orderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) Ready(ctx context.Context) bool {
	return s.repo.Ping(ctx) == nil
}
