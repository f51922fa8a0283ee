package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bundle-storefront/internal/checkout"
	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/observability"
	"bundle-storefront/internal/validation"
)

// simulatedGateway stands in for the payment popup.
// mode is one of "success", "close" or "hang" (never answers, so the fallback timer wins).
type simulatedGateway struct {
	mode   string
	delay  time.Duration
	logger *slog.Logger
}

type simulatedPayment struct {
	req     checkout.PaymentRequest
	mode    string
	delay   time.Duration
	results chan checkout.PaymentResult
	done    chan struct{}
	once    sync.Once
}

func (g *simulatedGateway) Setup(_ context.Context, req checkout.PaymentRequest) (checkout.Payment, error) {
	switch g.mode {
	case "success", "close", "hang":
	default:
		return nil, fmt.Errorf("unknown gateway mode %q", g.mode)
	}
	g.logger.Info("payment popup prepared",
		"reference", req.Reference, "amount_minor", req.AmountMinor, "currency", req.Currency, "email", req.Email)
	return &simulatedPayment{
		req:     req,
		mode:    g.mode,
		delay:   g.delay,
		results: make(chan checkout.PaymentResult, 1),
		done:    make(chan struct{}),
	}, nil
}

func (p *simulatedPayment) Open() error {
	if p.mode == "hang" {
		return nil
	}
	go func() {
		select {
		case <-time.After(p.delay):
		case <-p.done:
			return
		}
		kind := checkout.ResultSuccess
		if p.mode == "close" {
			kind = checkout.ResultClosed
		}
		p.results <- checkout.PaymentResult{Kind: kind, Reference: p.req.Reference}
	}()
	return nil
}

func (p *simulatedPayment) Result() <-chan checkout.PaymentResult { return p.results }

func (p *simulatedPayment) Cancel() {
	p.once.Do(func() { close(p.done) })
}

func main() {
	target := flag.String("target", "http://localhost:3000", "storefront base URL")
	mode := flag.String("mode", "success", "gateway behaviour: success, close or hang")
	delay := flag.Duration("delay", 2*time.Second, "time before the simulated gateway answers")
	fallbackAfter := flag.Duration("fallback-after", checkout.DefaultFallbackAfter, "fallback confirmation timer")
	network := flag.String("network", "MTN", "network")
	bundle := flag.String("bundle", "2GB", "bundle")
	phone := flag.String("phone", "0241234567", "recipient phone")
	email := flag.String("email", "buyer@example.com", "customer email")
	name := flag.String("name", "Ama Mensah", "customer full name")
	flag.Parse()

	logger := observability.SetupLogger("development")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := checkout.NewAPIClient(*target, 10*time.Second)
	publicCfg, err := client.PublicConfig(ctx)
	if err != nil {
		logger.Error("failed to load public config", "error", err)
		os.Exit(1)
	}

	session := checkout.NewMemorySession()
	controller, err := checkout.New(checkout.Options{
		Catalog:       domain.DefaultCatalog(),
		Gateway:       &simulatedGateway{mode: *mode, delay: *delay, logger: logger},
		Submitter:     client,
		Session:       session,
		Navigator:     checkout.NavigatorFunc(func(view string) { logger.Info("navigate", "view", view) }),
		Logger:        logger,
		PublicKey:     publicCfg.PaystackKey,
		FallbackAfter: *fallbackAfter,
	})
	if err != nil {
		logger.Error("failed to create checkout controller", "error", err)
		os.Exit(1)
	}

	outcome, err := controller.Run(ctx, validation.Form{
		Network:  *network,
		Bundle:   *bundle,
		Phone:    *phone,
		Email:    *email,
		FullName: *name,
	})
	if err != nil {
		var formErr *validation.FormError
		if errors.As(err, &formErr) {
			for _, f := range formErr.Fields {
				logger.Error("invalid field", "field", f.Field, "message", f.Message)
			}
		} else {
			logger.Error("checkout failed", "state", outcome.State, "error", err)
		}
		os.Exit(1)
	}

	logger.Info("checkout finished",
		"state", outcome.State,
		"order_id", outcome.OrderID,
		"transaction_id", outcome.Order.TransactionID,
		"status", outcome.Order.Status,
		"warnings", outcome.Warnings)

	if outcome.State == checkout.StateComplete && outcome.Order.GatewayReference != "" {
		res, err := client.VerifyPayment(ctx, outcome.Order.GatewayReference)
		if err != nil {
			logger.Warn("verification request failed", "error", err)
			return
		}
		logger.Info("gateway verification", "status", res.Status, "verified", res.Verified)
	}
}
