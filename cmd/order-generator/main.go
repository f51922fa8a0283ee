package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"

	"bundle-storefront/internal/checkout"
	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/observability"
)

// phonePrefixes are valid local mobile prefixes.
var phonePrefixes = []string{"020", "024", "026", "027", "050", "054", "055", "059"}

// generator builds fake storefront orders.
type generator struct {
	catalog       *domain.Catalog
	rnd           *rand.Rand
	duplicateRate float64
	pendingRate   float64

	mu     sync.Mutex
	lastTx string
}

func newGenerator(catalog *domain.Catalog, seed int64, duplicateRate, pendingRate float64) *generator {
	return &generator{
		catalog:       catalog,
		rnd:           rand.New(rand.NewSource(seed)),
		duplicateRate: duplicateRate,
		pendingRate:   pendingRate,
	}
}

func (g *generator) phone() string {
	var b strings.Builder
	b.WriteString(phonePrefixes[g.rnd.Intn(len(phonePrefixes))])
	for i := 0; i < 7; i++ {
		b.WriteByte(byte('0' + g.rnd.Intn(10)))
	}
	return b.String()
}

// Next returns a random order. With probability duplicateRate it reuses the previous transaction id.
func (g *generator) Next(now time.Time) domain.NewOrder {
	g.mu.Lock()
	defer g.mu.Unlock()

	networks := g.catalog.Networks()
	network := networks[g.rnd.Intn(len(networks))]
	offers := g.catalog.Offers(network)
	offer := offers[g.rnd.Intn(len(offers))]

	txID := "DF-" + strings.ToUpper(uuid.NewString()[:8])
	if g.lastTx != "" && g.rnd.Float64() < g.duplicateRate {
		txID = g.lastTx
	}
	g.lastTx = txID

	order := domain.NewOrder{
		TransactionID:    txID,
		CustomerName:     faker.Name(),
		Email:            faker.Email(),
		Phone:            g.phone(),
		Network:          network.DisplayName(),
		Bundle:           offer.DisplayName,
		Amount:           offer.Price,
		GatewayReference: txID,
		DateTime:         now.Format("1/2/2006, 3:04:05 PM"),
		Status:           string(domain.StatusCompleted),
	}
	if g.rnd.Float64() < g.pendingRate {
		order.TransactionID = fmt.Sprintf("FALLBACK-%d-%s", now.UnixMilli(), txID)
		order.GatewayReference = ""
		order.Status = string(domain.StatusPendingVerification)
	}
	return order
}

func main() {
	target := flag.String("target", "http://localhost:3000", "storefront base URL")
	rps := flag.Int("rps", 5, "orders per second")
	duplicates := flag.Float64("duplicates", 0.05, "share of orders that resend the previous transaction id")
	pending := flag.Float64("pending", 0.1, "share of orders submitted as pending_verification")
	flag.Parse()

	logger := observability.SetupLogger("development")
	logger.Info("starting order generator", "target", *target, "rps", *rps)

	client := checkout.NewAPIClient(*target, 10*time.Second)
	gen := newGenerator(domain.DefaultCatalog(), time.Now().UnixNano(), *duplicates, *pending)

	ticker := time.NewTicker(time.Second / time.Duration(max(*rps, 1)))
	defer ticker.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for {
		select {
		case <-ticker.C:
			order := gen.Next(time.Now())
			wg.Add(1)
			go func() {
				defer wg.Done()
				send(ctx, client, order, logger)
			}()
		case <-ctx.Done():
			logger.Info("shutting down generator...")
			wg.Wait()
			return
		}
	}
}

func send(ctx context.Context, client *checkout.APIClient, order domain.NewOrder, logger *slog.Logger) {
	id, err := client.Submit(ctx, order)
	switch {
	case err == nil:
		logger.Info("order created", "order_id", id, "transaction_id", order.TransactionID, "status", order.Status)
	case errors.Is(err, domain.ErrDuplicateTransaction):
		logger.Info("duplicate rejected", "transaction_id", order.TransactionID)
	case ctx.Err() != nil:
	default:
		logger.Warn("order failed", "transaction_id", order.TransactionID, "error", err)
	}
}
