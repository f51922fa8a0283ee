// Package checkout drives one purchase from form submission to the confirmation view.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/validation"
)

// State is the checkout's position in the purchase flow. Runs start and end in
// StateIdle, StateComplete or StateCancelled.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateAwaitingPayment
	StatePaymentConfirmed
	StatePersisting
	StateComplete
	StateCancelled
	StateFallbackConfirmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAwaitingPayment:
		return "awaiting_payment"
	case StatePaymentConfirmed:
		return "payment_confirmed"
	case StatePersisting:
		return "persisting"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	case StateFallbackConfirmed:
		return "fallback_confirmed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

const (
	// DefaultFallbackAfter is how long the gateway callback may take before the
	// order is confirmed as pending_verification.
	DefaultFallbackAfter = 30 * time.Second
	DefaultRedirectDelay = 2 * time.Second
	DefaultCurrency      = "GHS"
	ConfirmationView     = "/confirmation"
	// WarningNotSaved is shown when the payment went through but the order record was not stored.
	WarningNotSaved       = "Your payment was received, but we could not save your order record. Please keep your reference."
	fallbackReferenceTmpl = "FALLBACK-%d-%s"
)

// ErrCheckoutInProgress is returned by Run while another Run on the same controller is in flight.
var ErrCheckoutInProgress = errors.New("a checkout is already in progress")

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// Submitter sends a confirmed order to the persistence service and returns the stored order id.
type Submitter interface {
	Submit(ctx context.Context, order domain.NewOrder) (string, error)
}

// Options configures a Controller. Catalog, Gateway and Submitter are required;
// everything else has a default.
type Options struct {
	Catalog   *domain.Catalog
	Gateway   Gateway
	Submitter Submitter
	Session   SessionStore
	Navigator Navigator
	Logger    *slog.Logger

	PublicKey     string
	Currency      string
	FallbackAfter time.Duration
	RedirectDelay time.Duration

	// Clock hooks; nil means the real clock.
	AfterFunc    func(d time.Duration, f func()) Timer
	Sleep        func(ctx context.Context, d time.Duration) error
	Now          func() time.Time
	NewReference func() string
}

// Outcome is the end state of one Run.
type Outcome struct {
	State    State
	Order    domain.NewOrder
	OrderID  string
	Warnings []string
}

// Controller runs a single in-flight order at a time.
type Controller struct {
	opts     Options
	state    atomic.Int32
	inFlight atomic.Bool
}

// New validates opts and fills in defaults.
func New(opts Options) (*Controller, error) {
	if opts.Catalog == nil || opts.Gateway == nil || opts.Submitter == nil {
		return nil, errors.New("checkout: catalog, gateway and submitter are required")
	}
	if opts.Session == nil {
		opts.Session = NewMemorySession()
	}
	if opts.Navigator == nil {
		opts.Navigator = NavigatorFunc(func(string) {})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Currency == "" {
		opts.Currency = DefaultCurrency
	}
	if opts.FallbackAfter <= 0 {
		opts.FallbackAfter = DefaultFallbackAfter
	}
	if opts.RedirectDelay < 0 {
		opts.RedirectDelay = 0
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewReference == nil {
		opts.NewReference = func() string { return "DF-" + strings.ToUpper(uuid.NewString()[:8]) }
	}
	return &Controller{opts: opts}, nil
}

// State reports the current state; safe to call from any goroutine.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	c.opts.Logger.Debug("checkout state", "from", prev, "to", s)
}

// Run validates the form, opens the payment and waits for the gateway or the fallback timer.
// Validation and configuration problems return an error with the controller back in Idle.
// A closed popup ends in Cancelled with a nil error.
func (c *Controller) Run(ctx context.Context, form validation.Form) (Outcome, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Outcome{State: c.State()}, ErrCheckoutInProgress
	}
	defer c.inFlight.Store(false)

	c.setState(StateValidating)
	if err := validation.ValidateForm(form); err != nil {
		c.setState(StateIdle)
		return Outcome{State: StateIdle}, err
	}
	if c.opts.PublicKey == "" {
		c.setState(StateIdle)
		return Outcome{State: StateIdle}, domain.ErrConfigurationMissing
	}
	offer, ok := c.opts.Catalog.Lookup(form.Network, form.Bundle)
	if !ok {
		c.setState(StateIdle)
		return Outcome{State: StateIdle}, fmt.Errorf("%w: bundle %q is not sold on %s", domain.ErrValidationFailed, form.Bundle, form.Network)
	}

	req := PaymentRequest{
		Key:         c.opts.PublicKey,
		Email:       strings.TrimSpace(form.Email),
		AmountMinor: offer.MinorUnits(),
		Currency:    c.opts.Currency,
		Reference:   c.opts.NewReference(),
		Metadata: map[string]string{
			"customer_name": strings.TrimSpace(form.FullName),
			"phone":         validation.NormalizePhone(form.Phone),
			"network":       offer.Network.DisplayName(),
			"bundle":        offer.DisplayName,
		},
	}
	payment, err := c.opts.Gateway.Setup(ctx, req)
	if err != nil {
		c.setState(StateIdle)
		return Outcome{State: StateIdle}, fmt.Errorf("set up payment: %w", err)
	}
	if err := payment.Open(); err != nil {
		payment.Cancel()
		c.setState(StateIdle)
		return Outcome{State: StateIdle}, fmt.Errorf("open payment: %w", err)
	}
	c.setState(StateAwaitingPayment)

	// resolved belongs to this run only; a timer left over from an earlier run cannot touch it.
	var resolved atomic.Bool
	fallback := make(chan struct{})
	timer := c.opts.AfterFunc(c.opts.FallbackAfter, func() {
		if resolved.CompareAndSwap(false, true) {
			close(fallback)
		}
	})

	results := payment.Result()
	done := ctx.Done()
	for {
		select {
		case res, ok := <-results:
			results = nil
			if !resolved.CompareAndSwap(false, true) {
				// the fallback already resolved this order
				c.opts.Logger.Info("gateway callback after fallback ignored", "reference", res.Reference)
				continue
			}
			timer.Stop()
			if !ok || res.Kind != ResultSuccess {
				payment.Cancel()
				c.setState(StateCancelled)
				c.opts.Logger.Info("payment window closed", "reference", req.Reference)
				return Outcome{State: StateCancelled}, nil
			}
			if res.Reference == "" {
				res.Reference = req.Reference
			}
			return c.confirmPayment(ctx, form, offer, res.Reference), nil

		case <-fallback:
			payment.Cancel()
			return c.confirmFallback(ctx, form, offer), nil

		case <-done:
			done = nil
			if !resolved.CompareAndSwap(false, true) {
				continue
			}
			timer.Stop()
			payment.Cancel()
			c.setState(StateCancelled)
			return Outcome{State: StateCancelled}, ctx.Err()
		}
	}
}

func (c *Controller) buildOrder(form validation.Form, offer domain.BundleOffer, ref string, status domain.OrderStatus) domain.NewOrder {
	return domain.NewOrder{
		TransactionID:    ref,
		CustomerName:     strings.TrimSpace(form.FullName),
		Email:            strings.TrimSpace(form.Email),
		Phone:            validation.NormalizePhone(form.Phone),
		Network:          string(offer.Network),
		Bundle:           offer.DisplayName,
		Amount:           offer.Price,
		GatewayReference: ref,
		DateTime:         c.opts.Now().Format("1/2/2006, 3:04:05 PM"),
		Status:           string(status),
	}
}

func (c *Controller) confirmPayment(ctx context.Context, form validation.Form, offer domain.BundleOffer, ref string) Outcome {
	c.setState(StatePaymentConfirmed)
	order := c.buildOrder(form, offer, ref, domain.StatusCompleted)

	c.setState(StatePersisting)
	out := Outcome{Order: order}
	id, err := c.opts.Submitter.Submit(ctx, order)
	switch {
	case err == nil:
		out.OrderID = id
	case errors.Is(err, domain.ErrDuplicateTransaction):
		// already stored by an earlier attempt
		c.opts.Logger.Info("order already recorded", "transaction_id", ref)
	default:
		c.opts.Logger.Warn("order could not be saved", "transaction_id", ref, "error", err)
		out.Warnings = append(out.Warnings, WarningNotSaved)
	}
	return c.complete(ctx, out)
}

// confirmFallback synthesizes an unverified order. It is never sent to storage;
// an operator reconciles it against the gateway later.
func (c *Controller) confirmFallback(ctx context.Context, form validation.Form, offer domain.BundleOffer) Outcome {
	c.setState(StateFallbackConfirmed)
	ref := fmt.Sprintf(fallbackReferenceTmpl, c.opts.Now().UnixMilli(), c.opts.NewReference())
	order := c.buildOrder(form, offer, ref, domain.StatusPendingVerification)
	order.GatewayReference = ""
	c.opts.Logger.Warn("no gateway callback before fallback timer, order pending verification", "transaction_id", ref)
	return c.complete(ctx, Outcome{Order: order})
}

func (c *Controller) complete(ctx context.Context, out Outcome) Outcome {
	if err := c.opts.Sleep(ctx, c.opts.RedirectDelay); err != nil {
		c.opts.Logger.Debug("redirect delay cut short", "error", err)
	}
	c.opts.Session.Put(ConfirmationKey, Confirmation{Order: out.Order, OrderID: out.OrderID, Warnings: out.Warnings})
	c.opts.Navigator.Navigate(ConfirmationView)
	c.setState(StateComplete)
	out.State = StateComplete
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
