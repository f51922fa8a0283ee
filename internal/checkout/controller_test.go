package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/observability"
	"bundle-storefront/internal/validation"
)

type fakePayment struct {
	results   chan PaymentResult
	opened    atomic.Bool
	cancelled atomic.Int32
}

func newFakePayment() *fakePayment {
	return &fakePayment{results: make(chan PaymentResult, 1)}
}

func (p *fakePayment) Open() error                  { p.opened.Store(true); return nil }
func (p *fakePayment) Result() <-chan PaymentResult { return p.results }
func (p *fakePayment) Cancel()                      { p.cancelled.Add(1) }

type fakeGateway struct {
	payment *fakePayment
	next    []*fakePayment // handed out one per Setup before payment
	mu      sync.Mutex
	reqs    []PaymentRequest
	err     error
}

func (g *fakeGateway) Setup(_ context.Context, req PaymentRequest) (Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	if g.err != nil {
		return nil, g.err
	}
	if len(g.next) > 0 {
		p := g.next[0]
		g.next = g.next[1:]
		return p, nil
	}
	return g.payment, nil
}

// MockSubmitter is a mock for Submitter.
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, o domain.NewOrder) (string, error) {
	args := m.Called(ctx, o)
	return args.String(0), args.Error(1)
}

// manualTimer fires only when the test says so.
type manualTimer struct {
	mu      sync.Mutex
	f       func()
	armed   chan struct{}
	stopped bool
}

func newManualTimer() *manualTimer {
	return &manualTimer{armed: make(chan struct{})}
}

func (t *manualTimer) afterFunc(_ time.Duration, f func()) Timer {
	t.mu.Lock()
	t.f = f
	t.mu.Unlock()
	close(t.armed)
	return t
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *manualTimer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Fire runs the callback even after Stop, like a timer that already expired.
func (t *manualTimer) Fire() {
	<-t.armed
	t.mu.Lock()
	f := t.f
	t.mu.Unlock()
	f()
}

// timerQueue hands out a fresh manualTimer for every checkout.
type timerQueue struct {
	armed chan *manualTimer
}

func newTimerQueue() *timerQueue {
	return &timerQueue{armed: make(chan *manualTimer, 4)}
}

func (q *timerQueue) afterFunc(d time.Duration, f func()) Timer {
	t := newManualTimer()
	t.afterFunc(d, f)
	q.armed <- t
	return t
}

type recorder struct {
	mu    sync.Mutex
	views []string
}

func (r *recorder) Navigate(view string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
}

func validForm() validation.Form {
	return validation.Form{
		Network:  "mtn",
		Bundle:   "2GB",
		Phone:    "020 123 4567",
		Email:    "ama@example.com",
		FullName: "Ama Owusu",
	}
}

type harness struct {
	ctrl      *Controller
	gateway   *fakeGateway
	payment   *fakePayment
	submitter *MockSubmitter
	timer     *manualTimer
	session   *MemorySession
	nav       *recorder
}

func newHarness(t *testing.T, publicKey string) *harness {
	t.Helper()
	h := &harness{
		payment:   newFakePayment(),
		submitter: new(MockSubmitter),
		timer:     newManualTimer(),
		session:   NewMemorySession(),
		nav:       &recorder{},
	}
	h.gateway = &fakeGateway{payment: h.payment}

	ctrl, err := New(Options{
		Catalog:       domain.DefaultCatalog(),
		Gateway:       h.gateway,
		Submitter:     h.submitter,
		Session:       h.session,
		Navigator:     h.nav,
		Logger:        observability.NopLogger(),
		PublicKey:     publicKey,
		FallbackAfter: time.Hour,
		AfterFunc:     h.timer.afterFunc,
		Sleep:         func(context.Context, time.Duration) error { return nil },
		Now:           func() time.Time { return time.Date(2025, 5, 1, 10, 15, 0, 0, time.UTC) },
		NewReference:  func() string { return "DF-REF1" },
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func (h *harness) run(ctx context.Context) (<-chan Outcome, <-chan error) {
	outc := make(chan Outcome, 1)
	errc := make(chan error, 1)
	go func() {
		out, err := h.ctrl.Run(ctx, validForm())
		outc <- out
		errc <- err
	}()
	return outc, errc
}

func TestRun_GatewaySuccessPersists(t *testing.T) {
	h := newHarness(t, "pk_test_1")
	h.submitter.On("Submit", mock.Anything, mock.Anything).Return("order-123", nil)

	outc, errc := h.run(context.Background())
	<-h.timer.armed
	h.payment.results <- PaymentResult{Kind: ResultSuccess, Reference: "PSK-777"}

	out := <-outc
	require.NoError(t, <-errc)
	assert.Equal(t, StateComplete, out.State)
	assert.Equal(t, StateComplete, h.ctrl.State())
	assert.Equal(t, "order-123", out.OrderID)
	assert.Empty(t, out.Warnings)

	assert.Equal(t, "PSK-777", out.Order.TransactionID)
	assert.Equal(t, "PSK-777", out.Order.GatewayReference)
	assert.Equal(t, "completed", out.Order.Status)
	assert.Equal(t, "0201234567", out.Order.Phone)
	assert.Equal(t, "11", out.Order.Amount.String())

	require.Len(t, h.gateway.reqs, 1)
	req := h.gateway.reqs[0]
	assert.Equal(t, int64(1100), req.AmountMinor)
	assert.Equal(t, "GHS", req.Currency)
	assert.Equal(t, "pk_test_1", req.Key)
	assert.Equal(t, "DF-REF1", req.Reference)
	assert.Equal(t, map[string]string{
		"customer_name": "Ama Owusu", "phone": "0201234567", "network": "MTN", "bundle": "2GB",
	}, req.Metadata)
	assert.True(t, h.timer.Stopped())
	assert.True(t, h.payment.opened.Load())

	// the timer firing late changes nothing
	h.timer.Fire()
	assert.Equal(t, StateComplete, h.ctrl.State())
	h.submitter.AssertNumberOfCalls(t, "Submit", 1)

	conf, ok := h.session.Get(ConfirmationKey)
	require.True(t, ok)
	assert.Equal(t, "order-123", conf.OrderID)
	assert.Equal(t, []string{ConfirmationView}, h.nav.views)
}

func TestRun_FallbackFirstSkipsPersistence(t *testing.T) {
	h := newHarness(t, "pk_test_1")

	outc, errc := h.run(context.Background())
	h.timer.Fire()

	out := <-outc
	require.NoError(t, <-errc)
	assert.Equal(t, StateComplete, out.State)
	assert.Equal(t, "pending_verification", out.Order.Status)
	assert.Contains(t, out.Order.TransactionID, "FALLBACK-")
	assert.Empty(t, out.Order.GatewayReference)
	h.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	assert.Positive(t, h.payment.cancelled.Load())

	// a gateway success arriving after the fallback has no effect
	h.payment.results <- PaymentResult{Kind: ResultSuccess, Reference: "PSK-LATE"}
	assert.Equal(t, StateComplete, h.ctrl.State())
	h.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)

	conf, ok := h.session.Get(ConfirmationKey)
	require.True(t, ok)
	assert.Equal(t, "pending_verification", conf.Order.Status)
}

func TestRun_ClosedPopupCancels(t *testing.T) {
	h := newHarness(t, "pk_test_1")

	outc, errc := h.run(context.Background())
	<-h.timer.armed
	h.payment.results <- PaymentResult{Kind: ResultClosed}

	out := <-outc
	require.NoError(t, <-errc)
	assert.Equal(t, StateCancelled, out.State)
	assert.True(t, h.timer.Stopped())
	h.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	_, ok := h.session.Get(ConfirmationKey)
	assert.False(t, ok)
	assert.Empty(t, h.nav.views)

	h.timer.Fire()
	assert.Equal(t, StateCancelled, h.ctrl.State())
}

func TestRun_SubmitFailureIsWarningOnly(t *testing.T) {
	h := newHarness(t, "pk_test_1")
	h.submitter.On("Submit", mock.Anything, mock.Anything).Return("", domain.ErrStorageUnavailable)

	outc, errc := h.run(context.Background())
	<-h.timer.armed
	h.payment.results <- PaymentResult{Kind: ResultSuccess, Reference: "PSK-1"}

	out := <-outc
	require.NoError(t, <-errc)
	assert.Equal(t, StateComplete, out.State)
	assert.Equal(t, []string{WarningNotSaved}, out.Warnings)
	assert.Equal(t, []string{ConfirmationView}, h.nav.views)
}

func TestRun_MissingKeyStopsBeforeGateway(t *testing.T) {
	h := newHarness(t, "")

	out, err := h.ctrl.Run(context.Background(), validForm())
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
	assert.Equal(t, StateIdle, out.State)
	assert.Empty(t, h.gateway.reqs)
}

func TestRun_InvalidFormStaysIdle(t *testing.T) {
	h := newHarness(t, "pk_test_1")
	form := validForm()
	form.Phone = "020123456"

	_, err := h.ctrl.Run(context.Background(), form)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	var formErr *validation.FormError
	require.True(t, errors.As(err, &formErr))
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Empty(t, h.gateway.reqs)
}

func TestRun_ContextCancelled(t *testing.T) {
	h := newHarness(t, "pk_test_1")
	ctx, cancel := context.WithCancel(context.Background())

	outc, errc := h.run(ctx)
	<-h.timer.armed
	cancel()

	out := <-outc
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, StateCancelled, out.State)
	assert.Positive(t, h.payment.cancelled.Load())
}

func TestRun_RejectsConcurrentCheckout(t *testing.T) {
	h := newHarness(t, "pk_test_1")

	outc, errc := h.run(context.Background())
	<-h.timer.armed

	_, err := h.ctrl.Run(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	h.payment.results <- PaymentResult{Kind: ResultClosed}
	<-outc
	require.NoError(t, <-errc)
}

func TestRun_RealTimerFallback(t *testing.T) {
	payment := newFakePayment()
	submitter := new(MockSubmitter)
	ctrl, err := New(Options{
		Catalog:       domain.DefaultCatalog(),
		Gateway:       &fakeGateway{payment: payment},
		Submitter:     submitter,
		Logger:        observability.NopLogger(),
		PublicKey:     "pk",
		FallbackAfter: 20 * time.Millisecond,
		RedirectDelay: time.Millisecond,
	})
	require.NoError(t, err)

	out, err := ctrl.Run(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, "pending_verification", out.Order.Status)
	submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestRun_ReusedControllerIgnoresEarlierTimer(t *testing.T) {
	timers := newTimerQueue()
	first, second := newFakePayment(), newFakePayment()
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, mock.Anything).Return("order-2", nil)

	ctrl, err := New(Options{
		Catalog:       domain.DefaultCatalog(),
		Gateway:       &fakeGateway{next: []*fakePayment{first, second}},
		Submitter:     submitter,
		Logger:        observability.NopLogger(),
		PublicKey:     "pk_test_1",
		FallbackAfter: time.Hour,
		AfterFunc:     timers.afterFunc,
		Sleep:         func(context.Context, time.Duration) error { return nil },
	})
	require.NoError(t, err)

	start := func() (<-chan Outcome, <-chan error) {
		outc := make(chan Outcome, 1)
		errc := make(chan error, 1)
		go func() {
			out, err := ctrl.Run(context.Background(), validForm())
			outc <- out
			errc <- err
		}()
		return outc, errc
	}

	// Arrange: the first checkout is closed just as its timer expires.
	outc, errc := start()
	firstTimer := <-timers.armed
	first.results <- PaymentResult{Kind: ResultClosed}
	out := <-outc
	require.NoError(t, <-errc)
	require.Equal(t, StateCancelled, out.State)

	// Act: the expired callback of the first timer lands during the second checkout.
	outc, errc = start()
	secondTimer := <-timers.armed
	firstTimer.Fire()
	second.results <- PaymentResult{Kind: ResultSuccess, Reference: "PSK-2"}

	// Assert
	select {
	case out = <-outc:
	case <-time.After(2 * time.Second):
		t.Fatalf("second checkout stuck in %s", ctrl.State())
	}
	require.NoError(t, <-errc)
	assert.Equal(t, StateComplete, out.State)
	assert.Equal(t, "order-2", out.OrderID)
	assert.Equal(t, "completed", out.Order.Status)
	assert.True(t, secondTimer.Stopped())

	secondTimer.Fire()
	assert.Equal(t, StateComplete, ctrl.State())
	submitter.AssertNumberOfCalls(t, "Submit", 1)
}
