package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	brokermock "bundle-storefront/internal/adapters/messaging/mock"
	"bundle-storefront/internal/adapters/storage/memory"
	"bundle-storefront/internal/app"
	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/observability"
)

// MockOrderService is a mock for ports.OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error) {
	args := m.Called(ctx, in)
	if o, ok := args.Get(0).(*domain.Order); ok {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if o, ok := args.Get(0).([]domain.Order); ok {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderService) ExportOrders(ctx context.Context, w io.Writer) (int, error) {
	args := m.Called(ctx, w)
	return args.Int(0), args.Error(1)
}

func (m *MockOrderService) Ready(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

const txn1Body = `{
	"transaction_id": "TXN-1",
	"customer_name": "Ama Owusu",
	"email": "ama@example.com",
	"phone": "0201234567",
	"network": "mtn",
	"bundle": "2GB",
	"amount": 11.00,
	"date_time": "5/1/2025, 10:15:00 AM",
	"status": "completed"
}`

func newStorefront(t *testing.T) (http.Handler, *memory.Repository) {
	t.Helper()
	logger := observability.NopLogger()
	repo := memory.NewRepository()
	svc := app.NewOrderService(repo, brokermock.NewBroker(logger), domain.DefaultCatalog(), logger)

	router := NewRouter(RouterConfig{
		ServiceName: "storefront-test",
		Orders:      NewOrderHandler(svc, logger),
		Verification: NewVerificationHandler(
			app.NewVerificationService(stubVerifier{}, nil, logger), logger),
		System: NewSystemHandler(svc.Ready, AppInfo{Name: "DataFlow"}, PublicConfig{Mode: "test"},
			domain.DefaultCatalog(), logger),
		Logger: logger,
	})
	return router, repo
}

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, ref string) (domain.Verification, error) {
	return domain.Verification{Status: domain.VerificationPending, Reference: ref}, nil
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCreateOrder_ThenListNewestFirst(t *testing.T) {
	h, repo := newStorefront(t)

	older := strings.Replace(txn1Body, "TXN-1", "TXN-0", 1)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/orders", older).Code)
	time.Sleep(time.Millisecond)

	rr := do(t, h, http.MethodPost, "/api/orders", txn1Body)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created createOrderResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Order created successfully", created.Message)
	assert.NotEmpty(t, created.OrderID)

	rr = do(t, h, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list listOrdersResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Orders, 2)
	assert.Equal(t, "TXN-1", list.Orders[0].TransactionID)
	assert.Equal(t, created.OrderID, list.Orders[0].OrderID)
	assert.Equal(t, "completed", list.Orders[0].Status)
	assert.Nil(t, list.Orders[0].PaystackReference)
	assert.Equal(t, 2, repo.Len())
}

func TestCreateOrder_DuplicateReturns400(t *testing.T) {
	h, repo := newStorefront(t)

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/orders", txn1Body).Code)
	rr := do(t, h, http.MethodPost, "/api/orders", txn1Body)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"order with this transaction ID already exists","code":"duplicate_transaction"}`, rr.Body.String())
	assert.Equal(t, 1, repo.Len())
}

func TestCreateOrder_BadInput(t *testing.T) {
	h, repo := newStorefront(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"transaction_id":`},
		{"missing name", strings.Replace(txn1Body, `"Ama Owusu"`, `""`, 1)},
		{"missing amount", strings.Replace(txn1Body, `"amount": 11.00,`, ``, 1)},
		{"short phone", strings.Replace(txn1Body, "0201234567", "020123456", 1)},
		{"bad email", strings.Replace(txn1Body, "ama@example.com", "ama@example", 1)},
		{"tampered price", strings.Replace(txn1Body, "11.00", "1.00", 1)},
		{"unknown status", strings.Replace(txn1Body, `"completed"`, `"refunded"`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, domain.CodeValidationFailed, body.Code)
		})
	}
	assert.Equal(t, 0, repo.Len())
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"storage not ready", domain.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			svc.On("CreateOrder", mock.Anything, mock.AnythingOfType("domain.NewOrder")).Return(nil, tt.err)

			h := NewOrderHandler(svc, observability.NopLogger())
			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(txn1Body))
			rr := httptest.NewRecorder()
			h.HandleCreateOrder(rr, req)

			assert.Equal(t, tt.code, rr.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestCreateOrder_PassesFieldsThrough(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in domain.NewOrder) bool {
		return in.TransactionID == "TXN-1" && in.GatewayReference == "PSK-9" &&
			in.Amount.Equal(decimal.NewFromInt(11)) && in.Status == "completed"
	})).Return(&domain.Order{ID: "abc"}, nil)

	body := strings.Replace(txn1Body, `"status"`, `"paystack_reference": "PSK-9", "status"`, 1)
	h := NewOrderHandler(svc, observability.NopLogger())
	rr := httptest.NewRecorder()
	h.HandleCreateOrder(rr, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rr.Code)
	svc.AssertExpectations(t)
}

func TestExportOrders_CSVAttachment(t *testing.T) {
	h, _ := newStorefront(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/orders", txn1Body).Code)

	rr := do(t, h, http.MethodGet, "/api/orders/export/excel", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="orders_\d{4}-\d{2}-\d{2}\.csv"$`, rr.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, app.ExportHeader, records[0])
	assert.Equal(t, "TXN-1", records[1][0])
	assert.Equal(t, "11.00", records[1][6])
}

func TestListOrders_StorageNotReady(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ListOrders", mock.Anything).Return(nil, domain.ErrStorageUnavailable)

	h := NewOrderHandler(svc, observability.NopLogger())
	rr := httptest.NewRecorder()
	h.HandleListOrders(rr, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"error":"Database not ready","code":"storage_unavailable"}`, rr.Body.String())
}
