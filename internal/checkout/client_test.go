package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundle-storefront/internal/core/domain"
)

func TestAPIClient_Submit(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		body   string
		id     string
		target error
	}{
		{"created", http.StatusCreated, `{"message":"Order created successfully","order_id":"abc"}`, "abc", nil},
		{"duplicate", http.StatusBadRequest, `{"error":"order with this transaction ID already exists","code":"duplicate_transaction"}`, "", domain.ErrDuplicateTransaction},
		{"duplicate with reworded message", http.StatusBadRequest, `{"error":"this payment was already recorded","code":"duplicate_transaction"}`, "", domain.ErrDuplicateTransaction},
		{"duplicate message without code", http.StatusBadRequest, `{"error":"order with this transaction ID already exists"}`, "", domain.ErrValidationFailed},
		{"invalid", http.StatusBadRequest, `{"error":"Missing required fields","code":"validation_failed"}`, "", domain.ErrValidationFailed},
		{"not ready", http.StatusServiceUnavailable, `{"error":"Database not ready","code":"storage_unavailable"}`, "", domain.ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got orderPayload
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/orders", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			id, err := NewAPIClient(srv.URL, time.Second).Submit(context.Background(), domain.NewOrder{
				TransactionID:    "TXN-1",
				CustomerName:     "Ama Owusu",
				Email:            "ama@example.com",
				Phone:            "0201234567",
				Network:          "mtn",
				Bundle:           "2GB",
				Amount:           decimal.RequireFromString("11.00"),
				GatewayReference: "TXN-1",
				Status:           "completed",
			})
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.id, id)
			assert.Equal(t, "TXN-1", got.TransactionID)
			assert.Equal(t, "TXN-1", got.PaystackReference)
			assert.True(t, got.Amount.Equal(decimal.NewFromInt(11)))
		})
	}
}

func TestAPIClient_PublicConfigAndVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/config":
			_, _ = w.Write([]byte(`{"paystackKey":"pk_test_9","mode":"test"}`))
		case "/api/verify-payment":
			assert.Equal(t, "REF-X", r.URL.Query().Get("ref"))
			_, _ = w.Write([]byte(`{"status":"success","verified":true,"amount":"11","reference":"REF-X"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second)
	cfg, err := c.PublicConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PublicConfig{PaystackKey: "pk_test_9", Mode: "test"}, cfg)

	res, err := c.VerifyPayment(context.Background(), "REF-X")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "success", res.Status)
	require.NotNil(t, res.Amount)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(11)))
}
