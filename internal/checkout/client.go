package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/observability"
)

// APIClient talks to the storefront API the way the browser does.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: observability.NewTracingTransport(http.DefaultTransport),
		},
	}
}

type orderPayload struct {
	TransactionID     string          `json:"transaction_id"`
	CustomerName      string          `json:"customer_name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	Network           string          `json:"network"`
	Bundle            string          `json:"bundle"`
	Amount            decimal.Decimal `json:"amount"`
	PaystackReference string          `json:"paystack_reference,omitempty"`
	DateTime          string          `json:"date_time"`
	Status            string          `json:"status,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Submit posts the order to /api/orders and returns the server's order id.
func (c *APIClient) Submit(ctx context.Context, o domain.NewOrder) (string, error) {
	payload := orderPayload{
		TransactionID:     o.TransactionID,
		CustomerName:      o.CustomerName,
		Email:             o.Email,
		Phone:             o.Phone,
		Network:           o.Network,
		Bundle:            o.Bundle,
		Amount:            o.Amount,
		PaystackReference: o.GatewayReference,
		DateTime:          o.DateTime,
		Status:            o.Status,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		var created struct {
			OrderID string `json:"order_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		return created.OrderID, nil
	}

	var apiErr apiError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	switch {
	case apiErr.Code == domain.CodeDuplicateTransaction:
		return "", domain.ErrDuplicateTransaction
	case resp.StatusCode == http.StatusBadRequest:
		return "", fmt.Errorf("%w: %s", domain.ErrValidationFailed, apiErr.Error)
	case resp.StatusCode == http.StatusServiceUnavailable, apiErr.Code == domain.CodeStorageUnavailable:
		return "", domain.ErrStorageUnavailable
	}
	return "", fmt.Errorf("create order: unexpected status %d: %s", resp.StatusCode, apiErr.Error)
}

// PublicConfig is the /api/config payload.
type PublicConfig struct {
	PaystackKey string `json:"paystackKey"`
	Mode        string `json:"mode"`
}

func (c *APIClient) PublicConfig(ctx context.Context) (PublicConfig, error) {
	var cfg PublicConfig
	err := c.getJSON(ctx, "/api/config", &cfg)
	return cfg, err
}

// VerifyResult is the /api/verify-payment payload.
type VerifyResult struct {
	Status    string           `json:"status"`
	Verified  bool             `json:"verified"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Reference string           `json:"reference,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func (c *APIClient) VerifyPayment(ctx context.Context, ref string) (VerifyResult, error) {
	var res VerifyResult
	err := c.getJSON(ctx, "/api/verify-payment?ref="+url.QueryEscape(ref), &res)
	return res, err
}

func (c *APIClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s (status %d): %w", path, resp.StatusCode, err)
	}
	return nil
}
