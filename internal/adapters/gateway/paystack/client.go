// Package paystack is the server-side client for the Paystack transaction API.
package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/observability"
)

const DefaultBaseURL = "https://api.paystack.co"

// Client verifies payment references. The secret key is only ever sent to the gateway.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient builds a client with a bounded timeout and a traced transport.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: observability.NewTracingTransport(http.DefaultTransport),
		},
	}
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		Status    string          `json:"status"`
		Reference string          `json:"reference"`
		Amount    decimal.Decimal `json:"amount"` // minor units (pesewas)
		Currency  string          `json:"currency"`
	} `json:"data"`
}

var hundred = decimal.NewFromInt(100)

// Verify asks Paystack for the state of reference.
// Anything short of a confirmed success is reported as pending; only missing
// credentials and transport failures are errors.
func (c *Client) Verify(ctx context.Context, reference string) (domain.Verification, error) {
	if c.secretKey == "" {
		return domain.Verification{}, domain.ErrConfigurationMissing
	}
	pending := domain.Verification{Status: domain.VerificationPending, Reference: reference}

	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return pending, fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
		}
		return domain.Verification{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		pending.GatewayStatus = resp.Status
		return pending, nil
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if isTimeout(err) {
			return pending, fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
		}
		pending.GatewayStatus = "unreadable response"
		return pending, nil
	}
	if !body.Status || body.Data == nil {
		pending.GatewayStatus = body.Message
		return pending, nil
	}
	if body.Data.Status != "success" {
		pending.GatewayStatus = body.Data.Status
		return pending, nil
	}

	ref := body.Data.Reference
	if ref == "" {
		ref = reference
	}
	amount := body.Data.Amount.Div(hundred)
	return domain.Verification{
		Status:        domain.VerificationSuccess,
		Reference:     ref,
		Amount:        &amount,
		GatewayStatus: body.Data.Status,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
