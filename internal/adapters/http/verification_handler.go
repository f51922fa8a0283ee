package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/core/ports"
	"bundle-storefront/internal/observability"
)

type VerificationHandler struct {
	service ports.VerificationService
	logger  *slog.Logger
}

func NewVerificationHandler(service ports.VerificationService, logger *slog.Logger) *VerificationHandler {
	return &VerificationHandler{service: service, logger: logger}
}

type verifyPaymentResponse struct {
	Status    string           `json:"status"`
	Verified  bool             `json:"verified"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Reference string           `json:"reference,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// HandleVerifyPayment reports the gateway's view of ?ref=. The secret key never appears in the response.
func (h *VerificationHandler) HandleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)

	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeJSONError(w, "Payment reference is required", http.StatusBadRequest)
		return
	}

	v, err := h.service.Verify(r.Context(), ref)
	if err != nil {
		if errors.Is(err, domain.ErrValidationFailed) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		msg := "Verification failed"
		if errors.Is(err, domain.ErrConfigurationMissing) {
			msg = domain.ErrConfigurationMissing.Error()
		}
		logger.Error("payment verification failed", "reference", ref, "error", err)
		writeJSON(w, http.StatusInternalServerError, verifyPaymentResponse{
			Status: string(domain.VerificationError),
			Error:  msg,
		}, logger)
		return
	}

	writeJSON(w, http.StatusOK, verifyPaymentResponse{
		Status:    string(v.Status),
		Verified:  v.Verified(),
		Amount:    v.Amount,
		Reference: v.Reference,
	}, logger)
}
