package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/core/ports"
	"bundle-storefront/internal/observability"
)

// OrderHandler serves order creation, listing and export.
type OrderHandler struct {
	service ports.OrderService
	logger  *slog.Logger
	now     func() time.Time
}

func NewOrderHandler(service ports.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

type createOrderRequest struct {
	TransactionID     string          `json:"transaction_id"`
	CustomerName      string          `json:"customer_name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	Network           string          `json:"network"`
	Bundle            string          `json:"bundle"`
	Amount            decimal.Decimal `json:"amount"`
	PaystackReference string          `json:"paystack_reference"`
	DateTime          string          `json:"date_time"`
	Status            string          `json:"status"`
}

type createOrderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

// OrderView is the JSON shape of a stored order.
type OrderView struct {
	OrderID           string          `json:"order_id"`
	TransactionID     string          `json:"transaction_id"`
	CustomerName      string          `json:"customer_name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	Network           string          `json:"network"`
	Bundle            string          `json:"bundle"`
	Amount            decimal.Decimal `json:"amount"`
	PaystackReference *string         `json:"paystack_reference"`
	DateTime          string          `json:"date_time"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func NewOrderView(o domain.Order) OrderView {
	v := OrderView{
		OrderID:       o.ID,
		TransactionID: o.TransactionID,
		CustomerName:  o.CustomerName,
		Email:         o.Email,
		Phone:         o.Phone,
		Network:       o.Network,
		Bundle:        o.Bundle,
		Amount:        o.Amount,
		DateTime:      o.DateTime,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.GatewayReference != "" {
		ref := o.GatewayReference
		v.PaystackReference = &ref
	}
	return v
}

type listOrdersResponse struct {
	Orders []OrderView `json:"orders"`
}

func (h *OrderHandler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONErrorCode(w, "invalid request body", domain.CodeValidationFailed, http.StatusBadRequest)
		return
	}
	if req.TransactionID == "" || req.CustomerName == "" || req.Email == "" ||
		req.Phone == "" || req.Network == "" || req.Bundle == "" || req.Amount.IsZero() {
		writeJSONErrorCode(w, "Missing required fields", domain.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), domain.NewOrder{
		TransactionID:    req.TransactionID,
		CustomerName:     req.CustomerName,
		Email:            req.Email,
		Phone:            req.Phone,
		Network:          req.Network,
		Bundle:           req.Bundle,
		Amount:           req.Amount,
		GatewayReference: req.PaystackReference,
		DateTime:         req.DateTime,
		Status:           req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateTransaction):
			logger.Info("duplicate order submission", "transaction_id", req.TransactionID)
			writeJSONErrorCode(w, domain.ErrDuplicateTransaction.Error(), domain.CodeDuplicateTransaction, http.StatusBadRequest)

		case errors.Is(err, domain.ErrValidationFailed):
			writeJSONErrorCode(w, err.Error(), domain.CodeValidationFailed, http.StatusBadRequest)

		case errors.Is(err, domain.ErrStorageUnavailable):
			logger.Warn("order rejected, storage not ready", "transaction_id", req.TransactionID)
			writeJSONErrorCode(w, "Database not ready", domain.CodeStorageUnavailable, http.StatusServiceUnavailable)

		default:
			logger.Error("unexpected error during order creation", "transaction_id", req.TransactionID, "error", err)
			writeJSONError(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	logger.Info("order created", "order_id", order.ID, "transaction_id", order.TransactionID, "status", order.Status)
	writeJSON(w, http.StatusCreated, createOrderResponse{
		Message: "Order created successfully",
		OrderID: order.ID,
	}, logger)
}

func (h *OrderHandler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)

	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.writeStorageError(w, logger, err)
		return
	}

	resp := listOrdersResponse{Orders: make([]OrderView, 0, len(orders))}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, NewOrderView(o))
	}
	writeJSON(w, http.StatusOK, resp, logger)
}

// HandleExportOrders streams the order history as a CSV attachment.
// The body is buffered so a storage failure can still produce a JSON error.
func (h *OrderHandler) HandleExportOrders(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)

	var buf bytes.Buffer
	n, err := h.service.ExportOrders(r.Context(), &buf)
	if err != nil {
		h.writeStorageError(w, logger, err)
		return
	}
	logger.Info("orders exported", "rows", n)

	filename := "orders_" + h.now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Error("failed to write csv export", "error", err)
	}
}

func (h *OrderHandler) writeStorageError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, domain.ErrStorageUnavailable) {
		writeJSONErrorCode(w, "Database not ready", domain.CodeStorageUnavailable, http.StatusServiceUnavailable)
		return
	}
	logger.Error("order storage failure", "error", err)
	writeJSONError(w, "Database error", http.StatusInternalServerError)
}
