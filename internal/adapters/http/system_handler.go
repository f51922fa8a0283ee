package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"bundle-storefront/internal/core/domain"
)

// AppInfo is served on /api/info.
type AppInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Database    string `json:"database"`
	Environment string `json:"environment"`
}

// PublicConfig is what the browser needs to open the payment popup.
// It must never carry a secret key.
type PublicConfig struct {
	PaystackKey string `json:"paystackKey"`
	Mode        string `json:"mode"`
}

type SystemHandler struct {
	ready   func(ctx context.Context) bool
	info    AppInfo
	public  PublicConfig
	catalog *domain.Catalog
	logger  *slog.Logger
	now     func() time.Time
}

func NewSystemHandler(ready func(ctx context.Context) bool, info AppInfo, public PublicConfig, catalog *domain.Catalog, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		ready:   ready,
		info:    info,
		public:  public,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HandleHealth always answers 200; the body says whether storage is up yet.
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "initializing"
	if h.ready(r.Context()) {
		status = "healthy"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	}, h.logger)
}

func (h *SystemHandler) HandleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.info, h.logger)
}

func (h *SystemHandler) HandleConfig(w http.ResponseWriter, _ *http.Request) {
	if h.public.PaystackKey == "" {
		h.logger.Warn("paystack public key is not configured", "mode", h.public.Mode)
	}
	writeJSON(w, http.StatusOK, h.public, h.logger)
}

type catalogNetwork struct {
	ID      domain.Network       `json:"id"`
	Name    string               `json:"name"`
	Bundles []domain.BundleOffer `json:"bundles"`
}

type catalogResponse struct {
	Networks []catalogNetwork `json:"networks"`
}

func (h *SystemHandler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	var resp catalogResponse
	for _, n := range h.catalog.Networks() {
		resp.Networks = append(resp.Networks, catalogNetwork{
			ID:      n,
			Name:    n.DisplayName(),
			Bundles: h.catalog.Offers(n),
		})
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}
