package http

import (
	"context"
	"log/slog"
	"net/http"

	"bundle-storefront/internal/app"
	"bundle-storefront/internal/observability"
)

// Reconciler runs one reconciliation pass over pending orders.
type Reconciler interface {
	Run(ctx context.Context) (app.ReconcileReport, error)
}

type AdminHandler struct {
	reconciler Reconciler
	logger     *slog.Logger
}

func NewAdminHandler(reconciler Reconciler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{reconciler: reconciler, logger: logger}
}

func (h *AdminHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)

	subject, _ := SubjectFromContext(r.Context())
	report, err := h.reconciler.Run(r.Context())
	if err != nil {
		logger.Error("reconciliation failed", "requested_by", subject, "error", err)
		writeJSONError(w, "reconciliation failed", http.StatusInternalServerError)
		return
	}
	logger.Info("reconciliation finished", "requested_by", subject,
		"checked", report.Checked, "completed", report.Completed, "pending", report.Pending, "failed", report.Failed)
	writeJSON(w, http.StatusOK, report, logger)
}
