package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/core/ports"
	"bundle-storefront/internal/observability"
)

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Reconciler promotes pending_verification orders to completed once the gateway confirms them.
// It only runs when an operator asks for it.
type Reconciler struct {
	repo     ports.OrderRepository
	verifier ports.VerificationService
	logger   *slog.Logger
}

func NewReconciler(repo ports.OrderRepository, verifier ports.VerificationService, logger *slog.Logger) *Reconciler {
	return &Reconciler{repo: repo, verifier: verifier, logger: logger}
}

func (r *Reconciler) Run(ctx context.Context) (report ReconcileReport, err error) {
	ctx, span := observability.StartSpan(ctx, "orders.reconcile")
	defer func() {
		span.SetAttributes(
			attribute.Int("reconcile.checked", report.Checked),
			attribute.Int("reconcile.completed", report.Completed),
		)
		observability.EndSpan(span, err)
	}()

	return r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	pending, err := r.repo.FindByStatus(ctx, domain.StatusPendingVerification)
	if err != nil {
		return report, fmt.Errorf("load pending orders: %w", err)
	}

	for _, o := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		ref := o.GatewayReference
		if ref == "" {
			ref = o.TransactionID
		}
		v, err := r.verifier.Verify(ctx, ref)
		if err != nil {
			report.Failed++
			r.logger.Warn("reconcile: verification failed", "transaction_id", o.TransactionID, "error", err)
			continue
		}
		if !v.Verified() {
			report.Pending++
			continue
		}
		if v.Amount != nil && !v.Amount.Equal(o.Amount) {
			report.Failed++
			r.logger.Warn("reconcile: verified amount differs from order",
				"transaction_id", o.TransactionID, "order_amount", o.Amount.StringFixed(2), "paid", v.Amount.StringFixed(2))
			continue
		}

		err = r.repo.UpdateStatus(ctx, o.TransactionID, domain.StatusPendingVerification, domain.StatusCompleted)
		switch {
		case err == nil:
			report.Completed++
			r.logger.Info("reconcile: order completed", "transaction_id", o.TransactionID)
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrOrderNotFound):
			// completed concurrently by another run
			report.Skipped++
		default:
			report.Failed++
			r.logger.Error("reconcile: status update failed", "transaction_id", o.TransactionID, "error", err)
		}
	}
	return report, nil
}
