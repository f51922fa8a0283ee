package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/core/ports"
	"bundle-storefront/internal/observability"
)

// verificationService reconciles a reference against the gateway. It never writes orders.
type verificationService struct {
	verifier ports.PaymentVerifier
	cache    ports.VerificationCache
	logger   *slog.Logger
}

// NewVerificationService wires the gateway client. cache may be nil.
func NewVerificationService(verifier ports.PaymentVerifier, cache ports.VerificationCache, logger *slog.Logger) ports.VerificationService {
	return &verificationService{
		verifier: verifier,
		cache:    cache,
		logger:   logger,
	}
}

func (s *verificationService) Verify(ctx context.Context, reference string) (domain.Verification, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return domain.Verification{}, fmt.Errorf("%w: payment reference is required", domain.ErrValidationFailed)
	}

	if s.cache != nil {
		if v, ok, err := s.cache.Get(ctx, reference); err != nil {
			s.logger.Warn("verification cache read failed", "reference", reference, "error", err)
		} else if ok {
			observability.Verifications.WithLabelValues(string(v.Status), "cache").Inc()
			return v, nil
		}
	}

	v, err := s.verifier.Verify(ctx, reference)
	if err != nil {
		// The payment may have gone through without the gateway answering us in time.
		if errors.Is(err, domain.ErrGatewayTimeout) {
			s.logger.Warn("gateway verification timed out, reporting pending", "reference", reference, "error", err)
			observability.Verifications.WithLabelValues(string(domain.VerificationPending), "gateway").Inc()
			return domain.Verification{Status: domain.VerificationPending, Reference: reference}, nil
		}
		s.logger.Error("gateway verification failed", "reference", reference, "error", err)
		observability.Verifications.WithLabelValues(string(domain.VerificationError), "gateway").Inc()
		return domain.Verification{Status: domain.VerificationError, Reference: reference}, err
	}
	observability.Verifications.WithLabelValues(string(v.Status), "gateway").Inc()

	if v.Verified() && s.cache != nil {
		if err := s.cache.Put(ctx, v); err != nil {
			s.logger.Warn("verification cache write failed", "reference", reference, "error", err)
		}
	}
	return v, nil
}
