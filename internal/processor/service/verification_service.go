package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/bankfin-ledger/internal/verification"
)

// VerificationServiceImpl asks the provider for a verdict and applies it
type VerificationServiceImpl struct {
	provider verification.Provider
	applier  ResultApplier
	logger   *slog.Logger
}

func NewVerificationService(logger *slog.Logger, provider verification.Provider, applier ResultApplier) *VerificationServiceImpl {
	return &VerificationServiceImpl{
		provider: provider,
		applier:  applier,
		logger:   logger,
	}
}

// ProcessVerification returns an error only when the request should be retried.
// A pending verdict leaves the document for the stale sweep; a request for a user
// or document that no longer exists is dropped.
func (s *VerificationServiceImpl) ProcessVerification(ctx context.Context, request *shared.VerificationRequest) error {
	logger := s.logger.With("user_id", request.UserID, "document_id", request.DocumentID)
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	result, err := s.provider.Verify(ctx, request)
	if err != nil {
		if errors.Is(err, verification.ErrProviderUnavailable) {
			logger.Warn("KYC provider unavailable, leaving request for retry", "error", err)
		}
		return fmt.Errorf("verification of document %s failed: %w", request.DocumentID, err)
	}

	if result.Status == shared.KYCStatusPending {
		logger.Info("KYC provider has no verdict yet")
		return nil
	}

	if _, err := s.applier.Apply(ctx, result); err != nil {
		if errors.Is(err, user.ErrUserNotFound{}) || errors.Is(err, kyc.ErrDocumentNotFound{}) {
			logger.Warn("Dropping verdict for unknown user or document", "error", err)
			return nil
		}
		return fmt.Errorf("failed to apply verdict for document %s: %w", request.DocumentID, err)
	}

	logger.Info("KYC verdict applied", "kyc_status", result.Status)
	return nil
}
