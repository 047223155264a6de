package service

import (
	"context"
	"log/slog"

	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/bankfin-ledger/internal/verification"
	"github.com/google/uuid"
)

// ResultApplier records a verification verdict
type ResultApplier interface {
	Apply(ctx context.Context, result shared.VerificationResult) (*user.User, error)
}

// KYCServiceImpl implements the KYCService interface
type KYCServiceImpl struct {
	applier        ResultApplier
	callbackSecret string
	logger         *slog.Logger
}

// NewKYCService creates a new KYC service
func NewKYCService(logger *slog.Logger, applier ResultApplier, callbackSecret string) KYCService {
	return &KYCServiceImpl{
		applier:        applier,
		callbackSecret: callbackSecret,
		logger:         logger,
	}
}

// HandleCallback applies a pushed result. A pending result is acknowledged and ignored.
func (s *KYCServiceImpl) HandleCallback(ctx context.Context, signature string, result shared.VerificationResult) error {
	if !verification.ValidSignature(s.callbackSecret, signature) {
		s.logger.Warn("Rejected KYC callback with bad signature", "user_id", result.UserID)
		return kyc.ErrInvalidSignature
	}
	if result.Status == shared.KYCStatusPending {
		return nil
	}

	_, err := s.applier.Apply(ctx, result)
	return err
}

// Decide records an admin's manual verdict against the user's latest document
func (s *KYCServiceImpl) Decide(ctx context.Context, userID uuid.UUID, approve bool) (*user.User, error) {
	status := shared.KYCStatusFailed
	if approve {
		status = shared.KYCStatusVerified
	}
	s.logger.Info("Manual KYC decision", "user_id", userID, "kyc_status", status)
	return s.applier.Apply(ctx, shared.VerificationResult{UserID: userID, Status: status})
}
