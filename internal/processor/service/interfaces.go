package service

import (
	"context"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
)

// VerificationService defines the interface for processing verification requests.
type VerificationService interface {
	ProcessVerification(ctx context.Context, request *shared.VerificationRequest) error
}

// ResultApplier records a provider verdict on the user and document
type ResultApplier interface {
	Apply(ctx context.Context, result shared.VerificationResult) (*user.User, error)
}
