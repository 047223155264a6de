package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/google/uuid"
)

// ResultApplier records the provider's verdict on the user and the document it
// concerns, then drops the cached status so the gate sees the change immediately.
type ResultApplier struct {
	users  user.Repository
	docs   kyc.Repository
	cache  kyc.StatusCache
	logger *slog.Logger
	now    func() time.Time
}

func NewResultApplier(logger *slog.Logger, users user.Repository, docs kyc.Repository, cache kyc.StatusCache) *ResultApplier {
	return &ResultApplier{
		users:  users,
		docs:   docs,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Apply stores the verdict. Only "verified" verifies; every other decided status
// fails the user. A nil DocumentID applies to the user's latest document, if any.
func (a *ResultApplier) Apply(ctx context.Context, result shared.VerificationResult) (*user.User, error) {
	logger := a.logger.With("user_id", result.UserID, "document_id", result.DocumentID)

	status := shared.KYCStatusFailed
	verifiedAt := result.VerifiedAt
	if result.Status == shared.KYCStatusVerified {
		status = shared.KYCStatusVerified
		if verifiedAt == nil {
			now := a.now()
			verifiedAt = &now
		}
	} else {
		verifiedAt = nil
	}

	u, err := a.users.GetByID(ctx, result.UserID)
	if err != nil {
		return nil, err
	}

	docID := result.DocumentID
	if docID == uuid.Nil {
		latest, err := a.docs.GetLatestByUserID(ctx, result.UserID)
		switch {
		case err == nil:
			docID = latest.ID
		case errors.Is(err, kyc.ErrDocumentNotFound{}):
		default:
			return nil, err
		}
	}

	if docID != uuid.Nil {
		if err := a.docs.UpdateStatus(ctx, docID, status, verifiedAt); err != nil {
			return nil, fmt.Errorf("failed to update kyc document: %w", err)
		}
	}

	at := a.now()
	if verifiedAt != nil {
		at = *verifiedAt
	}
	if err := u.ApplyKYCResult(status, at); err != nil {
		return nil, err
	}
	if err := a.users.UpdateKYCStatus(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user kyc status: %w", err)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, u.ID, u.KYCStatus); err != nil {
			logger.Warn("Failed to cache new kyc status, invalidating", "error", err)
			if err := a.cache.Invalidate(ctx, u.ID); err != nil {
				logger.Warn("Failed to invalidate cached kyc status", "error", err)
			}
		}
	}

	logger.Info("KYC result applied", "kyc_status", status, "provider_status", result.Status)
	return u, nil
}

// ValidSignature compares the callback signature header with the shared secret in
// constant time.
func ValidSignature(secret, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(signature)) == 1
}
