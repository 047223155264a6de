// Package verification connects the ledger to the external identity provider: the status gate
// consulted before an account is opened, the pipeline that requests verification of
// uploaded documents, and the code that applies the provider's verdict.
package verification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/google/uuid"
)

// Gate reads a user's KYC status through the cache, falling back to the user
// repository. A cache failure degrades to a database read and is never surfaced.
type Gate struct {
	users  user.Repository
	cache  kyc.StatusCache
	logger *slog.Logger
}

func NewGate(logger *slog.Logger, users user.Repository, cache kyc.StatusCache) *Gate {
	return &Gate{
		users:  users,
		cache:  cache,
		logger: logger,
	}
}

func (g *Gate) KYCStatus(ctx context.Context, userID uuid.UUID) (shared.KYCStatus, error) {
	if g.cache != nil {
		status, found, err := g.cache.Get(ctx, userID)
		if err != nil {
			g.logger.Warn("KYC status cache unavailable, reading from database", "user_id", userID, "error", err)
		} else if found {
			return status, nil
		}
	}

	u, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load kyc status: %w", err)
	}

	// A status change committed after our read has already written the cache; keep it.
	if g.cache != nil {
		if _, err := g.cache.SetIfAbsent(ctx, userID, u.KYCStatus); err != nil {
			g.logger.Warn("Failed to cache kyc status", "user_id", userID, "error", err)
		}
	}
	return u.KYCStatus, nil
}
