package kyc

import (
	"context"
	"time"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines KYC document persistence operations
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status shared.KYCStatus, verifiedAt *time.Time) error
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*Document, error)
	TouchRequested(ctx context.Context, id uuid.UUID, at time.Time) error
}

// StatusCache caches a user's KYC status in front of the user repository.
// Readers fill a miss with SetIfAbsent; only the code that changes the status
// overwrites with Set, so a fill racing a status change cannot win.
type StatusCache interface {
	Get(ctx context.Context, userID uuid.UUID) (shared.KYCStatus, bool, error)
	Set(ctx context.Context, userID uuid.UUID, status shared.KYCStatus) error
	SetIfAbsent(ctx context.Context, userID uuid.UUID, status shared.KYCStatus) (bool, error)
	Invalidate(ctx context.Context, userID uuid.UUID) error
}
