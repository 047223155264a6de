package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Repository defines read access to accounts outside the posting path.
// Balance and version are only ever changed through the ledger store's commit.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Account, error)
	Count(ctx context.Context) (int64, error)
}

// ErrVersionConflict indicates the compare-and-swap lost against another mutation
type ErrVersionConflict struct {
	AccountID       uuid.UUID
	ExpectedVersion int64
}

func (e ErrVersionConflict) Error() string {
	return fmt.Sprintf("version conflict on account %s (expected version %d)", e.AccountID, e.ExpectedVersion)
}

func (e ErrVersionConflict) Is(target error) bool {
	t, ok := target.(ErrVersionConflict)
	return ok && (t.AccountID == uuid.Nil || t.AccountID == e.AccountID)
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	return ok && (t.AccountID == uuid.Nil || t.AccountID == e.AccountID)
}

// ErrAccountClosed indicates a posting against a closed account
type ErrAccountClosed struct {
	AccountID uuid.UUID
}

func (e ErrAccountClosed) Error() string {
	return "account is closed: " + e.AccountID.String()
}

func (e ErrAccountClosed) Is(target error) bool {
	t, ok := target.(ErrAccountClosed)
	return ok && (t.AccountID == uuid.Nil || t.AccountID == e.AccountID)
}

// ErrDuplicateAccount indicates the one-account-per-owner policy rejected a create
type ErrDuplicateAccount struct {
	OwnerID uuid.UUID
}

func (e ErrDuplicateAccount) Error() string {
	return "owner already has an account: " + e.OwnerID.String()
}

func (e ErrDuplicateAccount) Is(target error) bool {
	t, ok := target.(ErrDuplicateAccount)
	return ok && (t.OwnerID == uuid.Nil || t.OwnerID == e.OwnerID)
}
