package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrSameAccountTransfer    = errors.New("source and destination accounts must differ")
	ErrTooManyConflicts       = errors.New("too many concurrent modifications, giving up")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyKeyReused   = errors.New("idempotency key was already used for a different request")
	ErrInvalidIdempotencyKey  = errors.New("invalid idempotency key")
	ErrStorageUnavailable     = errors.New("ledger storage unavailable")
)

// AuditRepository stores the append-only audit mirror of committed transactions
type AuditRepository interface {
	Record(ctx context.Context, tx *Transaction) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// ErrDuplicateIdempotencyKey indicates the (account, key) pair was committed concurrently.
// The engine retries, and the retry resolves into an idempotent replay.
type ErrDuplicateIdempotencyKey struct {
	AccountID      uuid.UUID
	IdempotencyKey string
}

func (e ErrDuplicateIdempotencyKey) Error() string {
	return "duplicate idempotency key " + e.IdempotencyKey + " on account " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrDuplicateIdempotencyKey
func (e ErrDuplicateIdempotencyKey) Is(target error) bool {
	t, ok := target.(ErrDuplicateIdempotencyKey)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID && (t.IdempotencyKey == "" || e.IdempotencyKey == t.IdempotencyKey)
}

// ErrDuplicateEntry indicates the audit mirror already holds the transaction
type ErrDuplicateEntry struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	// If the target TransactionID is empty, consider it a match for any ErrDuplicateEntry
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
