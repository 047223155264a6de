package ledger_engine

import (
	"context"

	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Store is the account store and transaction log the engine posts against.
//
// Commit applies every posting as one atomic unit: for each posting, in ascending
// account id order, the account's version must still equal ExpectedVersion, the
// account must be active and NewBalance must not be negative. On success the store
// bumps each version, stamps AccountVersion and CreatedAt on the transactions and
// appends them to the log. On failure nothing is written.
type Store interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error)

	// CreateAccount persists a new account and, when opening is non-nil, the deposit
	// that explains its opening balance. Fails with account.ErrDuplicateAccount only
	// when the store enforces one account per owner.
	CreateAccount(ctx context.Context, acc *account.Account, opening *ledger.Transaction) error

	Commit(ctx context.Context, postings []ledger.Posting) error
	CloseAccount(ctx context.Context, id uuid.UUID, expectedVersion int64) (*account.Account, error)

	// FindByIdempotencyKey returns nil, nil when the key is unused on the account.
	FindByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*ledger.Transaction, error)
	FindByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]*ledger.Transaction, error)

	// ListTransactions returns up to limit transactions with AccountVersion greater than
	// afterVersion, ordered by created_at then account version.
	ListTransactions(ctx context.Context, accountID uuid.UUID, afterVersion int64, limit int) ([]*ledger.Transaction, error)
}

// IdentityGate reports the externally verified KYC status of a user
type IdentityGate interface {
	KYCStatus(ctx context.Context, userID uuid.UUID) (shared.KYCStatus, error)
}
