package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/outbox"
	"github.com/bankfin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// LedgerStore is the PostgreSQL account store and transaction log. Every commit
// writes the balance updates, the transactions and their outbox rows in one SQL
// transaction.
type LedgerStore struct {
	db           persistence.TxQuerier
	accounts     *AccountRepository
	transactions *TransactionRepository
	outbox       *OutboxRepository
	logger       *slog.Logger

	oneAccountPerOwner bool
}

func NewLedgerStore(logger *slog.Logger, db persistence.TxQuerier, oneAccountPerOwner bool) *LedgerStore {
	return &LedgerStore{
		db:                 db,
		accounts:           NewAccountRepository(logger, db),
		transactions:       NewTransactionRepository(logger, db),
		outbox:             NewOutboxRepository(logger, db),
		logger:             logger,
		oneAccountPerOwner: oneAccountPerOwner,
	}
}

func (s *LedgerStore) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	return acc, storageErr(err)
}

func (s *LedgerStore) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	accounts, err := s.accounts.ListByOwner(ctx, ownerID)
	return accounts, storageErr(err)
}

// CreateAccount inserts the account and its opening deposit together
func (s *LedgerStore) CreateAccount(ctx context.Context, acc *account.Account, opening *ledger.Transaction) error {
	err := persistence.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)

		if s.oneAccountPerOwner {
			if err := accounts.LockOwner(ctx, acc.OwnerID); err != nil {
				return err
			}
			n, err := accounts.CountByOwner(ctx, acc.OwnerID)
			if err != nil {
				return err
			}
			if n > 0 {
				return account.ErrDuplicateAccount{OwnerID: acc.OwnerID}
			}
		}

		if err := accounts.Create(ctx, acc); err != nil {
			return err
		}
		if opening == nil {
			return nil
		}
		return s.appendTx(ctx, tx, opening)
	})
	return storageErr(err)
}

// compareAndSwap replaces a single balance without appending to the log, so history
// would no longer reconstruct the balance. Postings go through Commit.
func (s *LedgerStore) compareAndSwap(ctx context.Context, id uuid.UUID, expectedVersion, newBalance int64) (*account.Account, error) {
	if newBalance < 0 {
		return nil, ledger.ErrInsufficientFunds
	}
	acc, err := s.accounts.compareAndSwap(ctx, id, expectedVersion, newBalance)
	return acc, storageErr(err)
}

// Commit applies the postings atomically. Rows are locked in ascending id order, which
// matches ledger.SortPostings, so concurrent commits over the same accounts queue
// rather than deadlock.
func (s *LedgerStore) Commit(ctx context.Context, postings []ledger.Posting) error {
	ordered, err := ledger.SortPostings(postings)
	if err != nil {
		return err
	}

	err = persistence.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)

		locked, err := accounts.LockForUpdate(ctx, ledger.AccountIDs(ordered))
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*account.Account, len(locked))
		for _, acc := range locked {
			byID[acc.ID] = acc
		}

		for _, p := range ordered {
			acc, ok := byID[p.AccountID]
			if !ok {
				return account.ErrAccountNotFound{AccountID: p.AccountID}
			}
			if err := p.Check(acc); err != nil {
				return err
			}
		}

		for _, p := range ordered {
			acc := byID[p.AccountID]
			createdAt := p.Transaction.CreatedAt
			if createdAt.Before(acc.UpdatedAt) {
				createdAt = acc.UpdatedAt
			}

			version, err := accounts.UpdateBalance(ctx, p.AccountID, p.ExpectedVersion, p.NewBalance, createdAt)
			if err != nil {
				return err
			}

			p.Transaction.AccountVersion = version
			p.Transaction.BalanceAfter = p.NewBalance
			p.Transaction.CreatedAt = createdAt
			if err := s.appendTx(ctx, tx, p.Transaction); err != nil {
				return err
			}
		}
		return nil
	})
	return storageErr(err)
}

func (s *LedgerStore) CloseAccount(ctx context.Context, id uuid.UUID, expectedVersion int64) (*account.Account, error) {
	acc, err := s.accounts.Close(ctx, id, expectedVersion)
	return acc, storageErr(err)
}

func (s *LedgerStore) FindByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*ledger.Transaction, error) {
	tx, err := s.transactions.GetByIdempotencyKey(ctx, accountID, key)
	return tx, storageErr(err)
}

func (s *LedgerStore) FindByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]*ledger.Transaction, error) {
	txs, err := s.transactions.ListByCorrelationID(ctx, correlationID)
	return txs, storageErr(err)
}

func (s *LedgerStore) ListTransactions(ctx context.Context, accountID uuid.UUID, afterVersion int64, limit int) ([]*ledger.Transaction, error) {
	txs, err := s.transactions.ListByAccount(ctx, accountID, afterVersion, limit)
	return txs, storageErr(err)
}

// CountSince counts transactions committed at or after since
func (s *LedgerStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	n, err := s.transactions.CountSince(ctx, since)
	return n, storageErr(err)
}

// appendTx writes the transaction and the outbox row that mirrors it to the audit store
func (s *LedgerStore) appendTx(ctx context.Context, tx pgx.Tx, t *ledger.Transaction) error {
	if err := s.transactions.WithTx(tx).Create(ctx, t); err != nil {
		return err
	}
	msg, err := outbox.NewMessage(t)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return s.outbox.WithTx(tx).Create(ctx, msg)
}

// storageErr passes domain errors through and marks everything else as a storage
// failure. Serialization failures and deadlocks surface as version conflicts so the
// engine retries them.
func storageErr(err error) error {
	if err == nil || isDomainErr(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected) {
		return fmt.Errorf("%w: %w", account.ErrVersionConflict{}, err)
	}
	return fmt.Errorf("%w: %w", ledger.ErrStorageUnavailable, err)
}

func isDomainErr(err error) bool {
	for _, target := range []error{
		account.ErrVersionConflict{},
		account.ErrAccountNotFound{},
		account.ErrAccountClosed{},
		account.ErrDuplicateAccount{},
		account.ErrAccountNotEmpty,
		ledger.ErrInsufficientFunds,
		ledger.ErrSameAccountTransfer,
		ledger.ErrDuplicateIdempotencyKey{},
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
