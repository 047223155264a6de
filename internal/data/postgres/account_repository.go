// Package postgres provides PostgreSQL implementations of the domain repositories.
// Balance mutations only happen inside LedgerStore transactions, which lock the
// touched account rows in ascending id order before writing.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, owner_id, balance, currency, status, version, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(logger *slog.Logger, db persistence.Querier) *AccountRepository {
	return &AccountRepository{
		querier: db,
		logger:  logger,
	}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.OwnerID,
		&acc.Balance,
		&acc.Currency,
		&acc.Status,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// Create stores a new account
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, owner_id, balance, currency, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.OwnerID,
		acc.Balance,
		acc.Currency,
		acc.Status,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "account_id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// ListByOwner returns the owner's accounts, oldest first
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// Count returns the total number of accounts
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return n, nil
}

// LockOwner serializes account creation per owner for the rest of the transaction
func (r *AccountRepository) LockOwner(ctx context.Context, ownerID uuid.UUID) error {
	if _, err := r.querier.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID.String()); err != nil {
		return fmt.Errorf("failed to lock owner %s: %w", ownerID, err)
	}
	return nil
}

// CountByOwner returns how many accounts the owner holds
func (r *AccountRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var n int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE owner_id = $1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count accounts of owner %s: %w", ownerID, err)
	}
	return n, nil
}

// LockForUpdate obtains row locks on the accounts, in ascending id order, and returns
// their current state. Must run inside a transaction.
func (r *AccountRepository) LockForUpdate(ctx context.Context, ids []uuid.UUID) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to lock accounts for update", "count", len(ids), "error", err)
		return nil, fmt.Errorf("failed to lock accounts for update: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// UpdateBalance writes a new balance if the version is still expectedVersion and
// returns the new version. Returns ErrVersionConflict when no row matched.
func (r *AccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, expectedVersion, newBalance int64, updatedAt time.Time) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4 AND status = 'active'
		RETURNING version
	`

	var version int64
	err := r.querier.QueryRow(ctx, query, newBalance, updatedAt, id, expectedVersion).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, account.ErrVersionConflict{AccountID: id, ExpectedVersion: expectedVersion}
		}
		r.logger.Error("Failed to update account balance", "id", id.String(), "error", err)
		return 0, fmt.Errorf("failed to update account balance: %w", err)
	}

	return version, nil
}

// compareAndSwap replaces the balance outside of any posting. A miss is classified by
// re-reading the row.
func (r *AccountRepository) compareAndSwap(ctx context.Context, id uuid.UUID, expectedVersion, newBalance int64) (*account.Account, error) {
	query := `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND status = 'active'
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, newBalance, id, expectedVersion))
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to compare and swap balance", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to compare and swap balance: %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if current.IsClosed() {
		return nil, account.ErrAccountClosed{AccountID: id}
	}
	return nil, account.ErrVersionConflict{AccountID: id, ExpectedVersion: expectedVersion}
}

// Close flags an empty account closed if the version is still expectedVersion
func (r *AccountRepository) Close(ctx context.Context, id uuid.UUID, expectedVersion int64) (*account.Account, error) {
	query := `
		UPDATE accounts
		SET status = 'closed', version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND balance = 0
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id, expectedVersion))
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to close account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to close account: %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if current.Version == expectedVersion && current.Balance != 0 {
		return nil, account.ErrAccountNotEmpty
	}
	return nil, account.ErrVersionConflict{AccountID: id, ExpectedVersion: expectedVersion}
}

func collectAccounts(rows pgx.Rows) ([]*account.Account, error) {
	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}
	return accounts, nil
}
