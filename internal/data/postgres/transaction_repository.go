package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	transactionColumns = `id, account_id, counterparty_account_id, correlation_id, type, amount, currency, balance_after, idempotency_key, account_version, created_at`

	uniqueViolation          = "23505"
	idempotencyKeyConstraint = "uq_transactions_account_idempotency_key"
	accountVersionConstraint = "uq_transactions_account_version"
)

// TransactionRepository persists the append-only transaction log
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewTransactionRepository(logger *slog.Logger, db persistence.Querier) *TransactionRepository {
	return &TransactionRepository{
		querier: db,
		logger:  logger,
	}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *TransactionRepository) WithTx(tx pgx.Tx) *TransactionRepository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanTransaction(row pgx.Row) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.CounterpartyAccountID,
		&tx.CorrelationID,
		&tx.Type,
		&tx.Amount,
		&tx.Currency,
		&tx.BalanceAfter,
		&tx.IdempotencyKey,
		&tx.AccountVersion,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create appends a committed transaction. A second use of the idempotency key on the
// same account fails with ledger.ErrDuplicateIdempotencyKey.
func (r *TransactionRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.CounterpartyAccountID,
		tx.CorrelationID,
		tx.Type,
		tx.Amount,
		tx.Currency,
		tx.BalanceAfter,
		tx.IdempotencyKey,
		tx.AccountVersion,
		tx.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case idempotencyKeyConstraint:
				return ledger.ErrDuplicateIdempotencyKey{AccountID: tx.AccountID, IdempotencyKey: tx.IdempotencyKey}
			case accountVersionConstraint:
				return account.ErrVersionConflict{AccountID: tx.AccountID, ExpectedVersion: tx.AccountVersion - 1}
			}
		}
		r.logger.Error("Failed to create transaction",
			"transaction_id", tx.ID.String(),
			"account_id", tx.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByIdempotencyKey returns nil, nil when the key is unused on the account
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1 AND idempotency_key = $2
	`

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, accountID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by idempotency key", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction by idempotency key: %w", err)
	}

	return tx, nil
}

// ListByCorrelationID returns every leg written under the correlation id
func (r *TransactionRepository) ListByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE correlation_id = $1
		ORDER BY created_at ASC, account_version ASC
	`

	rows, err := r.querier.Query(ctx, query, correlationID)
	if err != nil {
		r.logger.Error("Failed to list transactions by correlation id", "correlation_id", correlationID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions by correlation id: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListByAccount returns up to limit transactions after afterVersion in history order
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, afterVersion int64, limit int) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1 AND account_version > $2
		ORDER BY created_at ASC, account_version ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, afterVersion, limit)
	if err != nil {
		r.logger.Error("Failed to list account transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list account transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// CountSince counts transactions committed at or after since
func (r *TransactionRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE created_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func collectTransactions(rows pgx.Rows) ([]*ledger.Transaction, error) {
	var txs []*ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return txs, nil
}
