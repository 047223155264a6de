package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionColumnNames = []string{
	"id", "account_id", "counterparty_account_id", "correlation_id", "type", "amount",
	"currency", "balance_after", "idempotency_key", "account_version", "created_at",
}

func testTransaction() *ledger.Transaction {
	counterparty := uuid.New()
	return &ledger.Transaction{
		ID:                    uuid.New(),
		AccountID:             uuid.New(),
		CounterpartyAccountID: &counterparty,
		CorrelationID:         uuid.New(),
		Type:                  shared.TransactionTypeTransferOut,
		Amount:                250,
		Currency:              "USD",
		BalanceAfter:          750,
		IdempotencyKey:        "key-1",
		AccountVersion:        4,
		CreatedAt:             time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func transactionRow(rows *pgxmock.Rows, tx *ledger.Transaction) *pgxmock.Rows {
	return rows.AddRow(tx.ID, tx.AccountID, tx.CounterpartyAccountID, tx.CorrelationID, tx.Type, tx.Amount,
		tx.Currency, tx.BalanceAfter, tx.IdempotencyKey, tx.AccountVersion, tx.CreatedAt)
}

func transactionArgs(tx *ledger.Transaction) []interface{} {
	return []interface{}{tx.ID, tx.AccountID, tx.CounterpartyAccountID, tx.CorrelationID, tx.Type, tx.Amount,
		tx.Currency, tx.BalanceAfter, tx.IdempotencyKey, tx.AccountVersion, tx.CreatedAt}
}

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(newTestLogger(), mock)
	tx := testTransaction()
	query := sqlPattern("INSERT INTO transactions")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(transactionArgs(tx)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, tx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate idempotency key", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(transactionArgs(tx)...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_transactions_account_idempotency_key"})

		err := repo.Create(ctx, tx)
		assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey{AccountID: tx.AccountID, IdempotencyKey: "key-1"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate account version", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(transactionArgs(tx)...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_transactions_account_version"})

		err := repo.Create(ctx, tx)
		assert.ErrorIs(t, err, account.ErrVersionConflict{AccountID: tx.AccountID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("insert failed")
		mock.ExpectExec(query).WithArgs(transactionArgs(tx)...).WillReturnError(dbErr)

		err := repo.Create(ctx, tx)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to create transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetByIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(newTestLogger(), mock)
	tx := testTransaction()
	query := sqlPattern("WHERE account_id = $1 AND idempotency_key = $2")

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(tx.AccountID, tx.IdempotencyKey).
			WillReturnRows(transactionRow(pgxmock.NewRows(transactionColumnNames), tx))

		got, err := repo.GetByIdempotencyKey(ctx, tx.AccountID, tx.IdempotencyKey)
		require.NoError(t, err)
		assert.Equal(t, tx, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unused key", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(tx.AccountID, "other").WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByIdempotencyKey(ctx, tx.AccountID, "other")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_ListByAccount(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(newTestLogger(), mock)
	first, second := testTransaction(), testTransaction()
	second.AccountID = first.AccountID
	second.AccountVersion = 5

	rows := pgxmock.NewRows(transactionColumnNames)
	transactionRow(rows, first)
	transactionRow(rows, second)
	mock.ExpectQuery(sqlPattern("WHERE account_id = $1 AND account_version > $2 ORDER BY created_at ASC, account_version ASC LIMIT $3")).
		WithArgs(first.AccountID, int64(3), 2).
		WillReturnRows(rows)

	txs, err := repo.ListByAccount(ctx, first.AccountID, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []*ledger.Transaction{first, second}, txs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_ListByCorrelationID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(newTestLogger(), mock)
	tx := testTransaction()
	dbErr := errors.New("connection reset")
	mock.ExpectQuery(sqlPattern("WHERE correlation_id = $1")).WithArgs(tx.CorrelationID).WillReturnError(dbErr)

	txs, err := repo.ListByCorrelationID(ctx, tx.CorrelationID)
	assert.Nil(t, txs)
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
