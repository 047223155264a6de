// Package ledger_engine validates and posts balance-changing operations. Every mutation
// is an optimistic compare-and-swap against the store, retried from validation when
// another mutation wins the race.
package ledger_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/config"
	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/money"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	defaultMaxCommitAttempts = 5
	defaultHistoryPageSize   = 100
)

// Engine is safe for concurrent use. It holds no lock of its own; per-account
// serialization comes from the store's compare-and-swap.
type Engine struct {
	store       Store
	gate        IdentityGate
	logger      *slog.Logger
	maxAttempts int
	pageSize    int
	now         func() time.Time
}

// NewEngine creates a posting engine over the given store and identity gate
func NewEngine(logger *slog.Logger, cfg *config.LedgerConfig, store Store, gate IdentityGate) *Engine {
	e := &Engine{
		store:       store,
		gate:        gate,
		logger:      logger,
		maxAttempts: cfg.MaxCommitAttempts,
		pageSize:    cfg.HistoryPageSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = defaultMaxCommitAttempts
	}
	if e.pageSize <= 0 {
		e.pageSize = defaultHistoryPageSize
	}
	return e
}

// OpenAccount creates an account for a KYC-verified owner. A positive opening balance is
// recorded as a deposit in the same atomic write as the account itself.
func (e *Engine) OpenAccount(ctx context.Context, ownerID uuid.UUID, currency string, opening money.Money) (*account.Account, error) {
	status, err := e.gate.KYCStatus(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check identity of owner %s: %w", ownerID, err)
	}
	if status != shared.KYCStatusVerified {
		e.logger.Info("Account opening rejected by KYC gate", "owner_id", ownerID, "kyc_status", status)
		return nil, kyc.ErrIdentityNotVerified
	}

	acc, err := account.NewAccount(ownerID, currency, e.now())
	if err != nil {
		return nil, err
	}

	if opening.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance cannot be negative", money.ErrInvalidAmount)
	}

	var openingTx *ledger.Transaction
	if opening.IsPositive() {
		if opening.Currency != acc.Currency {
			return nil, fmt.Errorf("%w: opening balance in %s for %s account", money.ErrCurrencyMismatch, opening.Currency, acc.Currency)
		}
		openingTx, err = ledger.NewTransaction(acc.ID, shared.TransactionTypeDeposit, opening, ledger.OpeningKey(acc.ID), uuid.Nil)
		if err != nil {
			return nil, err
		}
		acc.Balance = opening.Amount
		openingTx.BalanceAfter = opening.Amount
		openingTx.AccountVersion = acc.Version
		openingTx.CreatedAt = acc.CreatedAt
	}

	if err := e.store.CreateAccount(ctx, acc, openingTx); err != nil {
		return nil, err
	}

	e.logger.Info("Account opened", "account_id", acc.ID, "owner_id", ownerID, "currency", acc.Currency, "opening_balance", acc.Balance)
	return acc, nil
}

// GetAccount returns the current state of an account
func (e *Engine) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return e.store.GetAccount(ctx, id)
}

// ListAccounts returns every account owned by the user
func (e *Engine) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	return e.store.ListAccountsByOwner(ctx, ownerID)
}

// Deposit credits the account. Replaying an idempotency key returns the original transaction.
func (e *Engine) Deposit(ctx context.Context, accountID uuid.UUID, amount money.Money, idempotencyKey string) (*ledger.Transaction, error) {
	return e.postSingle(ctx, accountID, shared.TransactionTypeDeposit, amount, idempotencyKey)
}

// Withdraw debits the account. Sufficient funds are enforced by the store at commit time,
// against the same snapshot the compare-and-swap validates.
func (e *Engine) Withdraw(ctx context.Context, accountID uuid.UUID, amount money.Money, idempotencyKey string) (*ledger.Transaction, error) {
	return e.postSingle(ctx, accountID, shared.TransactionTypeWithdrawal, amount, idempotencyKey)
}

func (e *Engine) postSingle(ctx context.Context, accountID uuid.UUID, txType shared.TransactionType, amount money.Money, idempotencyKey string) (*ledger.Transaction, error) {
	if err := validateRequest(amount, idempotencyKey); err != nil {
		return nil, err
	}

	logger := e.logger.With("operation", string(txType), "account_id", accountID, "idempotency_key", idempotencyKey)

	var result *ledger.Transaction
	err := e.withRetry(ctx, logger, func(ctx context.Context) error {
		existing, err := e.replay(ctx, accountID, idempotencyKey, txType, amount, nil)
		if err != nil {
			return err
		}
		if existing != nil {
			logger.Info("Idempotent replay, returning original transaction", "transaction_id", existing.ID)
			result = existing
			return nil
		}

		acc, err := e.loadActive(ctx, accountID)
		if err != nil {
			return err
		}

		var newBalance money.Money
		if txType.IsCredit() {
			newBalance, err = acc.Money().Add(amount)
		} else {
			newBalance, err = acc.Money().Sub(amount)
		}
		if err != nil {
			return err
		}

		tx, err := ledger.NewTransaction(accountID, txType, amount, idempotencyKey, uuid.Nil)
		if err != nil {
			return err
		}
		tx.BalanceAfter = newBalance.Amount
		tx.CreatedAt = e.now()

		if err := e.store.Commit(ctx, []ledger.Posting{{
			AccountID:       accountID,
			ExpectedVersion: acc.Version,
			NewBalance:      newBalance.Amount,
			Transaction:     tx,
		}}); err != nil {
			return err
		}

		result = tx
		return nil
	})
	if err != nil {
		logger.Warn("Posting failed", "error", err)
		return nil, err
	}

	logger.Info("Posting committed", "transaction_id", result.ID, "balance_after", result.BalanceAfter, "account_version", result.AccountVersion)
	return result, nil
}

// Transfer moves funds between two accounts of the same currency. Both legs commit
// together or not at all, and share a correlation id. Returns (debit, credit).
func (e *Engine) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount money.Money, idempotencyKey string) (*ledger.Transaction, *ledger.Transaction, error) {
	if fromID == toID {
		return nil, nil, ledger.ErrSameAccountTransfer
	}
	if err := validateRequest(amount, idempotencyKey); err != nil {
		return nil, nil, err
	}

	logger := e.logger.With("operation", "transfer", "from_account_id", fromID, "to_account_id", toID, "idempotency_key", idempotencyKey)

	var debit, credit *ledger.Transaction
	err := e.withRetry(ctx, logger, func(ctx context.Context) error {
		existing, err := e.replay(ctx, fromID, idempotencyKey, shared.TransactionTypeTransferOut, amount, &toID)
		if err != nil {
			return err
		}
		if existing != nil {
			in, err := e.creditLeg(ctx, existing)
			if err != nil {
				return err
			}
			logger.Info("Idempotent replay, returning original transfer", "correlation_id", existing.CorrelationID)
			debit, credit = existing, in
			return nil
		}

		from, err := e.loadActive(ctx, fromID)
		if err != nil {
			return err
		}
		to, err := e.loadActive(ctx, toID)
		if err != nil {
			return err
		}
		if to.Currency != from.Currency {
			return fmt.Errorf("%w: %s to %s", money.ErrCurrencyMismatch, from.Currency, to.Currency)
		}

		fromBalance, err := from.Money().Sub(amount)
		if err != nil {
			return err
		}
		toBalance, err := to.Money().Add(amount)
		if err != nil {
			return err
		}

		correlationID := uuid.New()
		transition(logger, correlationID, shared.TransferStateValidated)

		out, err := ledger.NewTransaction(fromID, shared.TransactionTypeTransferOut, amount, idempotencyKey, correlationID)
		if err != nil {
			return err
		}
		out.CounterpartyAccountID = &toID
		out.BalanceAfter = fromBalance.Amount
		transition(logger, correlationID, shared.TransferStateDebitReserved)

		in, err := ledger.NewTransaction(toID, shared.TransactionTypeTransferIn, amount, ledger.TransferKey(fromID, idempotencyKey), correlationID)
		if err != nil {
			return err
		}
		in.CounterpartyAccountID = &fromID
		in.BalanceAfter = toBalance.Amount
		transition(logger, correlationID, shared.TransferStateCreditApplied)

		now := e.now()
		out.CreatedAt, in.CreatedAt = now, now

		if err := e.store.Commit(ctx, []ledger.Posting{
			{AccountID: fromID, ExpectedVersion: from.Version, NewBalance: fromBalance.Amount, Transaction: out},
			{AccountID: toID, ExpectedVersion: to.Version, NewBalance: toBalance.Amount, Transaction: in},
		}); err != nil {
			transition(logger, correlationID, shared.TransferStateAborted, "error", err)
			return e.creditKeyTaken(ctx, err, fromID, toID, idempotencyKey)
		}

		transition(logger, correlationID, shared.TransferStateCommitted)
		debit, credit = out, in
		return nil
	})
	if err != nil {
		logger.Warn("Transfer failed", "error", err)
		return nil, nil, err
	}

	logger.Info("Transfer committed", "correlation_id", debit.CorrelationID, "amount", amount.String())
	return debit, credit, nil
}

// CloseAccount flags an empty account as closed. Closing a closed account is a no-op.
func (e *Engine) CloseAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	logger := e.logger.With("operation", "close", "account_id", id)

	var closed *account.Account
	err := e.withRetry(ctx, logger, func(ctx context.Context) error {
		acc, err := e.store.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if acc.IsClosed() {
			closed = acc
			return nil
		}
		if acc.Balance != 0 {
			return account.ErrAccountNotEmpty
		}
		closed, err = e.store.CloseAccount(ctx, id, acc.Version)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Account closed", "version", closed.Version)
	return closed, nil
}

// withRetry runs attempt until it succeeds, fails with a non-conflict error, or the
// attempt ceiling is reached. Cancellation is honoured only between attempts.
func (e *Engine) withRetry(ctx context.Context, logger *slog.Logger, attempt func(ctx context.Context) error) error {
	for n := 1; n <= e.maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return err
		}
		logger.Debug("Commit conflict, retrying from validation", "attempt", n, "error", err)
	}

	logger.Warn("Giving up after repeated commit conflicts", "attempts", e.maxAttempts)
	return ledger.ErrTooManyConflicts
}

func isConflict(err error) bool {
	return errors.Is(err, account.ErrVersionConflict{}) || errors.Is(err, ledger.ErrDuplicateIdempotencyKey{})
}

// replay looks up a previous posting under the same key. A hit for a different request
// is an error rather than a second outcome.
func (e *Engine) replay(ctx context.Context, accountID uuid.UUID, key string, txType shared.TransactionType, amount money.Money, counterparty *uuid.UUID) (*ledger.Transaction, error) {
	existing, err := e.store.FindByIdempotencyKey(ctx, accountID, key)
	if err != nil || existing == nil {
		return nil, err
	}
	if !existing.SameRequest(txType, amount, counterparty) {
		return nil, ledger.ErrIdempotencyKeyReused
	}
	return existing, nil
}

// creditKeyTaken turns a duplicate key on the credit leg into ErrIdempotencyKeyReused
// when no debit leg carries the key. Both legs commit together, so a racing
// submission of the same transfer always leaves the debit leg behind and is
// resolved by the retry instead.
func (e *Engine) creditKeyTaken(ctx context.Context, err error, fromID, toID uuid.UUID, key string) error {
	var dup ledger.ErrDuplicateIdempotencyKey
	if !errors.As(err, &dup) || dup.AccountID != toID {
		return err
	}
	debit, lookupErr := e.store.FindByIdempotencyKey(ctx, fromID, key)
	if lookupErr != nil {
		return lookupErr
	}
	if debit == nil {
		return ledger.ErrIdempotencyKeyReused
	}
	return err
}

func (e *Engine) creditLeg(ctx context.Context, debit *ledger.Transaction) (*ledger.Transaction, error) {
	legs, err := e.store.FindByCorrelationID(ctx, debit.CorrelationID)
	if err != nil {
		return nil, err
	}
	for _, leg := range legs {
		if leg.Type == shared.TransactionTypeTransferIn {
			return leg, nil
		}
	}
	return nil, fmt.Errorf("transfer %s has no credit leg", debit.CorrelationID)
}

func (e *Engine) loadActive(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	acc, err := e.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.IsClosed() {
		return nil, account.ErrAccountClosed{AccountID: id}
	}
	return acc, nil
}

func validateRequest(amount money.Money, idempotencyKey string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", money.ErrInvalidAmount)
	}
	return ledger.ValidateIdempotencyKey(idempotencyKey)
}

func transition(logger *slog.Logger, correlationID uuid.UUID, state shared.TransferState, args ...any) {
	logger.Debug("Transfer state", append([]any{"correlation_id", correlationID, "state", string(state)}, args...)...)
}
