package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bankfin-ledger/internal/auth"
	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/money"
	"github.com/google/uuid"
)

const maxHistoryLimit = 1000

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	engine LedgerEngine
	logger *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(logger *slog.Logger, engine LedgerEngine) TransactionService {
	return &TransactionServiceImpl{
		engine: engine,
		logger: logger,
	}
}

func (s *TransactionServiceImpl) Deposit(ctx context.Context, caller auth.Principal, accountID uuid.UUID, amount, idempotencyKey string) (*ledger.Transaction, error) {
	acc, m, err := s.prepare(ctx, caller, accountID, amount)
	if err != nil {
		return nil, err
	}
	return s.engine.Deposit(ctx, acc.ID, m, idempotencyKey)
}

func (s *TransactionServiceImpl) Withdraw(ctx context.Context, caller auth.Principal, accountID uuid.UUID, amount, idempotencyKey string) (*ledger.Transaction, error) {
	acc, m, err := s.prepare(ctx, caller, accountID, amount)
	if err != nil {
		return nil, err
	}
	return s.engine.Withdraw(ctx, acc.ID, m, idempotencyKey)
}

func (s *TransactionServiceImpl) Transfer(ctx context.Context, caller auth.Principal, fromID, toID uuid.UUID, amount, idempotencyKey string) (*TransferResult, error) {
	from, m, err := s.prepare(ctx, caller, fromID, amount)
	if err != nil {
		return nil, err
	}

	debit, credit, err := s.engine.Transfer(ctx, from.ID, toID, m, idempotencyKey)
	if err != nil {
		return nil, err
	}
	return &TransferResult{Debit: debit, Credit: credit}, nil
}

// History stops reading from the store as soon as limit transactions were collected
func (s *TransactionServiceImpl) History(ctx context.Context, caller auth.Principal, accountID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	if _, err := s.authorize(ctx, caller, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	txs := make([]*ledger.Transaction, 0)
	for tx, err := range s.engine.AccountHistory(ctx, accountID) {
		if err != nil {
			return nil, fmt.Errorf("failed to read history of account %s: %w", accountID, err)
		}
		txs = append(txs, tx)
		if len(txs) == limit {
			break
		}
	}
	return txs, nil
}

// prepare checks access to the account and parses the amount in its currency
func (s *TransactionServiceImpl) prepare(ctx context.Context, caller auth.Principal, accountID uuid.UUID, amount string) (*account.Account, money.Money, error) {
	acc, err := s.authorize(ctx, caller, accountID)
	if err != nil {
		return nil, money.Money{}, err
	}
	m, err := money.Parse(amount, acc.Currency)
	if err != nil {
		return nil, money.Money{}, err
	}
	return acc, m, nil
}

func (s *TransactionServiceImpl) authorize(ctx context.Context, caller auth.Principal, accountID uuid.UUID) (*account.Account, error) {
	acc, err := s.engine.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !canAccess(caller, acc) {
		s.logger.Warn("Account access denied", "account_id", accountID, "user_id", caller.UserID)
		return nil, ErrForbidden
	}
	return acc, nil
}
