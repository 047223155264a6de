package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bankfin-ledger/internal/auth"
	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/money"
	"github.com/google/uuid"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	engine          LedgerEngine
	defaultCurrency string
	logger          *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(logger *slog.Logger, engine LedgerEngine, defaultCurrency string) AccountService {
	return &AccountServiceImpl{
		engine:          engine,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// OpenAccount opens an account in the given currency, or the default one when empty.
// An empty initial deposit opens the account at zero.
func (s *AccountServiceImpl) OpenAccount(ctx context.Context, caller auth.Principal, currency, initialDeposit string) (*account.Account, error) {
	if strings.TrimSpace(currency) == "" {
		currency = s.defaultCurrency
	}

	cur, err := money.NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	opening := money.Zero(cur)
	if strings.TrimSpace(initialDeposit) != "" {
		opening, err = money.Parse(initialDeposit, cur)
		if err != nil {
			return nil, err
		}
	}

	return s.engine.OpenAccount(ctx, caller.UserID, cur, opening)
}

func (s *AccountServiceImpl) GetAccount(ctx context.Context, caller auth.Principal, id uuid.UUID) (*account.Account, error) {
	acc, err := s.engine.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(caller, acc) {
		s.logger.Warn("Account access denied", "account_id", id, "user_id", caller.UserID)
		return nil, ErrForbidden
	}
	return acc, nil
}

func (s *AccountServiceImpl) ListAccounts(ctx context.Context, caller auth.Principal) ([]*account.Account, error) {
	return s.engine.ListAccounts(ctx, caller.UserID)
}

func (s *AccountServiceImpl) CloseAccount(ctx context.Context, caller auth.Principal, id uuid.UUID) (*account.Account, error) {
	if _, err := s.GetAccount(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.engine.CloseAccount(ctx, id)
}

func canAccess(caller auth.Principal, acc *account.Account) bool {
	return caller.Admin || acc.OwnerID == caller.UserID
}
