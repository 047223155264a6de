package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/bankfin-ledger/internal/ledger_engine"
	"github.com/google/uuid"
)

// TransactionCounter counts committed transactions
type TransactionCounter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// AdminServiceImpl implements the AdminService interface
type AdminServiceImpl struct {
	users        user.Repository
	transactions TransactionCounter
	audit        ledger.AuditRepository
	engine       LedgerEngine
	logger       *slog.Logger
	now          func() time.Time
}

// NewAdminService creates a new admin service
func NewAdminService(logger *slog.Logger, users user.Repository, transactions TransactionCounter, audit ledger.AuditRepository, engine LedgerEngine) AdminService {
	return &AdminServiceImpl{
		users:        users,
		transactions: transactions,
		audit:        audit,
		engine:       engine,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *AdminServiceImpl) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	pending, err := s.users.CountByKYCStatus(ctx, shared.KYCStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending kyc: %w", err)
	}
	recent, err := s.transactions.CountSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent transactions: %w", err)
	}

	return &Stats{
		TotalUsers:          total,
		PendingKYC:          pending,
		TransactionsLast24h: recent,
		GeneratedAt:         now,
	}, nil
}

func (s *AdminServiceImpl) SearchUsers(ctx context.Context, query string, page, perPage int) ([]*user.User, int64, error) {
	return s.users.Search(ctx, query, perPage, (page-1)*perPage)
}

// AccountAudit reads the audit mirror, newest first
func (s *AdminServiceImpl) AccountAudit(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Transaction, int64, error) {
	if _, err := s.engine.GetAccount(ctx, accountID); err != nil {
		return nil, 0, err
	}

	entries, err := s.audit.GetByAccountID(ctx, accountID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.audit.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *AdminServiceImpl) Reconcile(ctx context.Context, accountID uuid.UUID) (ledger_engine.Reconciliation, error) {
	return s.engine.Reconcile(ctx, accountID)
}
