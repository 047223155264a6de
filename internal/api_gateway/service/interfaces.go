package service

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/bankfin-ledger/internal/auth"
	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/money"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/bankfin-ledger/internal/ledger_engine"
	"github.com/google/uuid"
)

// ErrForbidden is returned when the caller neither owns the account nor is an admin
var ErrForbidden = errors.New("access to account denied")

// LedgerEngine is the posting engine the account and transaction services drive
type LedgerEngine interface {
	OpenAccount(ctx context.Context, ownerID uuid.UUID, currency string, opening money.Money) (*account.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
	ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error)
	Deposit(ctx context.Context, accountID uuid.UUID, amount money.Money, idempotencyKey string) (*ledger.Transaction, error)
	Withdraw(ctx context.Context, accountID uuid.UUID, amount money.Money, idempotencyKey string) (*ledger.Transaction, error)
	Transfer(ctx context.Context, fromID, toID uuid.UUID, amount money.Money, idempotencyKey string) (*ledger.Transaction, *ledger.Transaction, error)
	CloseAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
	AccountHistory(ctx context.Context, accountID uuid.UUID) iter.Seq2[*ledger.Transaction, error]
	Reconcile(ctx context.Context, accountID uuid.UUID) (ledger_engine.Reconciliation, error)
}

// AccountService defines account operations on behalf of an authenticated caller
type AccountService interface {
	// OpenAccount opens an account for the caller. Returns kyc.ErrIdentityNotVerified
	// unless the caller's identity has been verified.
	OpenAccount(ctx context.Context, caller auth.Principal, currency, initialDeposit string) (*account.Account, error)

	// GetAccount returns ErrForbidden for another user's account
	GetAccount(ctx context.Context, caller auth.Principal, id uuid.UUID) (*account.Account, error)

	ListAccounts(ctx context.Context, caller auth.Principal) ([]*account.Account, error)
	CloseAccount(ctx context.Context, caller auth.Principal, id uuid.UUID) (*account.Account, error)
}

// TransferResult holds both legs of a committed transfer
type TransferResult struct {
	Debit  *ledger.Transaction
	Credit *ledger.Transaction
}

// TransactionService defines balance-changing operations. Amounts are decimal strings
// in the currency of the account they are posted to.
type TransactionService interface {
	Deposit(ctx context.Context, caller auth.Principal, accountID uuid.UUID, amount, idempotencyKey string) (*ledger.Transaction, error)
	Withdraw(ctx context.Context, caller auth.Principal, accountID uuid.UUID, amount, idempotencyKey string) (*ledger.Transaction, error)

	// Transfer requires the caller to own the source account; the destination may
	// belong to anyone.
	Transfer(ctx context.Context, caller auth.Principal, fromID, toID uuid.UUID, amount, idempotencyKey string) (*TransferResult, error)

	// History returns at most limit transactions, oldest first
	History(ctx context.Context, caller auth.Principal, accountID uuid.UUID, limit int) ([]*ledger.Transaction, error)
}

// RegisterInput is a registration with the identity document attached
type RegisterInput struct {
	FullName      string
	Email         string
	Password      string
	ContentType   string
	Document      io.Reader
	CorrelationID string
}

// RegisterResult is returned to a newly registered user
type RegisterResult struct {
	User        *user.User
	AccessToken string
}

// AuthService defines registration, login and KYC status lookup
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)

	// Login returns auth.ErrInvalidCredentials for an unknown email or a wrong password
	Login(ctx context.Context, email, password string) (string, error)

	KYCStatus(ctx context.Context, userID uuid.UUID) (shared.KYCStatus, error)
}

// KYCService applies verification results pushed by the provider or decided by an admin
type KYCService interface {
	// HandleCallback returns kyc.ErrInvalidSignature when the signature does not match
	HandleCallback(ctx context.Context, signature string, result shared.VerificationResult) error
	Decide(ctx context.Context, userID uuid.UUID, approve bool) (*user.User, error)
}

// Stats is the admin dashboard summary
type Stats struct {
	TotalUsers          int64     `json:"total_users"`
	PendingKYC          int64     `json:"pending_kyc"`
	TransactionsLast24h int64     `json:"transactions_last_24h"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// AdminService defines the back-office queries
type AdminService interface {
	Stats(ctx context.Context) (*Stats, error)
	SearchUsers(ctx context.Context, query string, page, perPage int) ([]*user.User, int64, error)
	AccountAudit(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Transaction, int64, error)
	Reconcile(ctx context.Context, accountID uuid.UUID) (ledger_engine.Reconciliation, error)
}
