package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/bankfin-ledger/internal/api_gateway/middleware"
	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/auth"
	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/bankfin-ledger/internal/ledger_engine"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	return r
}

// asCaller stands in for the auth middleware
func asCaller(p auth.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.PrincipalKey, p)
		c.Next()
	}
}

// decodeData unmarshals the data field of a Response into out
func decodeData(t *testing.T, body []byte, out any) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(body, &resp))
	if out != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return resp
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) OpenAccount(ctx context.Context, caller auth.Principal, currency, initialDeposit string) (*account.Account, error) {
	args := m.Called(ctx, caller, currency, initialDeposit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) GetAccount(ctx context.Context, caller auth.Principal, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, caller auth.Principal) ([]*account.Account, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountService) CloseAccount(ctx context.Context, caller auth.Principal, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) Deposit(ctx context.Context, caller auth.Principal, accountID uuid.UUID, amount, idempotencyKey string) (*ledger.Transaction, error) {
	args := m.Called(ctx, caller, accountID, amount, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) Withdraw(ctx context.Context, caller auth.Principal, accountID uuid.UUID, amount, idempotencyKey string) (*ledger.Transaction, error) {
	args := m.Called(ctx, caller, accountID, amount, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) Transfer(ctx context.Context, caller auth.Principal, fromID, toID uuid.UUID, amount, idempotencyKey string) (*service.TransferResult, error) {
	args := m.Called(ctx, caller, fromID, toID, amount, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransferResult), args.Error(1)
}

func (m *MockTransactionService) History(ctx context.Context, caller auth.Principal, accountID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, caller, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RegisterResult), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) KYCStatus(ctx context.Context, userID uuid.UUID) (shared.KYCStatus, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(shared.KYCStatus), args.Error(1)
}

type MockKYCService struct {
	mock.Mock
}

func (m *MockKYCService) HandleCallback(ctx context.Context, signature string, result shared.VerificationResult) error {
	return m.Called(ctx, signature, result).Error(0)
}

func (m *MockKYCService) Decide(ctx context.Context, userID uuid.UUID, approve bool) (*user.User, error) {
	args := m.Called(ctx, userID, approve)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Stats(ctx context.Context) (*service.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Stats), args.Error(1)
}

func (m *MockAdminService) SearchUsers(ctx context.Context, query string, page, perPage int) ([]*user.User, int64, error) {
	args := m.Called(ctx, query, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*user.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockAdminService) AccountAudit(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Transaction, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockAdminService) Reconcile(ctx context.Context, accountID uuid.UUID) (ledger_engine.Reconciliation, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(ledger_engine.Reconciliation), args.Error(1)
}
