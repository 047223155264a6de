package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/bankfin-ledger/internal/ledger_engine"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAdminRouter(adminService *MockAdminService, kycService *MockKYCService) http.Handler {
	handler := NewAdminHandler(newTestLogger(), adminService, kycService)
	router := setupTestRouter()
	router.GET("/admin/stats", handler.Stats)
	router.GET("/admin/users", handler.Users)
	router.POST("/admin/kyc/:user_id/approve", handler.Approve)
	router.POST("/admin/kyc/:user_id/reject", handler.Reject)
	router.GET("/admin/accounts/:id/audit", handler.AccountAudit)
	router.GET("/admin/accounts/:id/reconcile", handler.Reconcile)
	return router
}

func get(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestAdminHandler_Stats(t *testing.T) {
	adminService := new(MockAdminService)
	router := newAdminRouter(adminService, new(MockKYCService))
	adminService.On("Stats", mock.Anything).Return(&service.Stats{TotalUsers: 5, PendingKYC: 2, TransactionsLast24h: 9, GeneratedAt: time.Now().UTC()}, nil)

	rr := get(router, http.MethodGet, "/admin/stats")
	assert.Equal(t, http.StatusOK, rr.Code)
	var stats service.Stats
	decodeData(t, rr.Body.Bytes(), &stats)
	assert.Equal(t, int64(5), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.PendingKYC)
	assert.Equal(t, int64(9), stats.TransactionsLast24h)
}

func TestAdminHandler_Users(t *testing.T) {
	adminService := new(MockAdminService)
	router := newAdminRouter(adminService, new(MockKYCService))
	users := []*user.User{{ID: uuid.New(), FullName: "Ada", Email: "ada@example.com", KYCStatus: shared.KYCStatusPending}}
	adminService.On("SearchUsers", mock.Anything, "ada", 2, 5).Return(users, int64(6), nil)

	rr := get(router, http.MethodGet, "/admin/users?q=ada&page=2&per_page=5")
	assert.Equal(t, http.StatusOK, rr.Code)
	var body []UserResponse
	resp := decodeData(t, rr.Body.Bytes(), &body)
	require.Len(t, body, 1)
	assert.Equal(t, "pending", body[0].KYCStatus)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	assert.Equal(t, 6, resp.Meta.TotalItems)

	assert.Equal(t, http.StatusBadRequest, get(router, http.MethodGet, "/admin/users?per_page=500").Code)
}

func TestAdminHandler_Decide(t *testing.T) {
	kycService := new(MockKYCService)
	router := newAdminRouter(new(MockAdminService), kycService)
	userID, missing := uuid.New(), uuid.New()
	verifiedAt := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	kycService.On("Decide", mock.Anything, userID, true).Return(&user.User{ID: userID, KYCStatus: shared.KYCStatusVerified, VerifiedAt: &verifiedAt}, nil)
	kycService.On("Decide", mock.Anything, userID, false).Return(&user.User{ID: userID, KYCStatus: shared.KYCStatusFailed}, nil)
	kycService.On("Decide", mock.Anything, missing, true).Return(nil, user.ErrUserNotFound{UserID: missing})

	rr := get(router, http.MethodPost, "/admin/kyc/"+userID.String()+"/approve")
	assert.Equal(t, http.StatusOK, rr.Code)
	var u UserResponse
	decodeData(t, rr.Body.Bytes(), &u)
	assert.Equal(t, "verified", u.KYCStatus)
	assert.Equal(t, verifiedAt.Format(time.RFC3339), u.VerifiedAt)

	rr = get(router, http.MethodPost, "/admin/kyc/"+userID.String()+"/reject")
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, http.StatusNotFound, get(router, http.MethodPost, "/admin/kyc/"+missing.String()+"/approve").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, http.MethodPost, "/admin/kyc/nope/approve").Code)
	kycService.AssertExpectations(t)
}

func TestAdminHandler_AccountAudit(t *testing.T) {
	adminService := new(MockAdminService)
	router := newAdminRouter(adminService, new(MockKYCService))
	accountID, missing := uuid.New(), uuid.New()
	entries := []*ledger.Transaction{{ID: uuid.New(), AccountID: accountID, Type: shared.TransactionTypeDeposit, Amount: 100, Currency: "USD", BalanceAfter: 100}}

	adminService.On("AccountAudit", mock.Anything, accountID, 1, 10).Return(entries, int64(1), nil)
	adminService.On("AccountAudit", mock.Anything, missing, 1, 10).Return(nil, int64(0), account.ErrAccountNotFound{AccountID: missing})

	rr := get(router, http.MethodGet, "/admin/accounts/"+accountID.String()+"/audit")
	assert.Equal(t, http.StatusOK, rr.Code)
	var body []TransactionResponse
	resp := decodeData(t, rr.Body.Bytes(), &body)
	require.Len(t, body, 1)
	assert.Equal(t, "1.00", body[0].Amount)
	assert.Equal(t, 1, resp.Meta.TotalItems)

	assert.Equal(t, http.StatusNotFound, get(router, http.MethodGet, "/admin/accounts/"+missing.String()+"/audit").Code)
}

func TestAdminHandler_Reconcile(t *testing.T) {
	adminService := new(MockAdminService)
	router := newAdminRouter(adminService, new(MockKYCService))
	balanced, broken := uuid.New(), uuid.New()
	link := uuid.New()

	adminService.On("Reconcile", mock.Anything, balanced).Return(ledger_engine.Reconciliation{
		AccountID: balanced, Currency: "USD", Balance: 1234, ReplayedBalance: 1234, TransactionCount: 3, ChainValid: true,
	}, nil)
	adminService.On("Reconcile", mock.Anything, broken).Return(ledger_engine.Reconciliation{
		AccountID: broken, Currency: "USD", Balance: 1000, ReplayedBalance: 900, TransactionCount: 2, FirstBrokenLink: &link,
	}, nil)

	rr := get(router, http.MethodGet, "/admin/accounts/"+balanced.String()+"/reconcile")
	assert.Equal(t, http.StatusOK, rr.Code)
	var rec ReconciliationResponse
	decodeData(t, rr.Body.Bytes(), &rec)
	assert.True(t, rec.Balanced)
	assert.Equal(t, "12.34", rec.Balance)

	rr = get(router, http.MethodGet, "/admin/accounts/"+broken.String()+"/reconcile")
	assert.Equal(t, http.StatusOK, rr.Code)
	rec = ReconciliationResponse{}
	decodeData(t, rr.Body.Bytes(), &rec)
	assert.False(t, rec.Balanced)
	assert.Equal(t, link.String(), rec.FirstBrokenLink)
	assert.Equal(t, "9.00", rec.ReplayedBalance)
}
