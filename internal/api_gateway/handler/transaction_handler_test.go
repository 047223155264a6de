package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/auth"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testTransaction(accountID uuid.UUID, txType shared.TransactionType, amount, balanceAfter int64) *ledger.Transaction {
	return &ledger.Transaction{
		ID:             uuid.New(),
		AccountID:      accountID,
		Type:           txType,
		Amount:         amount,
		Currency:       "USD",
		BalanceAfter:   balanceAfter,
		IdempotencyKey: "key-1",
		AccountVersion: 2,
		CreatedAt:      time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestTransactionHandler_Deposit(t *testing.T) {
	caller := auth.Principal{UserID: uuid.New()}
	accountID := uuid.New()
	path := "/accounts/" + accountID.String() + "/deposits"

	t.Run("BodyKey", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(newTestLogger(), mockService)
		tx := testTransaction(accountID, shared.TransactionTypeDeposit, 1050, 11050)
		mockService.On("Deposit", mock.Anything, caller, accountID, "10.50", "key-1").Return(tx, nil)

		router := setupTestRouter()
		router.POST("/accounts/:id/deposits", asCaller(caller), handler.Deposit)

		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"amount":"10.50","idempotency_key":"key-1"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		var body TransactionResponse
		decodeData(t, rr.Body.Bytes(), &body)
		assert.Equal(t, tx.ID.String(), body.ID)
		assert.Equal(t, "10.50", body.Amount)
		assert.Equal(t, "110.50", body.BalanceAfter)
		assert.Equal(t, "deposit", body.Type)
		assert.Empty(t, body.CorrelationID)
		mockService.AssertExpectations(t)
	})

	t.Run("HeaderKey", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(newTestLogger(), mockService)
		mockService.On("Deposit", mock.Anything, caller, accountID, "1", "from-header").
			Return(testTransaction(accountID, shared.TransactionTypeDeposit, 100, 100), nil)

		router := setupTestRouter()
		router.POST("/accounts/:id/deposits", asCaller(caller), handler.Deposit)

		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"amount":"1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(IdempotencyKeyHeader, "from-header")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingKey", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(newTestLogger(), mockService)
		mockService.On("Deposit", mock.Anything, caller, accountID, "1", "").Return(nil, ledger.ErrIdempotencyKeyRequired)

		router := setupTestRouter()
		router.POST("/accounts/:id/deposits", asCaller(caller), handler.Deposit)

		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"amount":"1"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("OverlongBodyKey", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(newTestLogger(), mockService)

		router := setupTestRouter()
		router.POST("/accounts/:id/deposits", asCaller(caller), handler.Deposit)

		body := `{"amount":"1","idempotency_key":"` + strings.Repeat("k", 201) + `"}`
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("OverlongHeaderKey", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(newTestLogger(), mockService)
		long := strings.Repeat("k", 201)
		mockService.On("Deposit", mock.Anything, caller, accountID, "1", long).Return(nil, ledger.ErrInvalidIdempotencyKey)

		router := setupTestRouter()
		router.POST("/accounts/:id/deposits", asCaller(caller), handler.Deposit)

		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"amount":"1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(IdempotencyKeyHeader, long)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingAmount", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(newTestLogger(), mockService)

		router := setupTestRouter()
		router.POST("/accounts/:id/deposits", asCaller(caller), handler.Deposit)

		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"idempotency_key":"k"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTransactionHandler_Withdraw(t *testing.T) {
	caller := auth.Principal{UserID: uuid.New()}
	accountID := uuid.New()

	mockService := new(MockTransactionService)
	handler := NewTransactionHandler(newTestLogger(), mockService)
	mockService.On("Withdraw", mock.Anything, caller, accountID, "500", "wd-1").Return(nil, ledger.ErrInsufficientFunds)

	router := setupTestRouter()
	router.POST("/accounts/:id/withdrawals", asCaller(caller), handler.Withdraw)

	req := httptest.NewRequest(http.MethodPost, "/accounts/"+accountID.String()+"/withdrawals", bytes.NewBufferString(`{"amount":"500","idempotency_key":"wd-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decodeData(t, rr.Body.Bytes(), nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_FUNDS", resp.Error.Code)
}

func TestTransactionHandler_Transfer(t *testing.T) {
	caller := auth.Principal{UserID: uuid.New()}
	fromID, toID := uuid.New(), uuid.New()
	correlationID := uuid.New()

	debit := testTransaction(fromID, shared.TransactionTypeTransferOut, 2500, 7500)
	credit := testTransaction(toID, shared.TransactionTypeTransferIn, 2500, 2500)
	debit.CorrelationID, credit.CorrelationID = correlationID, correlationID
	debit.CounterpartyAccountID, credit.CounterpartyAccountID = &toID, &fromID

	mockService := new(MockTransactionService)
	handler := NewTransactionHandler(newTestLogger(), mockService)
	mockService.On("Transfer", mock.Anything, caller, fromID, toID, "25", "tr-1").
		Return(&service.TransferResult{Debit: debit, Credit: credit}, nil)

	router := setupTestRouter()
	router.POST("/transfers", asCaller(caller), handler.Transfer)

	t.Run("Success", func(t *testing.T) {
		body := `{"from_account_id":"` + fromID.String() + `","to_account_id":"` + toID.String() + `","amount":"25","idempotency_key":"tr-1"}`
		req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		var resp TransferResponse
		decodeData(t, rr.Body.Bytes(), &resp)
		assert.Equal(t, "75.00", resp.Debit.BalanceAfter)
		assert.Equal(t, toID.String(), resp.Debit.CounterpartyAccountID)
		assert.Equal(t, correlationID.String(), resp.Credit.CorrelationID)
		assert.Equal(t, "transfer-in", resp.Credit.Type)
	})

	t.Run("InvalidAccountID", func(t *testing.T) {
		body := `{"from_account_id":"nope","to_account_id":"` + toID.String() + `","amount":"25"}`
		req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	mockService.AssertNumberOfCalls(t, "Transfer", 1)
}

func TestTransactionHandler_History(t *testing.T) {
	caller := auth.Principal{UserID: uuid.New()}
	accountID := uuid.New()
	txs := []*ledger.Transaction{
		testTransaction(accountID, shared.TransactionTypeDeposit, 100, 100),
		testTransaction(accountID, shared.TransactionTypeWithdrawal, 40, 60),
	}

	mockService := new(MockTransactionService)
	handler := NewTransactionHandler(newTestLogger(), mockService)
	mockService.On("History", mock.Anything, caller, accountID, 100).Return(txs, nil).Once()
	mockService.On("History", mock.Anything, caller, accountID, 1).Return(txs[:1], nil).Once()

	router := setupTestRouter()
	router.GET("/accounts/:id/transactions", asCaller(caller), handler.History)
	base := "/accounts/" + accountID.String() + "/transactions"

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var list TransactionListResponse
	decodeData(t, rr.Body.Bytes(), &list)
	require.Len(t, list.Transactions, 2)
	assert.Equal(t, "0.60", list.Transactions[1].BalanceAfter)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, base+"?limit=1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, base+"?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	mockService.AssertExpectations(t)
}
