package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/money"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRespondLedgerError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"invalid amount", fmt.Errorf("%w: %q", money.ErrInvalidAmount, "x"), http.StatusBadRequest, "INVALID_AMOUNT"},
		{"invalid currency", money.ErrInvalidCurrency, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"currency mismatch", money.ErrCurrencyMismatch, http.StatusUnprocessableEntity, "CURRENCY_MISMATCH"},
		{"not found", account.ErrAccountNotFound{AccountID: uuid.New()}, http.StatusNotFound, "NOT_FOUND"},
		{"closed", fmt.Errorf("wrapped: %w", account.ErrAccountClosed{AccountID: uuid.New()}), http.StatusConflict, "ACCOUNT_CLOSED"},
		{"not empty", account.ErrAccountNotEmpty, http.StatusConflict, "ACCOUNT_NOT_EMPTY"},
		{"duplicate account", account.ErrDuplicateAccount{OwnerID: uuid.New()}, http.StatusConflict, "DUPLICATE_ACCOUNT"},
		{"insufficient funds", ledger.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"same account", ledger.ErrSameAccountTransfer, http.StatusBadRequest, "SAME_ACCOUNT_TRANSFER"},
		{"key required", ledger.ErrIdempotencyKeyRequired, http.StatusBadRequest, "IDEMPOTENCY_KEY_REQUIRED"},
		{"key invalid", fmt.Errorf("%w: too long", ledger.ErrInvalidIdempotencyKey), http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY"},
		{"key reused", ledger.ErrIdempotencyKeyReused, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED"},
		{"conflicts", ledger.ErrTooManyConflicts, http.StatusConflict, "TOO_MANY_CONFLICTS"},
		{"storage", fmt.Errorf("%w: timeout", ledger.ErrStorageUnavailable), http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{"unverified", kyc.ErrIdentityNotVerified, http.StatusForbidden, "FORBIDDEN"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	logger := newTestLogger()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.GET("/", func(c *gin.Context) { respondLedgerError(c, logger, tt.err) })

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantCode, rr.Code)
			resp := decodeData(t, rr.Body.Bytes(), nil)
			if assert.NotNil(t, resp.Error) {
				assert.Equal(t, tt.wantBody, resp.Error.Code)
			}
			assert.NotEmpty(t, resp.CorrelationID)
		})
	}
}
