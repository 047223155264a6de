package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bankfin-ledger/internal/api_gateway/middleware"
	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/money"
	"github.com/gin-gonic/gin"
)

// respondLedgerError maps domain and service errors to HTTP responses. Unknown errors
// are logged and answered with a generic 500.
func respondLedgerError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, money.ErrInvalidAmount), errors.Is(err, money.ErrInvalidCurrency):
		RespondWithError(c, http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
	case errors.Is(err, money.ErrCurrencyMismatch):
		RespondUnprocessable(c, "CURRENCY_MISMATCH", err.Error())
	case errors.Is(err, account.ErrAccountNotFound{}):
		RespondNotFound(c, "Account not found")
	case errors.Is(err, account.ErrAccountClosed{}):
		RespondWithError(c, http.StatusConflict, "ACCOUNT_CLOSED", "Account is closed")
	case errors.Is(err, account.ErrAccountNotEmpty):
		RespondWithError(c, http.StatusConflict, "ACCOUNT_NOT_EMPTY", err.Error())
	case errors.Is(err, account.ErrDuplicateAccount{}):
		RespondWithError(c, http.StatusConflict, "DUPLICATE_ACCOUNT", "Owner already holds an account")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, ledger.ErrSameAccountTransfer):
		RespondWithError(c, http.StatusBadRequest, "SAME_ACCOUNT_TRANSFER", err.Error())
	case errors.Is(err, ledger.ErrIdempotencyKeyRequired):
		RespondWithError(c, http.StatusBadRequest, "IDEMPOTENCY_KEY_REQUIRED", err.Error())
	case errors.Is(err, ledger.ErrInvalidIdempotencyKey):
		RespondWithError(c, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", err.Error())
	case errors.Is(err, ledger.ErrIdempotencyKeyReused):
		RespondWithError(c, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED", err.Error())
	case errors.Is(err, ledger.ErrTooManyConflicts):
		RespondWithError(c, http.StatusConflict, "TOO_MANY_CONFLICTS", "Account is busy, retry the request")
	case errors.Is(err, ledger.ErrStorageUnavailable):
		RespondWithError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Ledger storage is unavailable")
	case errors.Is(err, kyc.ErrIdentityNotVerified):
		RespondForbidden(c, "Identity verification is not complete")
	case errors.Is(err, service.ErrForbidden):
		RespondForbidden(c, "")
	default:
		logger.Error("Unhandled request error", "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondInternalError(c)
	}
}
