package handler

import (
	"log/slog"

	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Create opens an account for the caller. Only verified identities may open accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.OpenAccount(c.Request.Context(), caller, req.Currency, req.InitialDeposit)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

func (h *AccountHandler) List(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), caller)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	out := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, mapAccountToResponse(acc))
	}
	RespondOK(c, out)
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccount(c.Request.Context(), caller, id)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Close closes a zero-balance account
func (h *AccountHandler) Close(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	acc, err := h.accountService.CloseAccount(c.Request.Context(), caller, id)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

func accountIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return uuid.Nil, false
	}
	return id, true
}
