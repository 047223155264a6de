package handler

import (
	"context"
	"log/slog"

	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/auth"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader may carry the idempotency key instead of the request body
const IdempotencyKeyHeader = "Idempotency-Key"

// TransactionHandler handles HTTP requests for balance-changing operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

func (h *TransactionHandler) Deposit(c *gin.Context) {
	h.post(c, h.transactionService.Deposit)
}

func (h *TransactionHandler) Withdraw(c *gin.Context) {
	h.post(c, h.transactionService.Withdraw)
}

type postingFunc func(ctx context.Context, caller auth.Principal, accountID uuid.UUID, amount, idempotencyKey string) (*ledger.Transaction, error)

func (h *TransactionHandler) post(c *gin.Context, apply postingFunc) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	var req PostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := apply(c.Request.Context(), caller, accountID, req.Amount, idempotencyKey(c, req.IdempotencyKey))
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// Transfer moves funds from one of the caller's accounts to any other account
func (h *TransactionHandler) Transfer(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	fromID, _ := uuid.Parse(req.FromAccountID)
	toID, _ := uuid.Parse(req.ToAccountID)

	res, err := h.transactionService.Transfer(c.Request.Context(), caller, fromID, toID, req.Amount, idempotencyKey(c, req.IdempotencyKey))
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondCreated(c, TransferResponse{
		Debit:  mapTransactionToResponse(res.Debit),
		Credit: mapTransactionToResponse(res.Credit),
	})
}

// History lists an account's transactions oldest first
func (h *TransactionHandler) History(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	var params HistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	txs, err := h.transactionService.History(c.Request.Context(), caller, accountID, params.Limit)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, TransactionListResponse{Transactions: mapTransactionsToResponse(txs)})
}

func idempotencyKey(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.GetHeader(IdempotencyKeyHeader)
}
