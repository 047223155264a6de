package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves the back-office endpoints
type AdminHandler struct {
	adminService service.AdminService
	kycService   service.KYCService
	logger       *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, adminService service.AdminService, kycService service.KYCService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		kycService:   kycService,
		logger:       logger,
	}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, stats)
}

// Users searches users by name or email, paginated
func (h *AdminHandler) Users(c *gin.Context) {
	var params UserSearchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	users, total, err := h.adminService.SearchUsers(c.Request.Context(), params.Query, params.Page, params.PerPage)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, mapUserToResponse(u))
	}
	RespondWithPaginatedData(c, http.StatusOK, out, params.Page, params.PerPage, int(total))
}

func (h *AdminHandler) Approve(c *gin.Context) {
	h.decide(c, true)
}

func (h *AdminHandler) Reject(c *gin.Context) {
	h.decide(c, false)
}

func (h *AdminHandler) decide(c *gin.Context, approve bool) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	u, err := h.kycService.Decide(c.Request.Context(), userID, approve)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound{}) {
			RespondNotFound(c, "User not found")
			return
		}
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, mapUserToResponse(u))
}

// AccountAudit lists the audit mirror of an account, newest first
func (h *AdminHandler) AccountAudit(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	entries, total, err := h.adminService.AccountAudit(c.Request.Context(), accountID, params.Page, params.PerPage)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapTransactionsToResponse(entries), params.Page, params.PerPage, int(total))
}

func (h *AdminHandler) Reconcile(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	rec, err := h.adminService.Reconcile(c.Request.Context(), accountID)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	if !rec.Balanced() {
		h.logger.Warn("Account history does not reproduce its balance",
			"account_id", accountID,
			"balance", rec.Balance,
			"replayed_balance", rec.ReplayedBalance)
	}
	RespondOK(c, mapReconciliationToResponse(rec))
}
