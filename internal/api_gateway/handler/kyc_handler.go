package handler

import (
	"errors"
	"log/slog"

	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KYCSignatureHeader carries the shared secret on provider callbacks
const KYCSignatureHeader = "X-KYC-Signature"

// KYCHandler receives verification results pushed by the provider
type KYCHandler struct {
	kycService service.KYCService
	logger     *slog.Logger
}

// NewKYCHandler creates a new KYC callback handler
func NewKYCHandler(logger *slog.Logger, kycService service.KYCService) *KYCHandler {
	return &KYCHandler{
		kycService: kycService,
		logger:     logger,
	}
}

func (h *KYCHandler) Callback(c *gin.Context) {
	var result shared.VerificationResult
	if err := c.ShouldBindJSON(&result); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if result.UserID == uuid.Nil || !result.Status.Valid() {
		RespondBadRequest(c, "user_id and a valid status are required")
		return
	}

	err := h.kycService.HandleCallback(c.Request.Context(), c.GetHeader(KYCSignatureHeader), result)
	if err != nil {
		switch {
		case errors.Is(err, kyc.ErrInvalidSignature):
			RespondUnauthorized(c, "Invalid callback signature")
		case errors.Is(err, user.ErrUserNotFound{}):
			RespondNotFound(c, "User not found")
		default:
			respondLedgerError(c, h.logger, err)
		}
		return
	}

	RespondOK(c, KYCStatusResponse{UserID: result.UserID.String(), KYCStatus: string(result.Status)})
}
