package handler

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/bankfin-ledger/internal/api_gateway/middleware"
	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/auth"
	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// maxDocumentSize caps the identity document upload
const maxDocumentSize = 10 << 20

// AuthHandler handles registration, login and KYC status requests
type AuthHandler struct {
	authService service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(logger *slog.Logger, authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register handles a multipart registration carrying the identity document
func (h *AuthHandler) Register(c *gin.Context) {
	file, err := c.FormFile("id_document")
	if err != nil {
		RespondBadRequest(c, "id_document file is required")
		return
	}
	if file.Size > maxDocumentSize {
		RespondWithError(c, http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE", "Identity document exceeds 10 MiB")
		return
	}

	contentType, _, err := mime.ParseMediaType(file.Header.Get("Content-Type"))
	if err != nil {
		contentType = ""
	}

	doc, err := file.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded document", "error", err)
		RespondBadRequest(c, "Unreadable id_document")
		return
	}
	defer doc.Close()

	res, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		FullName:      c.PostForm("full_name"),
		Email:         c.PostForm("email"),
		Password:      c.PostForm("password"),
		ContentType:   contentType,
		Document:      doc,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, kyc.ErrUnsupportedFileType):
			RespondWithError(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE", "Document must be a JPEG, PNG or PDF")
		case errors.Is(err, user.ErrEmailTaken{}):
			RespondConflict(c, "Email is already registered")
		case errors.Is(err, user.ErrEmptyFullName), errors.Is(err, user.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			RespondBadRequest(c, err.Error())
		default:
			respondLedgerError(c, h.logger, err)
		}
		return
	}

	RespondCreated(c, RegisterResponse{
		UserID:      res.User.ID.String(),
		KYCStatus:   string(res.User.KYCStatus),
		AccessToken: res.AccessToken,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			RespondUnauthorized(c, "Invalid email or password")
			return
		}
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// KYCStatus reports the authenticated caller's verification state
func (h *AuthHandler) KYCStatus(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	status, err := h.authService.KYCStatus(c.Request.Context(), caller.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound{}) {
			RespondNotFound(c, "User not found")
			return
		}
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, KYCStatusResponse{UserID: caller.UserID.String(), KYCStatus: string(status)})
}

// principal returns the authenticated caller, answering 401 when the route was not
// mounted behind the auth middleware.
func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		RespondUnauthorized(c, "")
	}
	return p, ok
}
