package api_gateway

import (
	"log/slog"

	"github.com/bankfin-ledger/internal/api_gateway/handler"
	"github.com/bankfin-ledger/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// handlers groups the HTTP handlers mounted by setupRouter
type handlers struct {
	auth        *handler.AuthHandler
	accounts    *handler.AccountHandler
	transaction *handler.TransactionHandler
	kyc         *handler.KYCHandler
	admin       *handler.AdminHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	h handlers,
	verifier middleware.TokenVerifier,
	uploadDir string,
	readiness map[string]ReadinessCheck,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	requireAuth := middleware.Auth(verifier)

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.auth.Register)
			authGroup.POST("/login", h.auth.Login)
			authGroup.GET("/kyc-status", requireAuth, h.auth.KYCStatus)
		}

		// Provider push; authenticated by the shared callback secret
		v1.POST("/kyc/callback", h.kyc.Callback)

		accounts := v1.Group("/accounts", requireAuth)
		{
			accounts.POST("", h.accounts.Create)
			accounts.GET("", h.accounts.List)
			accounts.GET("/:id", h.accounts.GetByID)
			accounts.POST("/:id/close", h.accounts.Close)
			accounts.POST("/:id/deposits", h.transaction.Deposit)
			accounts.POST("/:id/withdrawals", h.transaction.Withdraw)
			accounts.GET("/:id/transactions", h.transaction.History)
		}

		v1.POST("/transfers", requireAuth, h.transaction.Transfer)
	}

	admin := r.Group("/api/admin", requireAuth, middleware.RequireAdmin())
	{
		admin.GET("/stats", h.admin.Stats)
		admin.GET("/users", h.admin.Users)
		admin.POST("/kyc/:user_id/approve", h.admin.Approve)
		admin.POST("/kyc/:user_id/reject", h.admin.Reject)
		admin.GET("/accounts/:id/audit", h.admin.AccountAudit)
		admin.GET("/accounts/:id/reconcile", h.admin.Reconcile)
	}

	// Identity documents fetched by the KYC provider
	r.Static("/uploads/kyc", uploadDir)

	// Liveness and dependency readiness for monitoring
	r.GET("/health", health)
	r.GET("/ready", ready(readiness))
}
