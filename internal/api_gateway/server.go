package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bankfin-ledger/internal/api_gateway/handler"
	"github.com/bankfin-ledger/internal/api_gateway/middleware"
	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/config"
	"github.com/gin-gonic/gin"
)

// Services are the application services the gateway exposes over HTTP
type Services struct {
	Auth        service.AuthService
	Accounts    service.AccountService
	Transaction service.TransactionService
	KYC         service.KYCService
	Admin       service.AdminService

	// Readiness checks keyed by dependency name, served on /ready
	Readiness map[string]ReadinessCheck
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services, verifier middleware.TokenVerifier) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()
	// Matches the identity document upload cap
	httpRouter.MaxMultipartMemory = 10 << 20

	setupRouter(log, httpRouter, handlers{
		auth:        handler.NewAuthHandler(log, services.Auth),
		accounts:    handler.NewAccountHandler(log, services.Accounts),
		transaction: handler.NewTransactionHandler(log, services.Transaction),
		kyc:         handler.NewKYCHandler(log, services.KYC),
		admin:       handler.NewAdminHandler(log, services.Admin, services.KYC),
	}, verifier, cfg.KYC.UploadDir, services.Readiness)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server. In-flight requests get until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
