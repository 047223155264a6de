package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bankfin-ledger/internal/api_gateway"
	"github.com/bankfin-ledger/internal/api_gateway/service"
	"github.com/bankfin-ledger/internal/auth"
	"github.com/bankfin-ledger/internal/config"
	"github.com/bankfin-ledger/internal/data/memory"
	"github.com/bankfin-ledger/internal/data/mongo"
	"github.com/bankfin-ledger/internal/data/postgres"
	"github.com/bankfin-ledger/internal/data/redis"
	"github.com/bankfin-ledger/internal/ledger_engine"
	"github.com/bankfin-ledger/internal/logger"
	"github.com/bankfin-ledger/internal/platform/messaging/producers"
	"github.com/bankfin-ledger/internal/platform/persistence"
	"github.com/bankfin-ledger/internal/verification"
)

// ledgerStore is an engine store that can also count recent postings for admin stats
type ledgerStore interface {
	ledger_engine.Store
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

func newLedgerStore(log *slog.Logger, cfg *config.LedgerConfig, db *persistence.PostgresDB) ledgerStore {
	if cfg.Store == "memory" {
		log.Warn("Using in-memory ledger store, balances will not survive a restart")
		return memory.NewLedgerStore(log, cfg.OneAccountPerOwner)
	}
	return postgres.NewLedgerStore(log, db.Pool(), cfg.OneAccountPerOwner)
}

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedis(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Verification requests go to the KYC processor
	kafkaProducer, err := producers.NewVerificationRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize verification request producer", "error", err)
		os.Exit(1)
	}

	documentStore, err := verification.NewLocalDocumentStore(&cfg.KYC)
	if err != nil {
		log.Error("Failed to initialize document store", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(log, postgresDB.Pool())
	documentRepo := postgres.NewKYCDocumentRepository(log, postgresDB.Pool())
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	statusCache := redis.NewStatusCache(log, redisClient, cfg.Redis.KYCStatusTTL)
	store := newLedgerStore(log, &cfg.Ledger, postgresDB)

	// Initialize the ledger
	gate := verification.NewGate(log, userRepo, statusCache)
	engine := ledger_engine.NewEngine(log, &cfg.Ledger, store, gate)

	tokens := auth.NewTokenMaker(&cfg.Auth, cfg.Application.Name)
	requester := verification.NewRequester(log, &cfg.KYC, documentRepo, kafkaProducer, documentStore)
	applier := verification.NewResultApplier(log, userRepo, documentRepo, statusCache)

	// Initialize services
	services := api_gateway.Services{
		Auth: service.NewAuthService(log, userRepo, documentRepo, documentStore, requester, gate,
			auth.NewPasswordHasher(cfg.Auth.BcryptCost), tokens),
		Accounts:    service.NewAccountService(log, engine, cfg.Ledger.DefaultCurrency),
		Transaction: service.NewTransactionService(log, engine),
		KYC:         service.NewKYCService(log, applier, cfg.KYC.CallbackSecret),
		Admin:       service.NewAdminService(log, userRepo, store, auditRepo, engine),
		Readiness: map[string]api_gateway.ReadinessCheck{
			"postgres": postgresDB.Ping,
			"mongodb":  mongoDB.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	}

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, services, tokens)
	log.Info("REST server initialized", "ledger_store", cfg.Ledger.Store)

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Drain HTTP requests before closing the stores they use
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
