package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bankfin-ledger/internal/config"
	"github.com/bankfin-ledger/internal/data/mongo"
	"github.com/bankfin-ledger/internal/data/postgres"
	"github.com/bankfin-ledger/internal/data/redis"
	"github.com/bankfin-ledger/internal/logger"
	"github.com/bankfin-ledger/internal/platform/messaging/consumers"
	"github.com/bankfin-ledger/internal/platform/messaging/producers"
	"github.com/bankfin-ledger/internal/platform/persistence"
	"github.com/bankfin-ledger/internal/processor/consumer"
	"github.com/bankfin-ledger/internal/processor/outbox_poller"
	"github.com/bankfin-ledger/internal/processor/service"
	"github.com/bankfin-ledger/internal/verification"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting KYC Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	userRepo := postgres.NewUserRepository(log, postgresDB.Pool())
	documentRepo := postgres.NewKYCDocumentRepository(log, postgresDB.Pool())
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB.Pool())
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	statusCache := redis.NewStatusCache(log, redisClient, cfg.Redis.KYCStatusTTL)

	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure audit indexes", "error", err)
		os.Exit(1)
	}

	documentStore, err := verification.NewLocalDocumentStore(&cfg.KYC)
	if err != nil {
		log.Error("Failed to initialize document store", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// The stale sweep re-publishes onto the topic this process consumes
	requestProducer, err := producers.NewVerificationRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize verification request producer", "error", err)
		os.Exit(1)
	}

	// Initialize verification pipeline
	applier := verification.NewResultApplier(log, userRepo, documentRepo, statusCache)
	provider := verification.NewHTTPProvider(log, &cfg.KYC)
	verificationService, err := service.NewWorkerPoolVerificationService(
		service.NewVerificationService(log, provider, applier),
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize verification worker pool", "error", err)
		os.Exit(1)
	}

	verificationEventHandler := consumer.NewVerificationEventHandler(log, verificationService, dlqProducer)

	requester := verification.NewRequester(log, &cfg.KYC, documentRepo, requestProducer, documentStore)
	scheduler, err := verification.NewStaleScheduler(appCtx, log, cfg.KYC.PollSchedule, requester)
	if err != nil {
		log.Error("Failed to initialize stale verification scheduler", "error", err)
		os.Exit(1)
	}

	// Initialize outbox poller
	auditPublisher := outbox_poller.NewAuditPublisher(outboxRepo, auditRepo, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, auditPublisher, log)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.KYCTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.KYCTopic, cfg.Kafka.ConsumerGroup, verificationEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	scheduler.Start()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	scheduler.Stop()

	log.Info("Shutting down worker pool",
		"running_workers", verificationService.Running(),
		"in_flight", verificationService.InFlight(),
	)
	verificationService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = requestProducer.Close(); err != nil {
		log.Error("Error closing verification request producer", "error", err)
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("KYC Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("KYC Processor shutdown completed with errors")
	} else {
		log.Info("KYC Processor shutdown completed successfully")
	}
}
