package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolVerificationService bounds the number of concurrent provider calls
type WorkerPoolVerificationService struct {
	baseService VerificationService
	pool        *ants.Pool
	logger      *slog.Logger
	mu          sync.Mutex
	inFlight    map[uuid.UUID]int
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolVerificationService(
	baseService VerificationService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolVerificationService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolVerificationService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		inFlight:    make(map[uuid.UUID]int),
	}, nil
}

// ProcessVerification runs the request on a pooled worker and waits for its result.
func (s *WorkerPoolVerificationService) ProcessVerification(ctx context.Context, request *shared.VerificationRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Debug("Submitting verification request to worker pool", "document_id", request.DocumentID)

	resultChan := make(chan error, 1)
	requestCopy := *request

	s.track(request.DocumentID, 1)
	err := s.pool.Submit(func() {
		defer s.track(requestCopy.DocumentID, -1)
		resultChan <- s.baseService.ProcessVerification(ctx, &requestCopy)
	})
	if err != nil {
		s.track(request.DocumentID, -1)
		logger.Error("Failed to submit verification request to worker pool",
			"document_id", request.DocumentID,
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WorkerPoolVerificationService) track(documentID uuid.UUID, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight[documentID] += delta
	if s.inFlight[documentID] <= 0 {
		delete(s.inFlight, documentID)
	}
}

// InFlight returns the number of documents currently being verified.
func (s *WorkerPoolVerificationService) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolVerificationService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolVerificationService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolVerificationService) Capacity() int {
	return s.pool.Cap()
}
