package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/config"
	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/shared"
)

// Publisher hands verification requests to the processor
type Publisher interface {
	PublishVerificationRequest(ctx context.Context, req *shared.VerificationRequest) error
}

// Requester publishes verification requests for stored documents
type Requester struct {
	docs       kyc.Repository
	publisher  Publisher
	store      DocumentStore
	logger     *slog.Logger
	staleAfter time.Duration
	batchSize  int
	now        func() time.Time
}

func NewRequester(logger *slog.Logger, cfg *config.KYCConfig, docs kyc.Repository, publisher Publisher, store DocumentStore) *Requester {
	return &Requester{
		docs:       docs,
		publisher:  publisher,
		store:      store,
		logger:     logger,
		staleAfter: cfg.StaleAfter,
		batchSize:  cfg.PollBatchSize,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Request asks the provider, through the processor, to verify the document
func (r *Requester) Request(ctx context.Context, doc *kyc.Document, correlationID string) error {
	req := &shared.VerificationRequest{
		UserID:        doc.UserID,
		DocumentID:    doc.ID,
		DocumentURL:   r.store.URL(doc.FilePath),
		CorrelationID: correlationID,
		Timestamp:     r.now(),
	}
	if err := r.publisher.PublishVerificationRequest(ctx, req); err != nil {
		return fmt.Errorf("failed to request verification of document %s: %w", doc.ID, err)
	}
	return nil
}

// RequestStale re-publishes requests for documents the provider has not decided on
// within the stale window and returns how many were re-requested.
func (r *Requester) RequestStale(ctx context.Context) (int, error) {
	now := r.now()
	docs, err := r.docs.ListStalePending(ctx, now.Add(-r.staleAfter), r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale kyc documents: %w", err)
	}

	requested := 0
	for _, doc := range docs {
		if err := r.Request(ctx, doc, ""); err != nil {
			r.logger.Error("Failed to re-request verification", "document_id", doc.ID, "user_id", doc.UserID, "error", err)
			continue
		}
		if err := r.docs.TouchRequested(ctx, doc.ID, now); err != nil {
			r.logger.Error("Failed to record verification re-request", "document_id", doc.ID, "error", err)
			continue
		}
		requested++
	}

	if requested > 0 {
		r.logger.Info("Re-requested stale verifications", "count", requested, "stale", len(docs))
	}
	return requested, nil
}
