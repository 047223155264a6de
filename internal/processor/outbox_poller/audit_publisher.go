package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/outbox"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrUndecodablePayload marks an outbox row that can never be mirrored
var ErrUndecodablePayload = errors.New("undecodable outbox payload")

// AuditPublisher mirrors outbox messages into the audit store
type AuditPublisher interface {
	PublishToAudit(ctx context.Context, message *outbox.Message) error
}

// AuditPublisherImpl implements AuditPublisher
type AuditPublisherImpl struct {
	outboxRepo outbox.Repository
	auditRepo  ledger.AuditRepository
	logger     *slog.Logger
}

// NewAuditPublisher creates a new publisher
func NewAuditPublisher(
	outboxRepo outbox.Repository,
	auditRepo ledger.AuditRepository,
	logger *slog.Logger,
) *AuditPublisherImpl {
	return &AuditPublisherImpl{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// PublishToAudit records the transaction carried by message and marks the message
// processed. A transaction already present in the mirror counts as recorded.
func (p *AuditPublisherImpl) PublishToAudit(ctx context.Context, message *outbox.Message) error {
	tx, err := message.Transaction()
	if err != nil {
		p.logger.Error("Failed to unmarshal transaction from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to mark undecodable outbox message FAILED_TO_PUBLISH", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d: %w", ErrUndecodablePayload, message.ID, err)
	}

	logger := p.logger.With("transaction_id", tx.ID, "account_id", tx.AccountID)
	if tx.CorrelationID != uuid.Nil {
		logger = logger.With("correlation_id", tx.CorrelationID)
	}

	if err := p.auditRepo.Record(ctx, tx); err != nil {
		if !errors.Is(err, ledger.ErrDuplicateEntry{}) {
			return fmt.Errorf("failed to record audit entry %s: %w", tx.ID, err)
		}
		logger.Info("Transaction already mirrored", "outbox_id", message.ID)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "outbox_id", message.ID, "error", err)
		return fmt.Errorf("audit write for %s OK, but failed to mark outbox %d as PROCESSED: %w", tx.ID, message.ID, err)
	}

	logger.Debug("Outbox message mirrored and marked PROCESSED", "outbox_id", message.ID)
	return nil
}
