package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/platform/messaging/producers"
	"github.com/bankfin-ledger/internal/processor/service"
)

// VerificationEventHandler handles incoming verification request messages from Kafka
type VerificationEventHandler struct {
	verificationService service.VerificationService
	producer            producers.DeadLetterPublisher
	logger              *slog.Logger
}

// NewVerificationEventHandler creates a new handler
func NewVerificationEventHandler(
	logger *slog.Logger,
	verificationService service.VerificationService,
	producer producers.DeadLetterPublisher,
) *VerificationEventHandler {
	return &VerificationEventHandler{
		verificationService: verificationService,
		producer:            producer,
		logger:              logger,
	}
}

// HandleMessage processes Kafka messages. Returning nil commits the offset.
func (h *VerificationEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.VerificationRequest
	if err := json.Unmarshal(value, &request); err != nil {
		return h.deadLetter(ctx, key, value, "Failed to unmarshal verification request from Kafka message", err)
	}
	if err := request.Validate(); err != nil {
		return h.deadLetter(ctx, key, value, "Incomplete verification request", err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received verification request for processing",
		"user_id", request.UserID.String(),
		"document_id", request.DocumentID.String(),
	)

	if err := h.verificationService.ProcessVerification(ctx, &request); err != nil {
		logger.Error("Failed to process verification request",
			"document_id", request.DocumentID.String(),
			"error", err,
		)
		return fmt.Errorf("processing verification of document %s failed: %w", request.DocumentID.String(), err)
	}

	return nil
}

// deadLetter parks an unprocessable message. When the DLQ is unavailable the error is
// returned so the message stays uncommitted.
func (h *VerificationEventHandler) deadLetter(ctx context.Context, key, value []byte, msg string, cause error) error {
	h.logger.Error(msg, "error", cause, "message_key", string(key))

	if h.producer != nil {
		reason := fmt.Sprintf("%s: %s", msg, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
			return nil
		}
	}
	return fmt.Errorf("unprocessable message: %w", cause)
}
