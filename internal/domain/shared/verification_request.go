package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidVerificationRequest = errors.New("invalid verification request")
)

// VerificationRequest defines a Kafka message asking the processor to verify a KYC document
type VerificationRequest struct {
	UserID        uuid.UUID `json:"user_id"`
	DocumentID    uuid.UUID `json:"document_id"`
	DocumentURL   string    `json:"document_url"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (r *VerificationRequest) Validate() error {
	if r.UserID == uuid.Nil || r.DocumentID == uuid.Nil || r.DocumentURL == "" {
		return ErrInvalidVerificationRequest
	}
	return nil
}

// VerificationResult is the provider's answer, delivered by polling or by callback
type VerificationResult struct {
	UserID     uuid.UUID  `json:"user_id"`
	DocumentID uuid.UUID  `json:"document_id"`
	Status     KYCStatus  `json:"status"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}
