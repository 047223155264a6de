package producers

import (
	"context"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// VerificationPublisher publishes KYC verification requests for the processor
type VerificationPublisher interface {
	PublishVerificationRequest(ctx context.Context, req *shared.VerificationRequest) error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
