package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bankfin-ledger/internal/config"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

type VerificationRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewVerificationRequestProducer ensures the KYC topic exists and returns a synchronous
// producer, so registration fails loudly when the broker is unavailable.
func NewVerificationRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*VerificationRequestProducer, error) {
	if cfg.KYCTopic == "" {
		return nil, fmt.Errorf("kafka kyc topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for verification request producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(conn, cfg.KYCTopic, cfg, topicReadBackoff, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure kyc topic %s exists for verification request producer: %w", cfg.KYCTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.KYCTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &VerificationRequestProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.KYCTopic,
	}, nil
}

func (p *VerificationRequestProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for verification request producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message via verification request producer",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via verification request producer: %w", p.topic, err)
	}

	p.logger.Debug("Published message via verification request producer",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

// PublishVerificationRequest keys the request by user id so every request for one
// user lands on the same partition, in order.
func (p *VerificationRequestProducer) PublishVerificationRequest(ctx context.Context, req *shared.VerificationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return p.Publish(ctx, req.UserID.String(), req)
}

func (p *VerificationRequestProducer) Close() error {
	p.logger.Info("Closing verification request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
