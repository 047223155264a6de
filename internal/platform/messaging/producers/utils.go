package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

// topicAdmin is the part of *kafka.Conn used to bootstrap topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// ensureTopic creates topic with the configured partitioning unless the broker already
// reports partitions for it. Partition reads are retried since a broker that has just
// started can fail them transiently.
func ensureTopic(admin topicAdmin, topic string, cfg *config.KafkaConfig, backoff time.Duration, log *slog.Logger) error {
	var (
		partitions []kafka.Partition
		err        error
	)
	for attempt := 1; attempt <= topicReadAttempts; attempt++ {
		partitions, err = admin.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic already exists", "topic", topic, "partitions", len(partitions))
			return nil
		}
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", topic, "attempt", attempt, "error", err)
		if attempt < topicReadAttempts {
			time.Sleep(backoff)
		}
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     max(cfg.NumPartitions, 1),
		ReplicationFactor: max(cfg.ReplicationFactor, 1),
	}
	log.Info("Creating Kafka topic",
		"topic", topic,
		"partitions", topicConfig.NumPartitions,
		"replication_factor", topicConfig.ReplicationFactor,
		"last_read_error", err,
	)
	if err := admin.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	return nil
}
