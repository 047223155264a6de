// Package config provides configuration structures and validation for the ledger
// gateway and the KYC processor. Values come from an optional .env file, then the
// environment, then code defaults.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration (e.g., HTTP server, databases,
// message queues) and is validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Ledger      LedgerConfig
	Auth        AuthConfig
	KYC         KYCConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	KYCTopic          string // Verification requests published at registration
	NumPartitions     int    // Number of partitions for topics
	ReplicationFactor int    // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains the KYC status cache connection settings
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KYCStatusTTL time.Duration // How long a cached KYC status is trusted
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Maximum number of retry attempts for outbox messages
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// LedgerConfig contains posting engine and account store settings
type LedgerConfig struct {
	Store              string // "postgres" or "memory"
	MaxCommitAttempts  int    // Compare-and-swap attempts before ErrTooManyConflicts
	OneAccountPerOwner bool
	DefaultCurrency    string
	HistoryPageSize    int
}

// AuthConfig contains access token settings
type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	BcryptCost     int
}

// KYCConfig contains identity provider settings
type KYCConfig struct {
	APIURL         string
	APIKey         string
	CallbackSecret string
	RequestTimeout time.Duration
	PollSchedule   string        // cron spec for re-requesting stale verifications
	StaleAfter     time.Duration // Pending documents untouched this long are re-requested
	PollBatchSize  int
	UploadDir      string
	DocumentURL    string // Base URL the provider fetches uploaded documents from
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.KYCTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_KYC_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}
	if c.Redis.KYCStatusTTL <= 0 {
		validationErrors = append(validationErrors, "REDIS_KYC_STATUS_TTL must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Ledger config
	if c.Ledger.Store != "postgres" && c.Ledger.Store != "memory" {
		validationErrors = append(validationErrors, "LEDGER_STORE must be one of postgres, memory")
	}
	if c.Ledger.MaxCommitAttempts <= 0 {
		validationErrors = append(validationErrors, "LEDGER_MAX_COMMIT_ATTEMPTS must be greater than 0")
	}
	if len(c.Ledger.DefaultCurrency) != 3 {
		validationErrors = append(validationErrors, "LEDGER_DEFAULT_CURRENCY must be a 3-letter code")
	}
	if c.Ledger.HistoryPageSize <= 0 {
		validationErrors = append(validationErrors, "LEDGER_HISTORY_PAGE_SIZE must be greater than 0")
	}

	// Validate Auth config
	if len(c.Auth.JWTSecret) < 32 {
		validationErrors = append(validationErrors, "AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		validationErrors = append(validationErrors, "AUTH_ACCESS_TOKEN_TTL must be greater than 0")
	}

	// Validate KYC config
	if c.KYC.APIURL == "" {
		validationErrors = append(validationErrors, "KYC_API_URL is required")
	}
	if c.KYC.CallbackSecret == "" {
		validationErrors = append(validationErrors, "KYC_CALLBACK_SECRET is required")
	}
	if c.KYC.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "KYC_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.KYC.PollSchedule == "" {
		validationErrors = append(validationErrors, "KYC_POLL_SCHEDULE is required")
	}
	if c.KYC.StaleAfter <= 0 {
		validationErrors = append(validationErrors, "KYC_STALE_AFTER must be greater than 0")
	}
	if c.KYC.UploadDir == "" {
		validationErrors = append(validationErrors, "KYC_UPLOAD_DIR is required")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
