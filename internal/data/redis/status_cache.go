// Package redis caches verified identity lookups in front of PostgreSQL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "kyc:status:"

// StatusCache implements kyc.StatusCache on Redis string keys with a TTL
type StatusCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewStatusCache(logger *slog.Logger, client redis.Cmdable, ttl time.Duration) *StatusCache {
	return &StatusCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func statusKey(userID uuid.UUID) string {
	return keyPrefix + userID.String()
}

// Get reports the cached status. found is false on a cache miss or an unreadable value.
func (c *StatusCache) Get(ctx context.Context, userID uuid.UUID) (shared.KYCStatus, bool, error) {
	val, err := c.client.Get(ctx, statusKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read kyc status cache: %w", err)
	}

	status := shared.KYCStatus(val)
	if !status.Valid() {
		c.logger.Warn("Ignoring unreadable cached kyc status", "user_id", userID, "value", val)
		return "", false, nil
	}
	return status, true, nil
}

func (c *StatusCache) Set(ctx context.Context, userID uuid.UUID, status shared.KYCStatus) error {
	if err := c.client.Set(ctx, statusKey(userID), string(status), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write kyc status cache: %w", err)
	}
	return nil
}

// SetIfAbsent writes the status only when no value is cached and reports whether it did
func (c *StatusCache) SetIfAbsent(ctx context.Context, userID uuid.UUID, status shared.KYCStatus) (bool, error) {
	ok, err := c.client.SetNX(ctx, statusKey(userID), string(status), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to fill kyc status cache: %w", err)
	}
	return ok, nil
}

func (c *StatusCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, statusKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate kyc status cache: %w", err)
	}
	return nil
}
