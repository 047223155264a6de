package postgres

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bankfin-ledger/internal/domain/outbox"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const defaultClaimLease = time.Minute

// OutboxRepository stores the rows that mirror committed transactions to the audit store
type OutboxRepository struct {
	querier    persistence.Querier
	logger     *slog.Logger
	claimLease time.Duration
	now        func() time.Time
}

func NewOutboxRepository(logger *slog.Logger, db persistence.Querier) *OutboxRepository {
	return &OutboxRepository{
		querier:    db,
		logger:     logger,
		claimLease: defaultClaimLease,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithTx wraps the repository with a transaction so the message is written
// atomically with the posting it describes.
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier:    tx,
		logger:     r.logger,
		claimLease: r.claimLease,
		now:        r.now,
	}
}

// Create stores a new outbox message in pending status
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `
		INSERT INTO ledger_outbox (transaction_id, account_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.TransactionID,
		message.AccountID,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)

	if err != nil {
		r.logger.Error("Failed to create outbox message",
			"transaction_id", message.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	return nil
}

// ClaimPending claims up to limit pending messages for claimLease, oldest first. A
// claimed message is invisible to other pollers until its lease runs out, so a
// processor that dies mid-batch only delays its rows.
func (r *OutboxRepository) ClaimPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `
		WITH claimable AS (
			SELECT id FROM ledger_outbox
			WHERE status = $1 AND (claimed_until IS NULL OR claimed_until < $2)
			ORDER BY created_at ASC, id ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		UPDATE ledger_outbox o SET claimed_until = $4
		FROM claimable
		WHERE o.id = claimable.id
		RETURNING o.id, o.transaction_id, o.account_id, o.payload, o.status, o.attempts, o.created_at, o.last_attempt_at
	`

	now := r.now()
	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, now, limit, now.Add(r.claimLease))
	if err != nil {
		r.logger.Error("Failed to claim pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to claim pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*outbox.Message
	for rows.Next() {
		var message outbox.Message
		err := rows.Scan(
			&message.ID,
			&message.TransactionID,
			&message.AccountID,
			&message.Payload,
			&message.Status,
			&message.Attempts,
			&message.CreatedAt,
			&message.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan outbox message", "error", err)
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over outbox messages", "error", err)
		return nil, fmt.Errorf("error iterating over outbox messages: %w", err)
	}

	// UPDATE ... RETURNING does not keep the CTE's order
	slices.SortFunc(messages, func(a, b *outbox.Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return messages, nil
}

// UpdateStatus updates the message status and last attempt timestamp.
// Returns ErrMessageNotFound if the message doesn't exist.
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	query := `
		UPDATE ledger_outbox
		SET status = $1, last_attempt_at = $2, claimed_until = NULL
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, r.now(), id)
	if err != nil {
		r.logger.Error("Failed to update outbox message status",
			"id", id,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update outbox message status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}

	return nil
}

// IncrementAttempts bumps the retry counter after a failed mirror write
func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE ledger_outbox
		SET attempts = attempts + 1, last_attempt_at = $1, claimed_until = NULL
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, r.now(), id)
	if err != nil {
		r.logger.Error("Failed to increment outbox message attempts",
			"id", id,
			"error", err,
		)
		return fmt.Errorf("failed to increment outbox message attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}

	return nil
}
