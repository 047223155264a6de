package outbox

import (
	"context"
	"fmt"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

// Repository stores outbox rows written in the same commit as ledger transactions.
//
// ClaimPending hands each PENDING row to one caller at a time: a claimed row is hidden
// from other pollers until its lease runs out or UpdateStatus/IncrementAttempts
// releases it.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	ClaimPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound is returned when an update targets a row that does not exist
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return fmt.Sprintf("outbox message %d not found", e.ID)
}
