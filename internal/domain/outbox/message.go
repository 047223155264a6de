package outbox

import (
	"encoding/json"
	"time"

	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Message carries a committed transaction from PostgreSQL to the audit mirror.
// It is written in the same SQL transaction as the posting it describes.
type Message struct {
	ID            int64               `json:"id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	AccountID     uuid.UUID           `json:"account_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(tx *ledger.Transaction) (*Message, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		CreatedAt:     tx.CreatedAt,
	}, nil
}

// ReachedMaxAttempts reports whether one more failure exhausts the retry budget.
func (m *Message) ReachedMaxAttempts(maxAttempts int) bool {
	return m.Attempts+1 >= maxAttempts
}

// Transaction decodes the committed transaction from the payload
func (m *Message) Transaction() (*ledger.Transaction, error) {
	var tx ledger.Transaction
	if err := json.Unmarshal(m.Payload, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
