package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bankfin-ledger/internal/domain/money"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Transaction is an immutable record of one posting against one account.
// AccountVersion and CreatedAt are assigned by the store at commit time.
type Transaction struct {
	ID                    uuid.UUID              `json:"id" bson:"transaction_id"`
	AccountID             uuid.UUID              `json:"account_id" bson:"account_id"`
	CounterpartyAccountID *uuid.UUID             `json:"counterparty_account_id,omitempty" bson:"counterparty_account_id,omitempty"`
	CorrelationID         uuid.UUID              `json:"correlation_id" bson:"correlation_id"`
	Type                  shared.TransactionType `json:"type" bson:"type"`
	Amount                int64                  `json:"amount" bson:"amount"` // Stored in cents/minor units
	Currency              string                 `json:"currency" bson:"currency"`
	BalanceAfter          int64                  `json:"balance_after" bson:"balance_after"`
	IdempotencyKey        string                 `json:"idempotency_key" bson:"idempotency_key"`
	AccountVersion        int64                  `json:"account_version" bson:"account_version"`
	CreatedAt             time.Time              `json:"created_at" bson:"created_at"`
}

// NewTransaction validates and builds an uncommitted transaction.
func NewTransaction(accountID uuid.UUID, txType shared.TransactionType, amount money.Money, idempotencyKey string, correlationID uuid.UUID) (*Transaction, error) {
	if !txType.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", txType)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", money.ErrInvalidAmount)
	}
	if idempotencyKey == "" {
		return nil, ErrIdempotencyKeyRequired
	}
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}

	return &Transaction{
		ID:             uuid.New(),
		AccountID:      accountID,
		CorrelationID:  correlationID,
		Type:           txType,
		Amount:         amount.Amount,
		Currency:       amount.Currency,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// Money returns the transaction amount as a Money value.
func (t *Transaction) Money() money.Money {
	return money.Money{Amount: t.Amount, Currency: t.Currency}
}

// SignedAmount is the amount with the sign of its effect on the balance.
func (t *Transaction) SignedAmount() int64 {
	if t.Type.IsCredit() {
		return t.Amount
	}
	return -t.Amount
}

// SameRequest reports whether t was produced by a request with these parameters, which
// separates an idempotent replay from a reused key.
func (t *Transaction) SameRequest(txType shared.TransactionType, amount money.Money, counterparty *uuid.UUID) bool {
	if t.Type != txType || t.Amount != amount.Amount || t.Currency != amount.Currency {
		return false
	}
	switch {
	case t.CounterpartyAccountID == nil && counterparty == nil:
		return true
	case t.CounterpartyAccountID == nil || counterparty == nil:
		return false
	default:
		return *t.CounterpartyAccountID == *counterparty
	}
}

// MaxIdempotencyKeyLength leaves room for the credit-leg prefix within the
// 255-character idempotency_key column.
const MaxIdempotencyKeyLength = 200

const (
	transferKeyPrefix = "transfer:"
	openingKeyPrefix  = "opening:"
)

// ValidateIdempotencyKey checks a caller-supplied key. Keys in the namespaces the
// ledger derives for itself are refused.
func ValidateIdempotencyKey(key string) error {
	if key == "" {
		return ErrIdempotencyKeyRequired
	}
	if utf8.RuneCountInString(key) > MaxIdempotencyKeyLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidIdempotencyKey, MaxIdempotencyKeyLength)
	}
	if strings.HasPrefix(key, transferKeyPrefix) || strings.HasPrefix(key, openingKeyPrefix) {
		return fmt.Errorf("%w: prefix is reserved", ErrInvalidIdempotencyKey)
	}
	return nil
}

// TransferKey derives the idempotency key stored on the credit leg of a transfer.
// It is deterministic so that two racing submissions of one transfer collide on both legs.
func TransferKey(fromAccountID uuid.UUID, idempotencyKey string) string {
	return transferKeyPrefix + fromAccountID.String() + ":" + idempotencyKey
}

// OpeningKey is the idempotency key of the deposit that records an opening balance.
func OpeningKey(accountID uuid.UUID) string {
	return openingKeyPrefix + accountID.String()
}
