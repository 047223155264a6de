package account

import (
	"errors"
	"time"

	"github.com/bankfin-ledger/internal/domain/money"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrAccountNotEmpty = errors.New("account balance must be zero before closing")
	ErrInvalidOwner    = errors.New("owner id cannot be empty")
)

// Status is the lifecycle flag of an account. Accounts are never deleted.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Account represents a bank account owned by a verified user
type Account struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Balance   int64     `json:"balance"` // Stored in cents/minor units
	Currency  string    `json:"currency"`
	Status    Status    `json:"status"`
	Version   int64     `json:"version"` // Optimistic concurrency token
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount builds an active, zero-balance account at version 1.
// Opening balances are posted as a deposit by the store that persists the account.
func NewAccount(ownerID uuid.UUID, currency string, now time.Time) (*Account, error) {
	if ownerID == uuid.Nil {
		return nil, ErrInvalidOwner
	}
	cur, err := money.NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	return &Account{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Currency:  cur,
		Status:    StatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Money returns the current balance as a Money value.
func (a *Account) Money() money.Money {
	return money.Money{Amount: a.Balance, Currency: a.Currency}
}

func (a *Account) IsClosed() bool {
	return a.Status == StatusClosed
}

// Clone returns a copy that callers may hold without sharing store state.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
