package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	ErrEmptyFullName    = errors.New("full name cannot be empty")
	ErrInvalidEmail     = errors.New("email address is invalid")
	ErrInvalidKYCStatus = errors.New("invalid kyc status")
)

// User is a registered customer. KYCStatus is written only by verification results.
type User struct {
	ID           uuid.UUID        `json:"id"`
	FullName     string           `json:"full_name"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"`
	KYCStatus    shared.KYCStatus `json:"kyc_status"`
	IsAdmin      bool             `json:"is_admin"`
	CreatedAt    time.Time        `json:"created_at"`
	VerifiedAt   *time.Time       `json:"verified_at,omitempty"`
}

// NewUser creates a user awaiting identity verification
func NewUser(fullName, email, passwordHash string, now time.Time) (*User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrEmptyFullName
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, ErrInvalidEmail
	}

	return &User{
		ID:           uuid.New(),
		FullName:     fullName,
		Email:        strings.ToLower(addr.Address),
		PasswordHash: passwordHash,
		KYCStatus:    shared.KYCStatusPending,
		CreatedAt:    now,
	}, nil
}

// ApplyKYCResult moves the user to the provider's verdict.
func (u *User) ApplyKYCResult(status shared.KYCStatus, at time.Time) error {
	if !status.Valid() {
		return ErrInvalidKYCStatus
	}
	u.KYCStatus = status
	if status == shared.KYCStatusVerified {
		u.VerifiedAt = &at
	} else {
		u.VerifiedAt = nil
	}
	return nil
}
