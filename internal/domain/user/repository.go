package user

import (
	"context"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines user persistence operations
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateKYCStatus(ctx context.Context, user *User) error
	Search(ctx context.Context, query string, limit, offset int) ([]*User, int64, error)
	CountByKYCStatus(ctx context.Context, status shared.KYCStatus) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ErrUserNotFound indicates missing user
type ErrUserNotFound struct {
	UserID uuid.UUID
	Email  string
}

func (e ErrUserNotFound) Error() string {
	if e.Email != "" {
		return "user not found: " + e.Email
	}
	return "user not found: " + e.UserID.String()
}

func (e ErrUserNotFound) Is(target error) bool {
	_, ok := target.(ErrUserNotFound)
	return ok
}

// ErrEmailTaken indicates email uniqueness violation
type ErrEmailTaken struct {
	Email string
}

func (e ErrEmailTaken) Error() string {
	return "email already registered: " + e.Email
}

func (e ErrEmailTaken) Is(target error) bool {
	_, ok := target.(ErrEmailTaken)
	return ok
}
