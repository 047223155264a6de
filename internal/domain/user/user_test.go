package user

import (
	"testing"
	"time"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	now := time.Now().UTC()

	t.Run("Success", func(t *testing.T) {
		u, err := NewUser("  Ada Lovelace ", "Ada@Example.com", "hash", now)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", u.FullName)
		assert.Equal(t, "ada@example.com", u.Email)
		assert.Equal(t, shared.KYCStatusPending, u.KYCStatus)
		assert.False(t, u.IsAdmin)
		assert.Nil(t, u.VerifiedAt)
	})

	t.Run("EmptyName", func(t *testing.T) {
		_, err := NewUser(" ", "a@b.co", "hash", now)
		assert.ErrorIs(t, err, ErrEmptyFullName)
	})

	t.Run("BadEmail", func(t *testing.T) {
		_, err := NewUser("Ada", "not-an-email", "hash", now)
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})
}

func TestUser_ApplyKYCResult(t *testing.T) {
	u := &User{KYCStatus: shared.KYCStatusPending}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, u.ApplyKYCResult(shared.KYCStatusVerified, at))
	assert.Equal(t, shared.KYCStatusVerified, u.KYCStatus)
	require.NotNil(t, u.VerifiedAt)
	assert.Equal(t, at, *u.VerifiedAt)

	require.NoError(t, u.ApplyKYCResult(shared.KYCStatusFailed, at))
	assert.Equal(t, shared.KYCStatusFailed, u.KYCStatus)
	assert.Nil(t, u.VerifiedAt)

	assert.ErrorIs(t, u.ApplyKYCResult("maybe", at), ErrInvalidKYCStatus)
}
