package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/bankfin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, full_name, email, password_hash, kyc_status, is_admin, created_at, verified_at`

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewUserRepository(logger *slog.Logger, db persistence.Querier) *UserRepository {
	return &UserRepository{
		querier: db,
		logger:  logger,
	}
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.KYCStatus,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create stores a new user. A second registration with the same email fails with
// user.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		u.ID,
		u.FullName,
		u.Email,
		u.PasswordHash,
		u.KYCStatus,
		u.IsAdmin,
		u.CreatedAt,
		u.VerifiedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.ErrEmailTaken{Email: u.Email}
		}
		r.logger.Error("Failed to create user", "user_id", u.ID.String(), "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound{UserID: id}
		}
		r.logger.Error("Failed to get user", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// GetByEmail retrieves a user by lower-cased email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.querier.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound{Email: email}
		}
		r.logger.Error("Failed to get user by email", "error", err)
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return u, nil
}

// UpdateKYCStatus persists the user's kyc_status and verified_at
func (r *UserRepository) UpdateKYCStatus(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET kyc_status = $1, verified_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, u.KYCStatus, u.VerifiedAt, u.ID)
	if err != nil {
		r.logger.Error("Failed to update kyc status", "user_id", u.ID.String(), "error", err)
		return fmt.Errorf("failed to update kyc status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return user.ErrUserNotFound{UserID: u.ID}
	}

	return nil
}

// Search pages through users whose name or email contains query, newest first.
// Returns the page and the total number of matches.
func (r *UserRepository) Search(ctx context.Context, query string, limit, offset int) ([]*user.User, int64, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"

	var total int64
	countQuery := `SELECT COUNT(*) FROM users WHERE full_name ILIKE $1 OR email ILIKE $1`
	if err := r.querier.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	listQuery := `
		SELECT ` + userColumns + `
		FROM users
		WHERE full_name ILIKE $1 OR email ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.querier.Query(ctx, listQuery, pattern, limit, offset)
	if err != nil {
		r.logger.Error("Failed to search users", "error", err)
		return nil, 0, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over users: %w", err)
	}

	return users, total, nil
}

func (r *UserRepository) CountByKYCStatus(ctx context.Context, status shared.KYCStatus) (int64, error) {
	var n int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE kyc_status = $1`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users by kyc status: %w", err)
	}
	return n, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
