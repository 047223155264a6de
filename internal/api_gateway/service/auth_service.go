package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/auth"
	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/bankfin-ledger/internal/verification"
	"github.com/google/uuid"
)

// TokenIssuer signs access tokens
type TokenIssuer interface {
	Issue(userID uuid.UUID, admin bool) (string, error)
}

// PasswordHasher hashes and checks passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// VerificationRequester asks the provider to verify a stored document
type VerificationRequester interface {
	Request(ctx context.Context, doc *kyc.Document, correlationID string) error
}

// StatusReader reads a user's KYC status
type StatusReader interface {
	KYCStatus(ctx context.Context, userID uuid.UUID) (shared.KYCStatus, error)
}

// AuthServiceImpl implements the AuthService interface
type AuthServiceImpl struct {
	users     user.Repository
	docs      kyc.Repository
	store     verification.DocumentStore
	requester VerificationRequester
	status    StatusReader
	hasher    PasswordHasher
	tokens    TokenIssuer
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	logger *slog.Logger,
	users user.Repository,
	docs kyc.Repository,
	store verification.DocumentStore,
	requester VerificationRequester,
	status StatusReader,
	hasher PasswordHasher,
	tokens TokenIssuer,
) AuthService {
	return &AuthServiceImpl{
		users:     users,
		docs:      docs,
		store:     store,
		requester: requester,
		status:    status,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a pending user, stores the identity document and requests its
// verification. A failed publish does not fail registration: the stale sweep
// re-requests the document later.
func (s *AuthServiceImpl) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if !kyc.AllowedFileTypes[in.ContentType] {
		return nil, kyc.ErrUnsupportedFileType
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u, err := user.NewUser(in.FullName, in.Email, hash, now)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("user_id", u.ID)
	if in.CorrelationID != "" {
		logger = logger.With("correlation_id", in.CorrelationID)
	}

	if _, err := s.users.GetByEmail(ctx, u.Email); err == nil {
		return nil, user.ErrEmailTaken{Email: u.Email}
	} else if !errors.Is(err, user.ErrUserNotFound{}) {
		return nil, err
	}

	doc, err := kyc.NewDocument(u.ID, "", "", in.ContentType, now)
	if err != nil {
		return nil, err
	}
	path, err := s.store.Save(ctx, doc.ID, in.ContentType, in.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to store identity document: %w", err)
	}
	doc.FilePath = path
	doc.FileName = doc.ID.String()

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to record identity document: %w", err)
	}

	if err := s.requester.Request(ctx, doc, in.CorrelationID); err != nil {
		logger.Error("Verification request not published, leaving it to the stale sweep", "document_id", doc.ID, "error", err)
	}

	token, err := s.tokens.Issue(u.ID, u.IsAdmin)
	if err != nil {
		return nil, err
	}

	logger.Info("User registered", "document_id", doc.ID)
	return &RegisterResult{User: u, AccessToken: token}, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound{}) {
			return "", auth.ErrInvalidCredentials
		}
		return "", err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		s.logger.Info("Login rejected", "user_id", u.ID)
		return "", err
	}

	return s.tokens.Issue(u.ID, u.IsAdmin)
}

func (s *AuthServiceImpl) KYCStatus(ctx context.Context, userID uuid.UUID) (shared.KYCStatus, error) {
	return s.status.KYCStatus(ctx, userID)
}
