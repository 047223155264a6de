package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) UpdateKYCStatus(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) Search(ctx context.Context, query string, limit, offset int) ([]*user.User, int64, error) {
	args := m.Called(ctx, query, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*user.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) CountByKYCStatus(ctx context.Context, status shared.KYCStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *kyc.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*kyc.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kyc.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*kyc.Document, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kyc.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.KYCStatus, verifiedAt *time.Time) error {
	return m.Called(ctx, id, status, verifiedAt).Error(0)
}

func (m *MockDocumentRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*kyc.Document, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*kyc.Document), args.Error(1)
}

func (m *MockDocumentRepository) TouchRequested(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, tx *ledger.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockAuditRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockAuditRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuditRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

type MockResultApplier struct {
	mock.Mock
}

func (m *MockResultApplier) Apply(ctx context.Context, result shared.VerificationResult) (*user.User, error) {
	args := m.Called(ctx, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

// memDocumentStore keeps documents in memory
type memDocumentStore struct {
	saved map[uuid.UUID][]byte
	err   error
}

func (s *memDocumentStore) Save(_ context.Context, documentID uuid.UUID, _ string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.saved == nil {
		s.saved = make(map[uuid.UUID][]byte)
	}
	s.saved[documentID] = b
	return "/uploads/" + documentID.String(), nil
}

func (s *memDocumentStore) URL(path string) string {
	return "http://files.test" + path
}

type recordingRequester struct {
	docs []*kyc.Document
	err  error
}

func (r *recordingRequester) Request(_ context.Context, doc *kyc.Document, _ string) error {
	r.docs = append(r.docs, doc)
	return r.err
}

type fixedGate struct {
	status shared.KYCStatus
}

func (g fixedGate) KYCStatus(context.Context, uuid.UUID) (shared.KYCStatus, error) {
	return g.status, nil
}

type stubTokens struct{}

func (stubTokens) Issue(userID uuid.UUID, admin bool) (string, error) {
	if admin {
		return "admin-token-" + userID.String(), nil
	}
	return "token-" + userID.String(), nil
}
