package verification

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) UpdateKYCStatus(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepo) Search(ctx context.Context, query string, limit, offset int) ([]*user.User, int64, error) {
	args := m.Called(ctx, query, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*user.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepo) CountByKYCStatus(ctx context.Context, status shared.KYCStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, doc *kyc.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*kyc.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kyc.Document), args.Error(1)
}

func (m *MockDocumentRepo) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*kyc.Document, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kyc.Document), args.Error(1)
}

func (m *MockDocumentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.KYCStatus, verifiedAt *time.Time) error {
	return m.Called(ctx, id, status, verifiedAt).Error(0)
}

func (m *MockDocumentRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*kyc.Document, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*kyc.Document), args.Error(1)
}

func (m *MockDocumentRepo) TouchRequested(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type MockStatusCache struct {
	mock.Mock
}

func (m *MockStatusCache) Get(ctx context.Context, userID uuid.UUID) (shared.KYCStatus, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(shared.KYCStatus), args.Bool(1), args.Error(2)
}

func (m *MockStatusCache) Set(ctx context.Context, userID uuid.UUID, status shared.KYCStatus) error {
	return m.Called(ctx, userID, status).Error(0)
}

func (m *MockStatusCache) SetIfAbsent(ctx context.Context, userID uuid.UUID, status shared.KYCStatus) (bool, error) {
	args := m.Called(ctx, userID, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockStatusCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishVerificationRequest(ctx context.Context, req *shared.VerificationRequest) error {
	return m.Called(ctx, req).Error(0)
}

var (
	_ user.Repository = (*MockUserRepo)(nil)
	_ kyc.Repository  = (*MockDocumentRepo)(nil)
	_ kyc.StatusCache = (*MockStatusCache)(nil)
	_ Publisher       = (*MockPublisher)(nil)
)
