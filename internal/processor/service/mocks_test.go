package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// MockVerificationService mocks the VerificationService interface
type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) ProcessVerification(ctx context.Context, request *shared.VerificationRequest) error {
	return m.Called(ctx, request).Error(0)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Verify(ctx context.Context, req *shared.VerificationRequest) (shared.VerificationResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(shared.VerificationResult), args.Error(1)
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
