package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestProducer(writer KafkaWriter) *VerificationRequestProducer {
	return &VerificationRequestProducer{
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})),
		writer: writer,
		topic:  "test-kyc",
	}
}

func TestVerificationRequestProducer_PublishVerificationRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("KeyedByUser", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newTestProducer(mockWriter)

		req := &shared.VerificationRequest{
			UserID:      uuid.New(),
			DocumentID:  uuid.New(),
			DocumentURL: "http://localhost:8080/uploads/kyc/doc.png",
			Timestamp:   time.Now().UTC(),
		}

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != req.UserID.String() {
				return false
			}
			var decoded shared.VerificationRequest
			if err := json.Unmarshal(msgs[0].Value, &decoded); err != nil {
				return false
			}
			return decoded.DocumentID == req.DocumentID && decoded.DocumentURL == req.DocumentURL
		})).Return(nil).Once()

		require.NoError(t, producer.PublishVerificationRequest(ctx, req))
		mockWriter.AssertExpectations(t)
	})

	t.Run("RejectsIncompleteRequest", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newTestProducer(mockWriter)

		err := producer.PublishVerificationRequest(ctx, &shared.VerificationRequest{UserID: uuid.New()})
		assert.ErrorIs(t, err, shared.ErrInvalidVerificationRequest)
		mockWriter.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newTestProducer(mockWriter)
		writerError := errors.New("kafka write error")

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerError).Once()

		err := producer.PublishVerificationRequest(ctx, &shared.VerificationRequest{
			UserID:      uuid.New(),
			DocumentID:  uuid.New(),
			DocumentURL: "http://localhost/doc.png",
		})
		assert.ErrorIs(t, err, writerError)
		mockWriter.AssertExpectations(t)
	})
}

func TestVerificationRequestProducer_Publish_MarshalError(t *testing.T) {
	producer := newTestProducer(new(MockKafkaWriter))

	err := producer.Publish(context.Background(), "key", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal message value")
}

func TestVerificationRequestProducer_Close(t *testing.T) {
	t.Run("SuccessfulClose", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		mockWriter.On("Close").Return(nil).Once()

		require.NoError(t, newTestProducer(mockWriter).Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("CloseReturnsErrorOnWriterCloseError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		closeError := errors.New("kafka close error")
		mockWriter.On("Close").Return(closeError).Once()

		err := newTestProducer(mockWriter).Close()
		assert.ErrorIs(t, err, closeError)
		mockWriter.AssertExpectations(t)
	})
}

var _ KafkaWriter = (*MockKafkaWriter)(nil)
var _ VerificationPublisher = (*VerificationRequestProducer)(nil)
