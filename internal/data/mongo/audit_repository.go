// Package mongo holds the append-only audit mirror of committed transactions.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// AuditCollectionName is the name of the audit collection in MongoDB
	AuditCollectionName = "ledger_audit"
)

// AuditRepository implements the ledger.AuditRepository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique transaction id index that makes Record
// duplicate-safe, plus the history lookup index.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(AuditCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

// Record mirrors a committed transaction. A transaction that was already recorded
// yields ErrDuplicateEntry.
func (r *AuditRepository) Record(ctx context.Context, tx *ledger.Transaction) error {
	_, err := r.db.Collection(AuditCollectionName).InsertOne(ctx, tx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrDuplicateEntry{TransactionID: tx.ID}
		}
		r.logger.Error("Failed to record audit entry",
			"transaction_id", tx.ID.String(),
			"error", err)
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

// GetByAccountID retrieves paginated audit entries for an account, newest first.
func (r *AuditRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Transaction, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "account_version", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Transaction
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}

// CountByAccountID counts the audit entries recorded for an account
func (r *AuditRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	count, err := r.db.Collection(AuditCollectionName).CountDocuments(ctx, bson.M{"account_id": accountID})
	if err != nil {
		r.logger.Error("Failed to count audit entries",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return count, nil
}

// CountSince counts audit entries for transactions created at or after since
func (r *AuditRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	filter := bson.M{"created_at": bson.M{"$gte": since}}
	count, err := r.db.Collection(AuditCollectionName).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries since %s: %w", since.Format(time.RFC3339), err)
	}
	return count, nil
}
