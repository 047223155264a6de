package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankfin-ledger/internal/domain/kyc"
	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/bankfin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const documentColumns = `id, user_id, file_name, file_path, file_type, status, uploaded_at, verified_at, last_requested_at`

// KYCDocumentRepository implements the kyc.Repository interface for PostgreSQL
type KYCDocumentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewKYCDocumentRepository(logger *slog.Logger, db persistence.Querier) *KYCDocumentRepository {
	return &KYCDocumentRepository{
		querier: db,
		logger:  logger,
	}
}

func scanDocument(row pgx.Row) (*kyc.Document, error) {
	var doc kyc.Document
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.FilePath,
		&doc.FileType,
		&doc.Status,
		&doc.UploadedAt,
		&doc.VerifiedAt,
		&doc.LastRequestedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *KYCDocumentRepository) Create(ctx context.Context, doc *kyc.Document) error {
	query := `
		INSERT INTO kyc_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.FilePath,
		doc.FileType,
		doc.Status,
		doc.UploadedAt,
		doc.VerifiedAt,
		doc.LastRequestedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create kyc document", "document_id", doc.ID.String(), "error", err)
		return fmt.Errorf("failed to create kyc document: %w", err)
	}

	return nil
}

func (r *KYCDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*kyc.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM kyc_documents WHERE id = $1`

	doc, err := scanDocument(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kyc.ErrDocumentNotFound{DocumentID: id}
		}
		return nil, fmt.Errorf("failed to get kyc document: %w", err)
	}
	return doc, nil
}

// GetLatestByUserID returns the most recently uploaded document of the user
func (r *KYCDocumentRepository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*kyc.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM kyc_documents
		WHERE user_id = $1
		ORDER BY uploaded_at DESC
		LIMIT 1
	`

	doc, err := scanDocument(r.querier.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kyc.ErrDocumentNotFound{}
		}
		return nil, fmt.Errorf("failed to get latest kyc document: %w", err)
	}
	return doc, nil
}

func (r *KYCDocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.KYCStatus, verifiedAt *time.Time) error {
	query := `
		UPDATE kyc_documents
		SET status = $1, verified_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, verifiedAt, id)
	if err != nil {
		r.logger.Error("Failed to update kyc document status", "document_id", id.String(), "error", err)
		return fmt.Errorf("failed to update kyc document status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return kyc.ErrDocumentNotFound{DocumentID: id}
	}
	return nil
}

// ListStalePending returns pending documents whose last verification request is older
// than olderThan, oldest first
func (r *KYCDocumentRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*kyc.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM kyc_documents
		WHERE status = $1 AND last_requested_at < $2
		ORDER BY last_requested_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, shared.KYCStatusPending, olderThan, limit)
	if err != nil {
		r.logger.Error("Failed to list stale kyc documents", "error", err)
		return nil, fmt.Errorf("failed to list stale kyc documents: %w", err)
	}
	defer rows.Close()

	var docs []*kyc.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kyc document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over kyc documents: %w", err)
	}
	return docs, nil
}

func (r *KYCDocumentRepository) TouchRequested(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.querier.Exec(ctx, `UPDATE kyc_documents SET last_requested_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch kyc document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return kyc.ErrDocumentNotFound{DocumentID: id}
	}
	return nil
}
