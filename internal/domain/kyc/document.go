// Package kyc holds identity documents submitted for verification and the
// errors raised when an unverified owner reaches a gated operation.
package kyc

import (
	"errors"
	"time"

	"github.com/bankfin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	ErrIdentityNotVerified = errors.New("identity is not verified")
	ErrUnsupportedFileType = errors.New("unsupported document file type")
	ErrInvalidSignature    = errors.New("invalid kyc callback signature")
)

// AllowedFileTypes lists the document content types accepted at registration
var AllowedFileTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// Document is an uploaded identity document and the state of its verification
type Document struct {
	ID         uuid.UUID        `json:"id"`
	UserID     uuid.UUID        `json:"user_id"`
	FileName   string           `json:"file_name"`
	FilePath   string           `json:"file_path"`
	FileType   string           `json:"file_type"`
	Status     shared.KYCStatus `json:"status"`
	UploadedAt time.Time        `json:"uploaded_at"`
	VerifiedAt *time.Time       `json:"verified_at,omitempty"`
	// LastRequestedAt is when a verification request was last sent to the provider
	LastRequestedAt time.Time `json:"last_requested_at"`
}

func NewDocument(userID uuid.UUID, fileName, filePath, fileType string, now time.Time) (*Document, error) {
	if !AllowedFileTypes[fileType] {
		return nil, ErrUnsupportedFileType
	}
	return &Document{
		ID:              uuid.New(),
		UserID:          userID,
		FileName:        fileName,
		FilePath:        filePath,
		FileType:        fileType,
		Status:          shared.KYCStatusPending,
		UploadedAt:      now,
		LastRequestedAt: now,
	}, nil
}

// ErrDocumentNotFound indicates missing document
type ErrDocumentNotFound struct {
	DocumentID uuid.UUID
}

func (e ErrDocumentNotFound) Error() string {
	return "kyc document not found: " + e.DocumentID.String()
}

func (e ErrDocumentNotFound) Is(target error) bool {
	_, ok := target.(ErrDocumentNotFound)
	return ok
}
