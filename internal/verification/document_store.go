package verification

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bankfin-ledger/internal/config"
	"github.com/google/uuid"
)

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// DocumentStore keeps uploaded identity documents and tells the provider where to
// fetch them
type DocumentStore interface {
	Save(ctx context.Context, documentID uuid.UUID, contentType string, r io.Reader) (string, error)
	URL(path string) string
}

// LocalDocumentStore writes documents to a directory served by the gateway
type LocalDocumentStore struct {
	dir     string
	baseURL string
}

func NewLocalDocumentStore(cfg *config.KYCConfig) (*LocalDocumentStore, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", cfg.UploadDir, err)
	}
	return &LocalDocumentStore{
		dir:     cfg.UploadDir,
		baseURL: strings.TrimRight(cfg.DocumentURL, "/"),
	}, nil
}

// Save stores the document under its id. The client's file name is never used on disk.
func (s *LocalDocumentStore) Save(_ context.Context, documentID uuid.UUID, contentType string, r io.Reader) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("no extension for content type %q", contentType)
	}

	path := filepath.Join(s.dir, documentID.String()+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create document file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write document file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close document file: %w", err)
	}
	return path, nil
}

func (s *LocalDocumentStore) URL(path string) string {
	return s.baseURL + "/" + filepath.Base(path)
}

// Dir is the directory the gateway serves documents from
func (s *LocalDocumentStore) Dir() string {
	return s.dir
}
