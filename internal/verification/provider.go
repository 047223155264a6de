package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bankfin-ledger/internal/config"
	"github.com/bankfin-ledger/internal/domain/shared"
)

// ErrProviderUnavailable marks a verification call that produced no verdict and may
// be retried later.
var ErrProviderUnavailable = errors.New("kyc provider unavailable")

// Provider submits a document to the identity provider and returns its verdict
type Provider interface {
	Verify(ctx context.Context, req *shared.VerificationRequest) (shared.VerificationResult, error)
}

type providerRequest struct {
	UserID      string `json:"user_id"`
	DocumentID  string `json:"document_id"`
	DocumentURL string `json:"document_url"`
}

type providerResponse struct {
	Status     string     `json:"status"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// HTTPProvider calls the provider's verify endpoint with a bearer API key
type HTTPProvider struct {
	url    string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

func NewHTTPProvider(logger *slog.Logger, cfg *config.KYCConfig) *HTTPProvider {
	return &HTTPProvider{
		url:    cfg.APIURL,
		apiKey: cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger,
	}
}

// Verify maps the provider's answer onto a result. A 2xx "pending" answer yields a
// pending result, any other 2xx or 4xx answer yields verified or failed, and
// transport errors, 429 and 5xx yield ErrProviderUnavailable.
func (p *HTTPProvider) Verify(ctx context.Context, req *shared.VerificationRequest) (shared.VerificationResult, error) {
	result := shared.VerificationResult{UserID: req.UserID, DocumentID: req.DocumentID}

	body, err := json.Marshal(providerRequest{
		UserID:      req.UserID.String(),
		DocumentID:  req.DocumentID.String(),
		DocumentURL: req.DocumentURL,
	})
	if err != nil {
		return result, fmt.Errorf("failed to encode verification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("failed to create verification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return result, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		p.logger.Warn("KYC provider rejected document", "user_id", req.UserID, "document_id", req.DocumentID, "status_code", resp.StatusCode)
		result.Status = shared.KYCStatusFailed
		return result, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return result, fmt.Errorf("%w: failed to read response: %w", ErrProviderUnavailable, err)
	}

	var decoded providerResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		p.logger.Warn("Undecodable KYC provider response", "user_id", req.UserID, "error", err)
		result.Status = shared.KYCStatusFailed
		return result, nil
	}

	switch shared.KYCStatus(decoded.Status) {
	case shared.KYCStatusVerified:
		result.Status = shared.KYCStatusVerified
		result.VerifiedAt = decoded.VerifiedAt
	case shared.KYCStatusPending:
		result.Status = shared.KYCStatusPending
	default:
		result.Status = shared.KYCStatusFailed
	}
	return result, nil
}
