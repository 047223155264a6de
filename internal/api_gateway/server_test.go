package api_gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/bankfin-ledger/internal/auth"
	"github.com/bankfin-ledger/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubVerifier map[string]auth.Principal

func (v stubVerifier) Verify(token string) (auth.Principal, error) {
	p, ok := v[token]
	if !ok {
		return auth.Principal{}, errors.New("unknown token")
	}
	return p, nil
}

func TestRouter_AccessControl(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "test"},
		Server:      config.ServerConfig{Port: 8080},
		KYC:         config.KYCConfig{UploadDir: t.TempDir()},
	}
	verifier := stubVerifier{"customer": {UserID: uuid.New()}}
	srv := NewServer(logger, cfg, Services{}, verifier)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		wantCode int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"accounts need a token", http.MethodGet, "/api/v1/accounts", "", http.StatusUnauthorized},
		{"bad token rejected", http.MethodGet, "/api/v1/accounts", "forged", http.StatusUnauthorized},
		{"transfers need a token", http.MethodPost, "/api/v1/transfers", "", http.StatusUnauthorized},
		{"kyc status needs a token", http.MethodGet, "/api/v1/auth/kyc-status", "", http.StatusUnauthorized},
		{"admin needs a token", http.MethodGet, "/api/admin/stats", "", http.StatusUnauthorized},
		{"admin needs the admin flag", http.MethodGet, "/api/admin/stats", "customer", http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v2/accounts", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
		})
	}
}

func TestRouter_Readiness(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "test"},
		KYC:         config.KYCConfig{UploadDir: t.TempDir()},
	}
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]ReadinessCheck
		wantCode   int
		wantChecks map[string]string
	}{
		{
			name:       "all dependencies up",
			checks:     map[string]ReadinessCheck{"postgres": ok, "redis": ok},
			wantCode:   http.StatusOK,
			wantChecks: map[string]string{"postgres": "ok", "redis": "ok"},
		},
		{
			name:       "one dependency down",
			checks:     map[string]ReadinessCheck{"postgres": ok, "mongodb": down},
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"postgres": "ok", "mongodb": "connection refused"},
		},
		{
			name:       "no checks configured",
			wantCode:   http.StatusOK,
			wantChecks: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(logger, cfg, Services{Readiness: tt.checks}, stubVerifier{})

			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantCode, rr.Code)
			var body struct {
				Ready  bool              `json:"ready"`
				Checks map[string]string `json:"checks"`
			}
			assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode == http.StatusOK, body.Ready)
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}
