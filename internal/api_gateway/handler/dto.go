package handler

import (
	"time"

	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/bankfin-ledger/internal/domain/money"
	"github.com/bankfin-ledger/internal/domain/user"
	"github.com/bankfin-ledger/internal/ledger_engine"
	"github.com/google/uuid"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	UserID      string `json:"user_id"`
	KYCStatus   string `json:"kyc_status"`
	AccessToken string `json:"access_token"`
}

// TokenResponse carries an access token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// KYCStatusResponse reports the caller's verification state
type KYCStatusResponse struct {
	UserID    string `json:"user_id"`
	KYCStatus string `json:"kyc_status"`
}

// CreateAccountRequest represents a request to open an account. Amounts are decimal strings.
type CreateAccountRequest struct {
	Currency       string `json:"currency" binding:"omitempty,len=3"`
	InitialDeposit string `json:"initial_deposit"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Version   int64  `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// PostingRequest represents a deposit or withdrawal request
type PostingRequest struct {
	Amount         string `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=200"`
}

// TransferRequest represents a transfer between two accounts
type TransferRequest struct {
	FromAccountID  string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID    string `json:"to_account_id" binding:"required,uuid"`
	Amount         string `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=200"`
}

// TransactionResponse represents a committed transaction in API responses
type TransactionResponse struct {
	ID                    string `json:"id"`
	AccountID             string `json:"account_id"`
	CounterpartyAccountID string `json:"counterparty_account_id,omitempty"`
	CorrelationID         string `json:"correlation_id,omitempty"`
	Type                  string `json:"type"`
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	BalanceAfter          string `json:"balance_after"`
	IdempotencyKey        string `json:"idempotency_key"`
	AccountVersion        int64  `json:"account_version"`
	CreatedAt             string `json:"created_at"`
}

// TransferResponse holds both legs of a transfer
type TransferResponse struct {
	Debit  TransactionResponse `json:"debit"`
	Credit TransactionResponse `json:"credit"`
}

// TransactionListResponse represents a list of transactions in API responses
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// UserResponse represents a user in admin responses
type UserResponse struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	KYCStatus  string `json:"kyc_status"`
	IsAdmin    bool   `json:"is_admin"`
	CreatedAt  string `json:"created_at"`
	VerifiedAt string `json:"verified_at,omitempty"`
}

// ReconciliationResponse reports whether an account's history reproduces its balance
type ReconciliationResponse struct {
	AccountID        string `json:"account_id"`
	Currency         string `json:"currency"`
	Balance          string `json:"balance"`
	ReplayedBalance  string `json:"replayed_balance"`
	TransactionCount int    `json:"transaction_count"`
	Balanced         bool   `json:"balanced"`
	FirstBrokenLink  string `json:"first_broken_link,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

// HistoryParams bounds a history listing
type HistoryParams struct {
	Limit int `form:"limit,default=100" binding:"min=1,max=1000"`
}

// UserSearchParams filters the admin user listing
type UserSearchParams struct {
	PaginationParams
	Query string `form:"q"`
}

func decimalString(amount int64, currency string) string {
	return money.Money{Amount: amount, Currency: currency}.Decimal()
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		OwnerID:   acc.OwnerID.String(),
		Balance:   acc.Money().Decimal(),
		Currency:  acc.Currency,
		Status:    string(acc.Status),
		Version:   acc.Version,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapTransactionToResponse(tx *ledger.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:             tx.ID.String(),
		AccountID:      tx.AccountID.String(),
		Type:           string(tx.Type),
		Amount:         decimalString(tx.Amount, tx.Currency),
		Currency:       tx.Currency,
		BalanceAfter:   decimalString(tx.BalanceAfter, tx.Currency),
		IdempotencyKey: tx.IdempotencyKey,
		AccountVersion: tx.AccountVersion,
		CreatedAt:      tx.CreatedAt.Format(time.RFC3339Nano),
	}
	if tx.CounterpartyAccountID != nil {
		resp.CounterpartyAccountID = tx.CounterpartyAccountID.String()
	}
	if tx.CorrelationID != uuid.Nil {
		resp.CorrelationID = tx.CorrelationID.String()
	}
	return resp
}

func mapTransactionsToResponse(txs []*ledger.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, mapTransactionToResponse(tx))
	}
	return out
}

func mapUserToResponse(u *user.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID.String(),
		FullName:  u.FullName,
		Email:     u.Email,
		KYCStatus: string(u.KYCStatus),
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	if u.VerifiedAt != nil {
		resp.VerifiedAt = u.VerifiedAt.Format(time.RFC3339)
	}
	return resp
}

func mapReconciliationToResponse(rec ledger_engine.Reconciliation) ReconciliationResponse {
	resp := ReconciliationResponse{
		AccountID:        rec.AccountID.String(),
		Currency:         rec.Currency,
		Balance:          decimalString(rec.Balance, rec.Currency),
		ReplayedBalance:  decimalString(rec.ReplayedBalance, rec.Currency),
		TransactionCount: rec.TransactionCount,
		Balanced:         rec.Balanced(),
	}
	if rec.FirstBrokenLink != nil {
		resp.FirstBrokenLink = rec.FirstBrokenLink.String()
	}
	return resp
}
