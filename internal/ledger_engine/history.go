package ledger_engine

import (
	"context"
	"fmt"
	"iter"

	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/google/uuid"
)

// AccountHistory returns the account's transactions ordered by created_at, then account
// version. The sequence is lazy: pages are fetched from the store as the caller ranges
// over it, and ranging again starts a fresh read from the beginning.
func (e *Engine) AccountHistory(ctx context.Context, accountID uuid.UUID) iter.Seq2[*ledger.Transaction, error] {
	return func(yield func(*ledger.Transaction, error) bool) {
		if _, err := e.store.GetAccount(ctx, accountID); err != nil {
			yield(nil, err)
			return
		}

		var after int64
		for {
			page, err := e.store.ListTransactions(ctx, accountID, after, e.pageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, tx := range page {
				if !yield(tx, nil) {
					return
				}
				after = tx.AccountVersion
			}
			if len(page) < e.pageSize {
				return
			}
		}
	}
}

// Reconciliation is the result of replaying an account's history against its balance
type Reconciliation struct {
	AccountID        uuid.UUID `json:"account_id"`
	Currency         string    `json:"currency"`
	Balance          int64     `json:"balance"`
	ReplayedBalance  int64     `json:"replayed_balance"`
	TransactionCount int       `json:"transaction_count"`
	ChainValid       bool      `json:"chain_valid"`
	// FirstBrokenLink is the id of the first transaction whose balance_after does not
	// follow from its predecessor.
	FirstBrokenLink *uuid.UUID `json:"first_broken_link,omitempty"`
}

// Balanced reports whether the replayed history reproduces the stored balance.
func (r Reconciliation) Balanced() bool {
	return r.ChainValid && r.Balance == r.ReplayedBalance
}

// Reconcile sums the signed amounts of the account's history and checks that every
// balance_after follows from the one before it.
func (e *Engine) Reconcile(ctx context.Context, accountID uuid.UUID) (Reconciliation, error) {
	acc, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return Reconciliation{}, err
	}

	rec := Reconciliation{AccountID: accountID, Currency: acc.Currency, Balance: acc.Balance, ChainValid: true}
	for tx, err := range e.AccountHistory(ctx, accountID) {
		if err != nil {
			return Reconciliation{}, fmt.Errorf("failed to read history of %s: %w", accountID, err)
		}
		rec.ReplayedBalance += tx.SignedAmount()
		rec.TransactionCount++
		if rec.ChainValid && tx.BalanceAfter != rec.ReplayedBalance {
			rec.ChainValid = false
			id := tx.ID
			rec.FirstBrokenLink = &id
		}
	}

	if !rec.Balanced() {
		e.logger.Error("Account history does not reconcile", "account_id", accountID, "balance", rec.Balance, "replayed_balance", rec.ReplayedBalance)
	}
	return rec, nil
}
