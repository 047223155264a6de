package ledger

import (
	"bytes"
	"slices"

	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/google/uuid"
)

// Posting is one leg of an atomic commit: a compare-and-swap of the account's balance
// together with the transaction that explains it.
type Posting struct {
	AccountID       uuid.UUID
	ExpectedVersion int64
	NewBalance      int64
	Transaction     *Transaction
}

// Check validates the posting against the account's current state.
func (p Posting) Check(acc *account.Account) error {
	if acc.Version != p.ExpectedVersion {
		return account.ErrVersionConflict{AccountID: acc.ID, ExpectedVersion: p.ExpectedVersion}
	}
	if acc.IsClosed() {
		return account.ErrAccountClosed{AccountID: acc.ID}
	}
	if p.NewBalance < 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// SortPostings returns the postings in ascending account id order, the global lock
// order every store must follow. A batch touching one account twice is rejected.
func SortPostings(postings []Posting) ([]Posting, error) {
	ordered := slices.Clone(postings)
	slices.SortFunc(ordered, func(a, b Posting) int {
		return bytes.Compare(a.AccountID[:], b.AccountID[:])
	})
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].AccountID == ordered[i].AccountID {
			return nil, ErrSameAccountTransfer
		}
	}
	return ordered, nil
}

// AccountIDs lists the accounts touched by the postings, in the order given.
func AccountIDs(postings []Posting) []uuid.UUID {
	ids := make([]uuid.UUID, len(postings))
	for i, p := range postings {
		ids[i] = p.AccountID
	}
	return ids
}
