// Package memory provides an in-process account store and transaction log.
// Each account carries its own mutex; multi-account commits take those mutexes in
// ascending account id order, so opposing transfers between one pair cannot deadlock.
package memory

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bankfin-ledger/internal/domain/account"
	"github.com/bankfin-ledger/internal/domain/ledger"
	"github.com/google/uuid"
)

type idempotencyIndex struct {
	accountID uuid.UUID
	key       string
}

type accountCell struct {
	mu  sync.Mutex
	acc account.Account
}

// LedgerStore keeps accounts and their append-only transaction log in memory.
//
// Lock order: account cells (ascending id) before mu. mu is never held while
// waiting for a cell.
type LedgerStore struct {
	mu            sync.RWMutex
	cells         map[uuid.UUID]*accountCell
	byOwner       map[uuid.UUID][]uuid.UUID
	logs          map[uuid.UUID][]*ledger.Transaction
	byKey         map[idempotencyIndex]*ledger.Transaction
	byCorrelation map[uuid.UUID][]*ledger.Transaction

	oneAccountPerOwner bool
	logger             *slog.Logger
}

// NewLedgerStore creates an empty store
func NewLedgerStore(logger *slog.Logger, oneAccountPerOwner bool) *LedgerStore {
	return &LedgerStore{
		cells:              make(map[uuid.UUID]*accountCell),
		byOwner:            make(map[uuid.UUID][]uuid.UUID),
		logs:               make(map[uuid.UUID][]*ledger.Transaction),
		byKey:              make(map[idempotencyIndex]*ledger.Transaction),
		byCorrelation:      make(map[uuid.UUID][]*ledger.Transaction),
		oneAccountPerOwner: oneAccountPerOwner,
		logger:             logger,
	}
}

func (s *LedgerStore) cell(id uuid.UUID) (*accountCell, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cells[id]
	return c, ok
}

// GetAccount returns a copy of the account
func (s *LedgerStore) GetAccount(_ context.Context, id uuid.UUID) (*account.Account, error) {
	c, ok := s.cell(id)
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acc.Clone(), nil
}

// ListAccountsByOwner returns copies of the owner's accounts in creation order
func (s *LedgerStore) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	s.mu.RLock()
	ids := slices.Clone(s.byOwner[ownerID])
	s.mu.RUnlock()

	accounts := make([]*account.Account, 0, len(ids))
	for _, id := range ids {
		acc, err := s.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// CreateAccount stores the account and its optional opening deposit
func (s *LedgerStore) CreateAccount(_ context.Context, acc *account.Account, opening *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cells[acc.ID]; exists {
		return account.ErrDuplicateAccount{OwnerID: acc.OwnerID}
	}
	if s.oneAccountPerOwner && len(s.byOwner[acc.OwnerID]) > 0 {
		return account.ErrDuplicateAccount{OwnerID: acc.OwnerID}
	}

	s.cells[acc.ID] = &accountCell{acc: *acc.Clone()}
	s.byOwner[acc.OwnerID] = append(s.byOwner[acc.OwnerID], acc.ID)
	if opening != nil {
		s.appendLocked(opening)
	}
	s.logger.Debug("Account created", "account_id", acc.ID, "owner_id", acc.OwnerID)
	return nil
}

// compareAndSwap replaces the balance of a single account if its version is still
// expectedVersion. It does not append to the log; postings go through Commit.
func (s *LedgerStore) compareAndSwap(_ context.Context, id uuid.UUID, expectedVersion, newBalance int64) (*account.Account, error) {
	c, ok := s.cell(id)
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	posting := ledger.Posting{AccountID: id, ExpectedVersion: expectedVersion, NewBalance: newBalance}
	if err := posting.Check(&c.acc); err != nil {
		return nil, err
	}
	c.acc.Balance = newBalance
	c.acc.Version++
	return c.acc.Clone(), nil
}

// Commit applies the postings atomically. See ledger_engine.Store for the contract.
func (s *LedgerStore) Commit(_ context.Context, postings []ledger.Posting) error {
	ordered, err := ledger.SortPostings(postings)
	if err != nil {
		return err
	}

	cells := make([]*accountCell, len(ordered))
	for i, p := range ordered {
		c, ok := s.cell(p.AccountID)
		if !ok {
			return account.ErrAccountNotFound{AccountID: p.AccountID}
		}
		cells[i] = c
	}

	for _, c := range cells {
		c.mu.Lock()
	}
	defer func() {
		for i := len(cells) - 1; i >= 0; i-- {
			cells[i].mu.Unlock()
		}
	}()

	for i, p := range ordered {
		if err := p.Check(&cells[i].acc); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range ordered {
		if _, dup := s.byKey[idempotencyIndex{p.AccountID, p.Transaction.IdempotencyKey}]; dup {
			return ledger.ErrDuplicateIdempotencyKey{AccountID: p.AccountID, IdempotencyKey: p.Transaction.IdempotencyKey}
		}
	}

	for i, p := range ordered {
		acc := &cells[i].acc
		createdAt := p.Transaction.CreatedAt
		if createdAt.Before(acc.UpdatedAt) {
			createdAt = acc.UpdatedAt
		}

		acc.Balance = p.NewBalance
		acc.Version++
		acc.UpdatedAt = createdAt

		p.Transaction.AccountVersion = acc.Version
		p.Transaction.BalanceAfter = p.NewBalance
		p.Transaction.CreatedAt = createdAt
		s.appendLocked(p.Transaction)
	}
	return nil
}

// CloseAccount flags the account closed if its version is still expectedVersion
func (s *LedgerStore) CloseAccount(_ context.Context, id uuid.UUID, expectedVersion int64) (*account.Account, error) {
	c, ok := s.cell(id)
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.acc.Version != expectedVersion {
		return nil, account.ErrVersionConflict{AccountID: id, ExpectedVersion: expectedVersion}
	}
	if c.acc.Balance != 0 {
		return nil, account.ErrAccountNotEmpty
	}
	c.acc.Status = account.StatusClosed
	c.acc.Version++
	return c.acc.Clone(), nil
}

// FindByIdempotencyKey returns nil, nil when no transaction uses the key
func (s *LedgerStore) FindByIdempotencyKey(_ context.Context, accountID uuid.UUID, key string) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.byKey[idempotencyIndex{accountID, key}]
	if !ok {
		return nil, nil
	}
	return cloneTx(tx), nil
}

func (s *LedgerStore) FindByCorrelationID(_ context.Context, correlationID uuid.UUID) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	legs := s.byCorrelation[correlationID]
	out := make([]*ledger.Transaction, len(legs))
	for i, tx := range legs {
		out[i] = cloneTx(tx)
	}
	return out, nil
}

// ListTransactions pages through the account's log. The log is appended in commit
// order, which is ascending by both account version and created_at.
func (s *LedgerStore) ListTransactions(_ context.Context, accountID uuid.UUID, afterVersion int64, limit int) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[accountID]
	if limit <= 0 {
		limit = len(log)
	}
	start := sort.Search(len(log), func(i int) bool { return log[i].AccountVersion > afterVersion })

	out := make([]*ledger.Transaction, 0, min(limit, len(log)-start))
	for _, tx := range log[start:] {
		if len(out) == limit {
			break
		}
		out = append(out, cloneTx(tx))
	}
	return out, nil
}

// CountSince counts transactions created at or after since
func (s *LedgerStore) CountSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, log := range s.logs {
		for _, tx := range log {
			if !tx.CreatedAt.Before(since) {
				n++
			}
		}
	}
	return n, nil
}

// appendLocked requires s.mu held for writing
func (s *LedgerStore) appendLocked(tx *ledger.Transaction) {
	stored := cloneTx(tx)
	s.logs[stored.AccountID] = append(s.logs[stored.AccountID], stored)
	s.byKey[idempotencyIndex{stored.AccountID, stored.IdempotencyKey}] = stored
	if stored.CorrelationID != uuid.Nil {
		s.byCorrelation[stored.CorrelationID] = append(s.byCorrelation[stored.CorrelationID], stored)
	}
}

func cloneTx(tx *ledger.Transaction) *ledger.Transaction {
	c := *tx
	if tx.CounterpartyAccountID != nil {
		id := *tx.CounterpartyAccountID
		c.CounterpartyAccountID = &id
	}
	return &c
}
