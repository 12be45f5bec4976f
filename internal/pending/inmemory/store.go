package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/pending"
)

// Store is an in-memory implementation of pending.Store.
// One mutex guards the whole map for the full duration of every call.
// Data is lost on restart.
type Store struct {
	mu     sync.Mutex
	drafts map[int64]*domain.PendingTransaction
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		drafts: make(map[int64]*domain.PendingTransaction),
	}
}

// Set implements pending.Store.
func (s *Store) Set(ctx context.Context, conversationID int64, txn *domain.PendingTransaction) error {
	if txn == nil {
		return fmt.Errorf("Set: nil transaction for conversation %d", conversationID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[conversationID] = txn.Clone()
	return nil
}

// Get implements pending.Store.
func (s *Store) Get(ctx context.Context, conversationID int64) (*domain.PendingTransaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.drafts[conversationID]
	if !ok {
		return nil, false, nil
	}
	return txn.Clone(), true, nil
}

// Clear implements pending.Store.
func (s *Store) Clear(ctx context.Context, conversationID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.drafts[conversationID]
	delete(s.drafts, conversationID)
	return ok, nil
}

// Len returns the number of conversations with a draft.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

var _ pending.Store = (*Store)(nil)
