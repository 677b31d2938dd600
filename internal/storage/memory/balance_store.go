package memory

import (
	"context"
	"fmt"
	"sync"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/storage"
)

// BalanceStore is an in-memory implementation of storage.BalanceStore.
type BalanceStore struct {
	mu   sync.RWMutex
	data map[string]uint64 // keyed by (holder, token id)
}

// NewBalanceStore creates a new in-memory balance store.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{
		data: make(map[string]uint64),
	}
}

// balanceKey generates a unique key for a (holder, token id) pair.
func balanceKey(holder string, tokenID uint64) string {
	return fmt.Sprintf("%s|%d", domain.NormalizeAddress(holder), tokenID)
}

// Get returns the balance for (holder, tokenID). Missing rows read as zero.
func (s *BalanceStore) Get(_ context.Context, holder string, tokenID uint64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data[balanceKey(holder, tokenID)], nil
}

// Add credits amount to (holder, tokenID).
func (s *BalanceStore) Add(_ context.Context, holder string, tokenID uint64, amount uint64) error {
	if holder == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[balanceKey(holder, tokenID)] += amount
	return nil
}

// Sub debits amount from (holder, tokenID).
func (s *BalanceStore) Sub(_ context.Context, holder string, tokenID uint64, amount uint64) error {
	if holder == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey(holder, tokenID)
	held := s.data[key]
	if held < amount {
		return storage.ErrInsufficientBalance
	}

	if held == amount {
		delete(s.data, key)
	} else {
		s.data[key] = held - amount
	}
	return nil
}

// SumByToken returns the sum of all holder balances for a token id.
func (s *BalanceStore) SumByToken(_ context.Context, tokenID uint64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suffix := fmt.Sprintf("|%d", tokenID)
	var sum uint64
	for key, amount := range s.data {
		if len(key) >= len(suffix) && key[len(key)-len(suffix):] == suffix {
			sum += amount
		}
	}
	return sum, nil
}

var _ storage.BalanceStore = (*BalanceStore)(nil)
