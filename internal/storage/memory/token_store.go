package memory

import (
	"context"
	"sort"
	"sync"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[uint64]*domain.TokenRecord
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[uint64]*domain.TokenRecord),
	}
}

// Insert adds a new token record. Returns ErrDuplicateKey if the id exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.TokenRecord) error {
	if t == nil || t.MaxSupply == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.ID] = &copy
	return nil
}

// GetByID retrieves a record by token id. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(_ context.Context, tokenID uint64) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[tokenID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// UpdateInfo mutates name and description only.
func (s *TokenStore) UpdateInfo(_ context.Context, tokenID uint64, name, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[tokenID]
	if !ok {
		return storage.ErrNotFound
	}

	t.Name = name
	t.Description = description
	return nil
}

// AdjustSupply applies delta to current supply within [0, MaxSupply].
func (s *TokenStore) AdjustSupply(_ context.Context, tokenID uint64, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[tokenID]
	if !ok {
		return storage.ErrNotFound
	}

	if delta < 0 {
		dec := uint64(-delta)
		if dec > t.CurrentSupply {
			return storage.ErrInvalidInput
		}
		t.CurrentSupply -= dec
		return nil
	}

	inc := uint64(delta)
	if t.CurrentSupply+inc > t.MaxSupply {
		return storage.ErrInvalidInput
	}
	t.CurrentSupply += inc
	return nil
}

// List retrieves all records ordered by token id ASC.
func (s *TokenStore) List(_ context.Context) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TokenRecord, 0, len(s.data))
	for _, t := range s.data {
		copy := *t
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
