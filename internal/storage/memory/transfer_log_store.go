package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/storage"
)

// TransferLogStore is an in-memory implementation of storage.TransferLogStore.
type TransferLogStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransferEvent // keyed by (tx_ref, log_index)
}

// NewTransferLogStore creates a new in-memory transfer log store.
func NewTransferLogStore() *TransferLogStore {
	return &TransferLogStore{
		data: make(map[string]*domain.TransferEvent),
	}
}

// eventKey generates a unique key for a transfer event.
func eventKey(txRef string, logIndex uint64) string {
	return fmt.Sprintf("%s|%d", txRef, logIndex)
}

// Insert adds a new event. Returns ErrDuplicateKey if (tx_ref, log_index) exists.
func (s *TransferLogStore) Insert(_ context.Context, e *domain.TransferEvent) error {
	if e == nil || e.TxRef == "" {
		return storage.ErrInvalidInput
	}

	key := eventKey(e.TxRef, e.LogIndex)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = copyEvent(e)
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *TransferLogStore) InsertBulk(_ context.Context, events []*domain.TransferEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(events))

	// First pass: check for duplicates (existing + intra-batch)
	for _, e := range events {
		if e == nil || e.TxRef == "" {
			return storage.ErrInvalidInput
		}
		key := eventKey(e.TxRef, e.LogIndex)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, e := range events {
		s.data[eventKey(e.TxRef, e.LogIndex)] = copyEvent(e)
	}

	return nil
}

// GetByTokenID retrieves all events touching a token id.
func (s *TransferLogStore) GetByTokenID(_ context.Context, tokenID uint64) ([]*domain.TransferEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferEvent
	for _, e := range s.data {
		if e.ContainsToken(tokenID) {
			result = append(result, copyEvent(e))
		}
	}

	sortEvents(result)
	return result, nil
}

// GetByTimeRange retrieves events within [start, end] milliseconds (inclusive).
func (s *TransferLogStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.TransferEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferEvent
	for _, e := range s.data {
		if e.Timestamp >= start && e.Timestamp <= end {
			result = append(result, copyEvent(e))
		}
	}

	sortEvents(result)
	return result, nil
}

// sortEvents orders events by (timestamp ASC, block ASC, log index ASC).
func sortEvents(events []*domain.TransferEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})
}

// copyEvent deep-copies an event so callers cannot mutate stored state.
func copyEvent(e *domain.TransferEvent) *domain.TransferEvent {
	c := *e
	c.TokenIDs = append([]uint64(nil), e.TokenIDs...)
	c.Amounts = append([]uint64(nil), e.Amounts...)
	return &c
}

var _ storage.TransferLogStore = (*TransferLogStore)(nil)
