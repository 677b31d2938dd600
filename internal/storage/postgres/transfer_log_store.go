package postgres

import (
	"context"
	"fmt"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/storage"
)

// TransferLogStore implements storage.TransferLogStore using PostgreSQL.
type TransferLogStore struct {
	pool *Pool
}

// NewTransferLogStore creates a new TransferLogStore.
func NewTransferLogStore(pool *Pool) *TransferLogStore {
	return &TransferLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferLogStore = (*TransferLogStore)(nil)

const insertTransferQuery = `
	INSERT INTO transfer_events (
		tx_ref, log_index, kind, block_number, timestamp_ms, operator, from_addr, to_addr, token_ids, amounts
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Insert adds a new event. Returns ErrDuplicateKey if (tx_ref, log_index) exists.
func (s *TransferLogStore) Insert(ctx context.Context, e *domain.TransferEvent) error {
	if e == nil || e.TxRef == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTransferQuery, transferArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *TransferLogStore) InsertBulk(ctx context.Context, events []*domain.TransferEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if e == nil || e.TxRef == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertTransferQuery, transferArgs(e)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transfer event in bulk: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByTokenID retrieves all events touching a token id.
func (s *TransferLogStore) GetByTokenID(ctx context.Context, tokenID uint64) ([]*domain.TransferEvent, error) {
	query := `
		SELECT tx_ref, log_index, kind, block_number, timestamp_ms, operator, from_addr, to_addr, token_ids, amounts
		FROM transfer_events
		WHERE $1 = ANY(token_ids)
		ORDER BY timestamp_ms ASC, block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, int64(tokenID))
	if err != nil {
		return nil, fmt.Errorf("get events by token id: %w", err)
	}
	defer rows.Close()

	return scanTransferEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] milliseconds (inclusive).
func (s *TransferLogStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransferEvent, error) {
	query := `
		SELECT tx_ref, log_index, kind, block_number, timestamp_ms, operator, from_addr, to_addr, token_ids, amounts
		FROM transfer_events
		WHERE timestamp_ms >= $1 AND timestamp_ms <= $2
		ORDER BY timestamp_ms ASC, block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get events by time range: %w", err)
	}
	defer rows.Close()

	return scanTransferEvents(rows)
}

// transferArgs flattens an event into insert arguments.
func transferArgs(e *domain.TransferEvent) []any {
	ids := make([]int64, len(e.TokenIDs))
	for i, id := range e.TokenIDs {
		ids[i] = int64(id)
	}
	amounts := make([]int64, len(e.Amounts))
	for i, a := range e.Amounts {
		amounts[i] = int64(a)
	}

	return []any{
		e.TxRef,
		int64(e.LogIndex),
		string(e.Kind),
		int64(e.BlockNumber),
		e.Timestamp,
		e.Operator,
		e.From,
		e.To,
		ids,
		amounts,
	}
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanTransferEvents reads all rows into domain events.
func scanTransferEvents(rows pgxRows) ([]*domain.TransferEvent, error) {
	var result []*domain.TransferEvent
	for rows.Next() {
		var e domain.TransferEvent
		var kind string
		var logIndex, blockNumber int64
		var ids, amounts []int64

		err := rows.Scan(&e.TxRef, &logIndex, &kind, &blockNumber, &e.Timestamp,
			&e.Operator, &e.From, &e.To, &ids, &amounts)
		if err != nil {
			return nil, fmt.Errorf("scan transfer event: %w", err)
		}

		e.Kind = domain.TransferKind(kind)
		e.LogIndex = uint64(logIndex)
		e.BlockNumber = uint64(blockNumber)
		e.TokenIDs = make([]uint64, len(ids))
		for i, id := range ids {
			e.TokenIDs[i] = uint64(id)
		}
		e.Amounts = make([]uint64, len(amounts))
		for i, a := range amounts {
			e.Amounts[i] = uint64(a)
		}

		result = append(result, &e)
	}
	return result, rows.Err()
}
