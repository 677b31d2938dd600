package clickhouse

import (
	"context"
	"fmt"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/storage"
)

// TransferEventStore archives scanned transfer events in ClickHouse. The
// ReplacingMergeTree key (tx_ref, log_index) makes re-archiving the same scan
// idempotent, so Insert never reports duplicates.
type TransferEventStore struct {
	conn *Conn
}

// NewTransferEventStore creates a new TransferEventStore.
func NewTransferEventStore(conn *Conn) *TransferEventStore {
	return &TransferEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferLogStore = (*TransferEventStore)(nil)

// Insert adds a single event.
func (s *TransferEventStore) Insert(ctx context.Context, e *domain.TransferEvent) error {
	return s.InsertBulk(ctx, []*domain.TransferEvent{e})
}

// InsertBulk archives a batch of events.
func (s *TransferEventStore) InsertBulk(ctx context.Context, events []*domain.TransferEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfer_events (
			tx_ref, log_index, kind, block_number, timestamp_ms, operator, from_addr, to_addr, token_ids, amounts
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		if e == nil || e.TxRef == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			e.TxRef, e.LogIndex, string(e.Kind), e.BlockNumber, uint64(e.Timestamp),
			e.Operator, e.From, e.To, e.TokenIDs, e.Amounts,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTokenID retrieves all archived events touching a token id.
func (s *TransferEventStore) GetByTokenID(ctx context.Context, tokenID uint64) ([]*domain.TransferEvent, error) {
	query := `
		SELECT tx_ref, log_index, kind, block_number, timestamp_ms, operator, from_addr, to_addr, token_ids, amounts
		FROM transfer_events
		WHERE has(token_ids, ?)
		ORDER BY timestamp_ms ASC, block_number ASC, log_index ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query by token id: %w", err)
	}
	defer rows.Close()

	return scanTransferEvents(rows)
}

// GetByTimeRange retrieves archived events within [start, end] milliseconds.
func (s *TransferEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransferEvent, error) {
	query := `
		SELECT tx_ref, log_index, kind, block_number, timestamp_ms, operator, from_addr, to_addr, token_ids, amounts
		FROM transfer_events
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, block_number ASC, log_index ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTransferEvents(rows)
}

// chRows matches the driver's row iterator.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTransferEvents(rows chRows) ([]*domain.TransferEvent, error) {
	var result []*domain.TransferEvent
	for rows.Next() {
		var e domain.TransferEvent
		var kind string
		var timestamp uint64

		err := rows.Scan(&e.TxRef, &e.LogIndex, &kind, &e.BlockNumber, &timestamp,
			&e.Operator, &e.From, &e.To, &e.TokenIDs, &e.Amounts)
		if err != nil {
			return nil, fmt.Errorf("scan transfer event: %w", err)
		}

		e.Kind = domain.TransferKind(kind)
		e.Timestamp = int64(timestamp)
		result = append(result, &e)
	}
	return result, rows.Err()
}
