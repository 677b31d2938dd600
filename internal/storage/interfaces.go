package storage

import (
	"context"

	"erc1155-treasury-lab/internal/domain"
)

// TokenStore provides access to token record storage.
type TokenStore interface {
	// Insert adds a new token record. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, t *domain.TokenRecord) error

	// GetByID retrieves a record by token id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tokenID uint64) (*domain.TokenRecord, error)

	// UpdateInfo mutates name and description only. Returns ErrNotFound if not exists.
	UpdateInfo(ctx context.Context, tokenID uint64, name, description string) error

	// AdjustSupply applies delta to current supply. The caller is responsible
	// for the supply bounds; the store returns ErrInvalidInput if the result
	// would underflow or exceed max supply, and ErrNotFound if the id is unknown.
	AdjustSupply(ctx context.Context, tokenID uint64, delta int64) error

	// List retrieves all records ordered by token id ASC.
	List(ctx context.Context) ([]*domain.TokenRecord, error)
}

// BalanceStore provides access to holder balance storage.
type BalanceStore interface {
	// Get returns the balance for (holder, tokenID). Missing rows read as zero.
	Get(ctx context.Context, holder string, tokenID uint64) (uint64, error)

	// Add credits amount to (holder, tokenID).
	Add(ctx context.Context, holder string, tokenID uint64, amount uint64) error

	// Sub debits amount from (holder, tokenID). Returns ErrInsufficientBalance
	// if the held amount is smaller than the debit.
	Sub(ctx context.Context, holder string, tokenID uint64, amount uint64) error

	// SumByToken returns the sum of all holder balances for a token id.
	SumByToken(ctx context.Context, tokenID uint64) (uint64, error)
}

// TransferLogStore provides access to transfer event storage.
type TransferLogStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if (tx_ref, log_index) exists.
	Insert(ctx context.Context, e *domain.TransferEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.TransferEvent) error

	// GetByTokenID retrieves all events touching a token id, ordered by
	// (timestamp ASC, block ASC, log index ASC).
	GetByTokenID(ctx context.Context, tokenID uint64) ([]*domain.TransferEvent, error)

	// GetByTimeRange retrieves events within [start, end] milliseconds (inclusive),
	// same ordering as GetByTokenID.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransferEvent, error)
}
