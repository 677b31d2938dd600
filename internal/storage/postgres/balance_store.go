package postgres

import (
	"context"
	"fmt"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/storage"
)

// BalanceStore implements storage.BalanceStore using PostgreSQL.
type BalanceStore struct {
	pool *Pool
}

// NewBalanceStore creates a new BalanceStore.
func NewBalanceStore(pool *Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BalanceStore = (*BalanceStore)(nil)

// Get returns the balance for (holder, tokenID). Missing rows read as zero.
func (s *BalanceStore) Get(ctx context.Context, holder string, tokenID uint64) (uint64, error) {
	query := `
		SELECT amount
		FROM balances
		WHERE holder = $1 AND token_id = $2
	`

	var amount int64
	err := s.pool.QueryRow(ctx, query, domain.NormalizeAddress(holder), int64(tokenID)).Scan(&amount)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return uint64(amount), nil
}

// Add credits amount to (holder, tokenID).
func (s *BalanceStore) Add(ctx context.Context, holder string, tokenID uint64, amount uint64) error {
	if holder == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO balances (holder, token_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (holder, token_id)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount
	`

	_, err := s.pool.Exec(ctx, query, domain.NormalizeAddress(holder), int64(tokenID), int64(amount))
	if err != nil {
		return fmt.Errorf("add balance: %w", err)
	}
	return nil
}

// Sub debits amount from (holder, tokenID). The balance check runs inside the
// UPDATE so a concurrent debit cannot push the row negative.
func (s *BalanceStore) Sub(ctx context.Context, holder string, tokenID uint64, amount uint64) error {
	if holder == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE balances
		SET amount = amount - $3
		WHERE holder = $1 AND token_id = $2 AND amount >= $3
	`

	tag, err := s.pool.Exec(ctx, query, domain.NormalizeAddress(holder), int64(tokenID), int64(amount))
	if err != nil {
		return fmt.Errorf("sub balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrInsufficientBalance
	}
	return nil
}

// SumByToken returns the sum of all holder balances for a token id.
func (s *BalanceStore) SumByToken(ctx context.Context, tokenID uint64) (uint64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM balances
		WHERE token_id = $1
	`

	var sum int64
	if err := s.pool.QueryRow(ctx, query, int64(tokenID)).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum balances: %w", err)
	}
	return uint64(sum), nil
}
