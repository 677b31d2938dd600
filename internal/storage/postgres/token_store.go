package postgres

import (
	"context"
	"fmt"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token record. Returns ErrDuplicateKey if the id exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.TokenRecord) error {
	if t == nil || t.MaxSupply == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (
			token_id, name, description, max_supply, current_supply, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		int64(t.ID),
		t.Name,
		t.Description,
		int64(t.MaxSupply),
		int64(t.CurrentSupply),
		t.IsActive,
		t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByID retrieves a record by token id. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(ctx context.Context, tokenID uint64) (*domain.TokenRecord, error) {
	query := `
		SELECT token_id, name, description, max_supply, current_supply, is_active, created_at
		FROM tokens
		WHERE token_id = $1
	`

	row := s.pool.QueryRow(ctx, query, int64(tokenID))
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}
	return t, nil
}

// UpdateInfo mutates name and description only.
func (s *TokenStore) UpdateInfo(ctx context.Context, tokenID uint64, name, description string) error {
	query := `
		UPDATE tokens
		SET name = $2, description = $3
		WHERE token_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, int64(tokenID), name, description)
	if err != nil {
		return fmt.Errorf("update token info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AdjustSupply applies delta to current supply within [0, max_supply]. The
// bound checks run inside the UPDATE, so concurrent writers cannot interleave
// a partial state.
func (s *TokenStore) AdjustSupply(ctx context.Context, tokenID uint64, delta int64) error {
	query := `
		UPDATE tokens
		SET current_supply = current_supply + $2
		WHERE token_id = $1
		  AND current_supply + $2 >= 0
		  AND current_supply + $2 <= max_supply
	`

	tag, err := s.pool.Exec(ctx, query, int64(tokenID), delta)
	if err != nil {
		return fmt.Errorf("adjust supply: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish unknown id from a bound violation.
		if _, err := s.GetByID(ctx, tokenID); err != nil {
			return err
		}
		return storage.ErrInvalidInput
	}
	return nil
}

// List retrieves all records ordered by token id ASC.
func (s *TokenStore) List(ctx context.Context) ([]*domain.TokenRecord, error) {
	query := `
		SELECT token_id, name, description, max_supply, current_supply, is_active, created_at
		FROM tokens
		ORDER BY token_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenRecord
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// rowScanner abstracts pgx.Row and pgx.Rows for scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*domain.TokenRecord, error) {
	var t domain.TokenRecord
	var id, maxSupply, currentSupply int64

	err := row.Scan(&id, &t.Name, &t.Description, &maxSupply, &currentSupply, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	t.ID = uint64(id)
	t.MaxSupply = uint64(maxSupply)
	t.CurrentSupply = uint64(currentSupply)
	return &t, nil
}
