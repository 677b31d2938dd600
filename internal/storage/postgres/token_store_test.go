package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/storage"
)

func testToken(id uint64) *domain.TokenRecord {
	return &domain.TokenRecord{
		ID:            id,
		Name:          "Gold Pass",
		Description:   "Season pass",
		MaxSupply:     100,
		CurrentSupply: 0,
		IsActive:      true,
		CreatedAt:     1700000000000,
	}
}

func TestTokenStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	tok := testToken(1)
	require.NoError(t, store.Insert(ctx, tok))

	got, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, got.ID)
	assert.Equal(t, tok.Name, got.Name)
	assert.Equal(t, tok.Description, got.Description)
	assert.Equal(t, tok.MaxSupply, got.MaxSupply)
	assert.Equal(t, tok.CurrentSupply, got.CurrentSupply)
	assert.True(t, got.IsActive)
	assert.Equal(t, tok.CreatedAt, got.CreatedAt)
}

func TestTokenStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	require.NoError(t, store.Insert(ctx, testToken(1)))
	err := store.Insert(ctx, testToken(1))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTokenStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewTokenStore(pool).GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_UpdateInfo(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	require.NoError(t, store.Insert(ctx, testToken(1)))
	require.NoError(t, store.UpdateInfo(ctx, 1, "Renamed", "New description"))

	got, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "New description", got.Description)
	// Supply fields untouched
	assert.Equal(t, uint64(100), got.MaxSupply)
	assert.Equal(t, uint64(0), got.CurrentSupply)

	err = store.UpdateInfo(ctx, 99, "x", "y")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_AdjustSupply(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)
	require.NoError(t, store.Insert(ctx, testToken(1)))

	// Mint within bounds
	require.NoError(t, store.AdjustSupply(ctx, 1, 60))
	got, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), got.CurrentSupply)

	// Exceeding max supply is rejected without mutation
	err = store.AdjustSupply(ctx, 1, 50)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
	got, err = store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), got.CurrentSupply)

	// Burn below zero is rejected
	err = store.AdjustSupply(ctx, 1, -61)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	// Unknown id
	err = store.AdjustSupply(ctx, 42, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	require.NoError(t, store.Insert(ctx, testToken(3)))
	require.NoError(t, store.Insert(ctx, testToken(1)))
	require.NoError(t, store.Insert(ctx, testToken(2)))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, uint64(1), list[0].ID)
	assert.Equal(t, uint64(2), list[1].ID)
	assert.Equal(t, uint64(3), list[2].ID)
}
