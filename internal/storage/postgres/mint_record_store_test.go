package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/storage"
)

func testMintRecord(mint string) *domain.MintRecord {
	return &domain.MintRecord{
		Mint:                 mint,
		TokenAccount:         "ata-" + mint,
		Creator:              "creator-1",
		Network:              domain.NetworkDevnet,
		Name:                 "Demo Token",
		Symbol:               "DEMO",
		Decimals:             9,
		Supply:               1_000_000,
		TransactionSignature: "sig-" + mint,
		ExplorerURL:          "https://explorer.solana.com/tx/sig-" + mint + "?cluster=devnet",
		MintAuthorityRevoked: true,
		FreezeAuthRevoked:    false,
		CreatedAt:            time.Now().UnixMilli(),
	}
}

func TestMintRecordStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMintRecordStore(pool)
	ctx := context.Background()

	rec := testMintRecord("mint-1")
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Mint, got.Mint)
	assert.Equal(t, rec.TokenAccount, got.TokenAccount)
	assert.Equal(t, rec.Network, got.Network)
	assert.Equal(t, rec.Supply, got.Supply)
	assert.Equal(t, rec.MintAuthorityRevoked, got.MintAuthorityRevoked)
	assert.Nil(t, got.MetadataURI)
}

func TestMintRecordStore_DuplicateMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMintRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testMintRecord("mint-1")))
	err := store.Insert(ctx, testMintRecord("mint-1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestMintRecordStore_GetByMint_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMintRecordStore(pool)
	_, err := store.GetByMint(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMintRecordStore_AttachMetadataURI(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMintRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testMintRecord("mint-1")))
	require.NoError(t, store.AttachMetadataURI(ctx, "mint-1", "https://cdn.example/abc.json"))

	got, err := store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	require.NotNil(t, got.MetadataURI)
	assert.Equal(t, "https://cdn.example/abc.json", *got.MetadataURI)

	err = store.AttachMetadataURI(ctx, "missing", "https://cdn.example/abc.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMintRecordStore_GetByCreator(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMintRecordStore(pool)
	ctx := context.Background()

	first := testMintRecord("mint-1")
	first.CreatedAt = 1000
	second := testMintRecord("mint-2")
	second.CreatedAt = 2000
	other := testMintRecord("mint-3")
	other.Creator = "creator-2"

	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, second))
	require.NoError(t, store.Insert(ctx, other))

	records, err := store.GetByCreator(ctx, "creator-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, "mint-2", records[0].Mint)
	assert.Equal(t, "mint-1", records[1].Mint)
}

func TestMintRecordStore_GetRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMintRecordStore(pool)
	ctx := context.Background()

	for i, mint := range []string{"mint-1", "mint-2", "mint-3"} {
		rec := testMintRecord(mint)
		rec.CreatedAt = int64((i + 1) * 1000)
		require.NoError(t, store.Insert(ctx, rec))
	}

	records, err := store.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "mint-3", records[0].Mint)
	assert.Equal(t, "mint-2", records[1].Mint)
}
