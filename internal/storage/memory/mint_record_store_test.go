package memory

import (
	"context"
	"testing"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/storage"
)

func record(mint, creator string, createdAt int64) *domain.MintRecord {
	return &domain.MintRecord{
		Mint:      mint,
		Creator:   creator,
		Network:   domain.NetworkDevnet,
		Name:      "Demo",
		Symbol:    "DEMO",
		Decimals:  9,
		Supply:    1000,
		CreatedAt: createdAt,
	}
}

func TestMintRecordStore_InsertAndGet(t *testing.T) {
	store := NewMintRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, record("mint-1", "c1", 1000)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetByMint(ctx, "mint-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Mint != "mint-1" {
		t.Errorf("unexpected mint %s", got.Mint)
	}

	if err := store.Insert(ctx, record("mint-1", "c1", 1000)); err != storage.ErrDuplicateKey {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByMint(ctx, "missing"); err != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Insert(ctx, &domain.MintRecord{}); err != storage.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMintRecordStore_ReturnsCopies(t *testing.T) {
	store := NewMintRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, record("mint-1", "c1", 1000)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, _ := store.GetByMint(ctx, "mint-1")
	got.Name = "mutated"

	again, _ := store.GetByMint(ctx, "mint-1")
	if again.Name != "Demo" {
		t.Error("store must not share internal state with callers")
	}
}

func TestMintRecordStore_AttachMetadataURI(t *testing.T) {
	store := NewMintRecordStore()
	ctx := context.Background()

	if err := store.AttachMetadataURI(ctx, "missing", "uri"); err != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	store.Insert(ctx, record("mint-1", "c1", 1000))
	if err := store.AttachMetadataURI(ctx, "mint-1", "https://cdn/x.json"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	got, _ := store.GetByMint(ctx, "mint-1")
	if got.MetadataURI == nil || *got.MetadataURI != "https://cdn/x.json" {
		t.Error("expected metadata uri set")
	}
}

func TestMintRecordStore_GetByCreatorOrder(t *testing.T) {
	store := NewMintRecordStore()
	ctx := context.Background()

	store.Insert(ctx, record("mint-1", "c1", 1000))
	store.Insert(ctx, record("mint-2", "c1", 3000))
	store.Insert(ctx, record("mint-3", "c2", 2000))

	records, err := store.GetByCreator(ctx, "c1")
	if err != nil {
		t.Fatalf("get by creator: %v", err)
	}
	if len(records) != 2 || records[0].Mint != "mint-2" || records[1].Mint != "mint-1" {
		t.Errorf("expected newest-first [mint-2 mint-1], got %v", records)
	}
}

func TestMintRecordStore_GetRecentLimit(t *testing.T) {
	store := NewMintRecordStore()
	ctx := context.Background()

	store.Insert(ctx, record("mint-1", "c1", 1000))
	store.Insert(ctx, record("mint-2", "c1", 2000))
	store.Insert(ctx, record("mint-3", "c2", 3000))

	records, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(records) != 2 || records[0].Mint != "mint-3" {
		t.Errorf("unexpected recent records %v", records)
	}
}
