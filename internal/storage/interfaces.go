package storage

import (
	"context"

	"solana-token-forge/internal/domain"
)

// MintRecordStore provides access to mint_records storage.
type MintRecordStore interface {
	// Insert adds a new mint record. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, r *domain.MintRecord) error

	// AttachMetadataURI sets the metadata URI once the metadata stage
	// lands. Returns ErrNotFound if the mint does not exist.
	AttachMetadataURI(ctx context.Context, mint, uri string) error

	// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.MintRecord, error)

	// GetByCreator retrieves all records for a creator, newest first.
	GetByCreator(ctx context.Context, creator string) ([]*domain.MintRecord, error)

	// GetRecent retrieves the most recent records across creators.
	GetRecent(ctx context.Context, limit int) ([]*domain.MintRecord, error)
}

// CreationAttemptStore provides access to creation_attempts telemetry.
type CreationAttemptStore interface {
	// Insert adds one attempt row. Attempts are append-only.
	Insert(ctx context.Context, a *domain.CreationAttempt) error

	// InsertBulk adds multiple attempt rows.
	InsertBulk(ctx context.Context, attempts []*domain.CreationAttempt) error

	// GetByMint retrieves all attempts for a mint, ordered by start time ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.CreationAttempt, error)

	// GetByCreator retrieves all attempts for a creator within [start, end] ms.
	GetByCreator(ctx context.Context, creator string, start, end int64) ([]*domain.CreationAttempt, error)

	// CountByOutcome returns attempt counts per outcome within [start, end] ms.
	CountByOutcome(ctx context.Context, start, end int64) (map[string]uint64, error)
}
