package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/observability"
	"solana-token-forge/internal/storage"
)

// MintRecordStore implements storage.MintRecordStore using PostgreSQL.
type MintRecordStore struct {
	pool *Pool
}

// NewMintRecordStore creates a new MintRecordStore.
func NewMintRecordStore(pool *Pool) *MintRecordStore {
	return &MintRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MintRecordStore = (*MintRecordStore)(nil)

const mintRecordColumns = `
	mint, token_account, creator, network, name, symbol, decimals, supply,
	tx_signature, explorer_url, metadata_uri,
	mint_authority_revoked, freeze_authority_revoked, created_at
`

// Insert adds a new mint record. Returns ErrDuplicateKey if the mint exists.
func (s *MintRecordStore) Insert(ctx context.Context, r *domain.MintRecord) error {
	query := `
		INSERT INTO mint_records (
			mint, token_account, creator, network, name, symbol, decimals, supply,
			tx_signature, explorer_url, metadata_uri,
			mint_authority_revoked, freeze_authority_revoked, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	started := time.Now()
	_, err := s.pool.Exec(ctx, query,
		r.Mint,
		r.TokenAccount,
		r.Creator,
		string(r.Network),
		r.Name,
		r.Symbol,
		r.Decimals,
		int64(r.Supply),
		r.TransactionSignature,
		r.ExplorerURL,
		r.MetadataURI,
		r.MintAuthorityRevoked,
		r.FreezeAuthRevoked,
		r.CreatedAt,
	)
	observability.RecordDBQuery("postgres", "insert_mint_record", time.Since(started).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert mint record: %w", err)
	}
	return nil
}

// AttachMetadataURI sets the metadata URI once the metadata stage lands.
func (s *MintRecordStore) AttachMetadataURI(ctx context.Context, mint, uri string) error {
	started := time.Now()
	tag, err := s.pool.Exec(ctx,
		`UPDATE mint_records SET metadata_uri = $2 WHERE mint = $1`, mint, uri)
	observability.RecordDBQuery("postgres", "attach_metadata_uri", time.Since(started).Seconds(), err)
	if err != nil {
		return fmt.Errorf("attach metadata uri: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
func (s *MintRecordStore) GetByMint(ctx context.Context, mint string) (*domain.MintRecord, error) {
	query := `SELECT ` + mintRecordColumns + ` FROM mint_records WHERE mint = $1`

	row := s.pool.QueryRow(ctx, query, mint)
	r, err := scanMintRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get mint record by mint: %w", err)
	}
	return r, nil
}

// GetByCreator retrieves all records for a creator, newest first.
func (s *MintRecordStore) GetByCreator(ctx context.Context, creator string) ([]*domain.MintRecord, error) {
	query := `
		SELECT ` + mintRecordColumns + `
		FROM mint_records
		WHERE creator = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, creator)
	if err != nil {
		return nil, fmt.Errorf("query mint records by creator: %w", err)
	}
	defer rows.Close()

	return scanMintRecords(rows)
}

// GetRecent retrieves the most recent records across creators.
func (s *MintRecordStore) GetRecent(ctx context.Context, limit int) ([]*domain.MintRecord, error) {
	query := `
		SELECT ` + mintRecordColumns + `
		FROM mint_records
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent mint records: %w", err)
	}
	defer rows.Close()

	return scanMintRecords(rows)
}

// scanMintRecord scans a single row into MintRecord.
func scanMintRecord(row pgx.Row) (*domain.MintRecord, error) {
	var r domain.MintRecord
	var network string
	var supply int64

	err := row.Scan(
		&r.Mint,
		&r.TokenAccount,
		&r.Creator,
		&network,
		&r.Name,
		&r.Symbol,
		&r.Decimals,
		&supply,
		&r.TransactionSignature,
		&r.ExplorerURL,
		&r.MetadataURI,
		&r.MintAuthorityRevoked,
		&r.FreezeAuthRevoked,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Network = domain.Network(network)
	r.Supply = uint64(supply)
	return &r, nil
}

// scanMintRecords scans multiple rows.
func scanMintRecords(rows pgx.Rows) ([]*domain.MintRecord, error) {
	var records []*domain.MintRecord
	for rows.Next() {
		r, err := scanMintRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mint record row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint record rows: %w", err)
	}
	return records, nil
}
