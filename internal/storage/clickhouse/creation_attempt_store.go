package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/observability"
	"solana-token-forge/internal/storage"
)

// CreationAttemptStore implements storage.CreationAttemptStore using
// ClickHouse. Attempt telemetry is append-only and high-volume, which
// is what the MergeTree engine is for.
type CreationAttemptStore struct {
	conn *Conn
}

// NewCreationAttemptStore creates a new CreationAttemptStore.
func NewCreationAttemptStore(conn *Conn) *CreationAttemptStore {
	return &CreationAttemptStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CreationAttemptStore = (*CreationAttemptStore)(nil)

// Insert adds one attempt row.
func (s *CreationAttemptStore) Insert(ctx context.Context, a *domain.CreationAttempt) error {
	return s.InsertBulk(ctx, []*domain.CreationAttempt{a})
}

// InsertBulk adds multiple attempt rows in one batch.
func (s *CreationAttemptStore) InsertBulk(ctx context.Context, attempts []*domain.CreationAttempt) (err error) {
	if len(attempts) == 0 {
		return nil
	}
	started := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_attempts", time.Since(started).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO creation_attempts (
			attempt_id, mint, creator, network, attempt_number, endpoint,
			groups_confirmed, outcome, error_kind, error_detail,
			duration_ms, started_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range attempts {
		err = batch.Append(
			a.AttemptID, a.Mint, a.Creator, string(a.Network),
			uint8(a.AttemptNumber), a.Endpoint, uint8(a.GroupsConfirmed),
			a.Outcome, a.ErrorKind, a.ErrorDetail,
			uint64(a.DurationMS), uint64(a.StartedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

const creationAttemptColumns = `
	attempt_id, mint, creator, network, attempt_number, endpoint,
	groups_confirmed, outcome, error_kind, error_detail,
	duration_ms, started_at
`

// GetByMint retrieves all attempts for a mint, ordered by start time ASC.
func (s *CreationAttemptStore) GetByMint(ctx context.Context, mint string) ([]*domain.CreationAttempt, error) {
	query := `
		SELECT ` + creationAttemptColumns + `
		FROM creation_attempts
		WHERE mint = ?
		ORDER BY started_at ASC, attempt_number ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query attempts by mint: %w", err)
	}
	defer rows.Close()

	return scanCreationAttempts(rows)
}

// GetByCreator retrieves all attempts for a creator within [start, end] ms.
func (s *CreationAttemptStore) GetByCreator(ctx context.Context, creator string, start, end int64) ([]*domain.CreationAttempt, error) {
	query := `
		SELECT ` + creationAttemptColumns + `
		FROM creation_attempts
		WHERE creator = ? AND started_at >= ? AND started_at <= ?
		ORDER BY started_at ASC
	`

	rows, err := s.conn.Query(ctx, query, creator, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query attempts by creator: %w", err)
	}
	defer rows.Close()

	return scanCreationAttempts(rows)
}

// CountByOutcome returns attempt counts per outcome within [start, end] ms.
func (s *CreationAttemptStore) CountByOutcome(ctx context.Context, start, end int64) (map[string]uint64, error) {
	query := `
		SELECT outcome, count(*)
		FROM creation_attempts
		WHERE started_at >= ? AND started_at <= ?
		GROUP BY outcome
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("count attempts by outcome: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var outcome string
		var count uint64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[outcome] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}
	return counts, nil
}

// scanCreationAttempts scans multiple rows.
func scanCreationAttempts(rows chRows) ([]*domain.CreationAttempt, error) {
	var attempts []*domain.CreationAttempt

	for rows.Next() {
		var a domain.CreationAttempt
		var network string
		var attemptNumber, groupsConfirmed uint8
		var durationMs, startedAt uint64

		err := rows.Scan(
			&a.AttemptID, &a.Mint, &a.Creator, &network,
			&attemptNumber, &a.Endpoint, &groupsConfirmed,
			&a.Outcome, &a.ErrorKind, &a.ErrorDetail,
			&durationMs, &startedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan creation attempt row: %w", err)
		}

		a.Network = domain.Network(network)
		a.AttemptNumber = int(attemptNumber)
		a.GroupsConfirmed = int(groupsConfirmed)
		a.DurationMS = int64(durationMs)
		a.StartedAt = int64(startedAt)
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creation attempt rows: %w", err)
	}
	return attempts, nil
}
