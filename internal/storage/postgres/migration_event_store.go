package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage"
)

// MigrationEventStore implements storage.MigrationEventStore using PostgreSQL.
type MigrationEventStore struct {
	pool *Pool
}

// NewMigrationEventStore creates a new MigrationEventStore.
func NewMigrationEventStore(pool *Pool) *MigrationEventStore {
	return &MigrationEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MigrationEventStore = (*MigrationEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if the signature exists.
func (s *MigrationEventStore) Insert(ctx context.Context, e *domain.MigrationEvent) error {
	if e == nil || e.Signature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO migration_events (
			signature, token_mint, pool, slot, block_time, value_sol, tx_url, unresolved
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		e.Signature,
		e.TokenMint,
		e.Pool,
		e.Slot,
		e.Timestamp,
		e.ValueSOL,
		e.TxURL,
		e.Unresolved,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert migration event: %w", err)
	}
	return nil
}

// GetBySignature retrieves an event by signature. Returns ErrNotFound if not exists.
func (s *MigrationEventStore) GetBySignature(ctx context.Context, signature string) (*domain.MigrationEvent, error) {
	query := `
		SELECT signature, token_mint, pool, slot, block_time, value_sol, tx_url, unresolved
		FROM migration_events
		WHERE signature = $1
	`

	row := s.pool.QueryRow(ctx, query, signature)
	e, err := scanMigrationEvent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get migration event by signature: %w", err)
	}
	return e, nil
}

// ListRecent returns up to limit events, newest first.
func (s *MigrationEventStore) ListRecent(ctx context.Context, limit int) ([]*domain.MigrationEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT signature, token_mint, pool, slot, block_time, value_sol, tx_url, unresolved
		FROM migration_events
		ORDER BY block_time DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list migration events: %w", err)
	}
	defer rows.Close()

	var events []*domain.MigrationEvent
	for rows.Next() {
		e, err := scanMigrationEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan migration event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration events: %w", err)
	}

	return events, nil
}

// scanMigrationEvent scans a single row into MigrationEvent.
func scanMigrationEvent(row pgx.Row) (*domain.MigrationEvent, error) {
	var e domain.MigrationEvent

	err := row.Scan(
		&e.Signature,
		&e.TokenMint,
		&e.Pool,
		&e.Slot,
		&e.Timestamp,
		&e.ValueSOL,
		&e.TxURL,
		&e.Unresolved,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}
