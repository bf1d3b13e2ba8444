package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage"
)

// MigrationEventStore implements storage.MigrationEventStore on ClickHouse.
// The table is a ReplacingMergeTree keyed by signature, so duplicate
// inserts are detected with an explicit existence check rather than a
// constraint violation.
type MigrationEventStore struct {
	conn *Conn
}

// NewMigrationEventStore creates a new MigrationEventStore.
func NewMigrationEventStore(conn *Conn) *MigrationEventStore {
	return &MigrationEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MigrationEventStore = (*MigrationEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if the signature exists.
func (s *MigrationEventStore) Insert(ctx context.Context, e *domain.MigrationEvent) error {
	if e == nil || e.Signature == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, e.Signature)
	if err != nil {
		return err
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO migration_events (
			signature, token_mint, pool, slot, block_time, value_sol, tx_url, unresolved
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	unresolved := uint8(0)
	if e.Unresolved {
		unresolved = 1
	}

	err = s.conn.Exec(ctx, query,
		e.Signature,
		e.TokenMint,
		e.Pool,
		e.Slot,
		e.Timestamp,
		e.ValueSOL,
		e.TxURL,
		unresolved,
	)
	if err != nil {
		return fmt.Errorf("insert migration event: %w", err)
	}
	return nil
}

// GetBySignature retrieves an event by signature. Returns ErrNotFound if not exists.
func (s *MigrationEventStore) GetBySignature(ctx context.Context, signature string) (*domain.MigrationEvent, error) {
	query := `
		SELECT signature, token_mint, pool, slot, block_time, value_sol, tx_url, unresolved
		FROM migration_events FINAL
		WHERE signature = ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("get migration event by signature: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, storage.ErrNotFound
	}
	return scanMigrationEvent(rows)
}

// ListRecent returns up to limit events, newest first.
func (s *MigrationEventStore) ListRecent(ctx context.Context, limit int) ([]*domain.MigrationEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT signature, token_mint, pool, slot, block_time, value_sol, tx_url, unresolved
		FROM migration_events FINAL
		ORDER BY block_time DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list migration events: %w", err)
	}
	defer rows.Close()

	var events []*domain.MigrationEvent
	for rows.Next() {
		e, err := scanMigrationEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration events: %w", err)
	}

	return events, nil
}

func (s *MigrationEventStore) exists(ctx context.Context, signature string) (bool, error) {
	row := s.conn.QueryRow(ctx, `SELECT count() FROM migration_events WHERE signature = ?`, signature)

	var count uint64
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("check migration event exists: %w", err)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMigrationEvent(row rowScanner) (*domain.MigrationEvent, error) {
	var (
		e          domain.MigrationEvent
		blockTime  time.Time
		unresolved uint8
	)

	err := row.Scan(
		&e.Signature,
		&e.TokenMint,
		&e.Pool,
		&e.Slot,
		&blockTime,
		&e.ValueSOL,
		&e.TxURL,
		&unresolved,
	)
	if err != nil {
		return nil, fmt.Errorf("scan migration event: %w", err)
	}

	e.Timestamp = blockTime
	e.Unresolved = unresolved == 1
	return &e, nil
}
