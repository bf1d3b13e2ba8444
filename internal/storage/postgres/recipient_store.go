package postgres

import (
	"context"
	"fmt"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage"
)

// RecipientStore implements storage.RecipientStore using PostgreSQL.
type RecipientStore struct {
	pool *Pool
}

// NewRecipientStore creates a new RecipientStore.
func NewRecipientStore(pool *Pool) *RecipientStore {
	return &RecipientStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecipientStore = (*RecipientStore)(nil)

// Subscribe adds a chat id. Idempotent.
func (s *RecipientStore) Subscribe(ctx context.Context, chatID int64) error {
	query := `
		INSERT INTO recipients (chat_id)
		VALUES ($1)
		ON CONFLICT (chat_id) DO NOTHING
	`

	if _, err := s.pool.Exec(ctx, query, chatID); err != nil {
		return fmt.Errorf("subscribe recipient: %w", err)
	}
	return nil
}

// Unsubscribe removes a chat id. Idempotent.
func (s *RecipientStore) Unsubscribe(ctx context.Context, chatID int64) error {
	query := `DELETE FROM recipients WHERE chat_id = $1`

	if _, err := s.pool.Exec(ctx, query, chatID); err != nil {
		return fmt.Errorf("unsubscribe recipient: %w", err)
	}
	return nil
}

// List returns all subscribed chat ids in ascending order.
func (s *RecipientStore) List(ctx context.Context) ([]int64, error) {
	query := `SELECT chat_id FROM recipients ORDER BY chat_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var chats []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		chats = append(chats, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}

	return chats, nil
}
