package storage

import (
	"context"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
)

// RecipientStore holds the set of chat ids subscribed to alerts.
// Subscribe and Unsubscribe are idempotent.
type RecipientStore interface {
	// Subscribe adds a chat id to the recipient set.
	Subscribe(ctx context.Context, chatID int64) error

	// Unsubscribe removes a chat id from the recipient set.
	Unsubscribe(ctx context.Context, chatID int64) error

	// List returns all subscribed chat ids.
	List(ctx context.Context) ([]int64, error)
}

// MigrationEventStore archives confirmed migration events.
type MigrationEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if the signature exists.
	Insert(ctx context.Context, e *domain.MigrationEvent) error

	// GetBySignature retrieves an event by signature. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.MigrationEvent, error)

	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.MigrationEvent, error)
}
