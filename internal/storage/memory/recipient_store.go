package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage"
)

// RecipientStore implements storage.RecipientStore in memory.
type RecipientStore struct {
	mu    sync.RWMutex
	chats map[int64]struct{}
}

// NewRecipientStore creates an empty in-memory recipient store.
func NewRecipientStore() *RecipientStore {
	return &RecipientStore{chats: make(map[int64]struct{})}
}

// Compile-time interface check.
var _ storage.RecipientStore = (*RecipientStore)(nil)

// Subscribe adds a chat id. Idempotent.
func (s *RecipientStore) Subscribe(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = struct{}{}
	return nil
}

// Unsubscribe removes a chat id. Idempotent.
func (s *RecipientStore) Unsubscribe(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatID)
	return nil
}

// List returns all subscribed chat ids in ascending order.
func (s *RecipientStore) List(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int64, 0, len(s.chats))
	for id := range s.chats {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
