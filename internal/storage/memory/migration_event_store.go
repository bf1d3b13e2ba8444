package memory

import (
	"context"
	"sync"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage"
)

// MigrationEventStore implements storage.MigrationEventStore in memory.
type MigrationEventStore struct {
	mu     sync.RWMutex
	bySig  map[string]*domain.MigrationEvent
	events []*domain.MigrationEvent // insertion order
}

// NewMigrationEventStore creates an empty in-memory event store.
func NewMigrationEventStore() *MigrationEventStore {
	return &MigrationEventStore{bySig: make(map[string]*domain.MigrationEvent)}
}

// Compile-time interface check.
var _ storage.MigrationEventStore = (*MigrationEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if the signature exists.
func (s *MigrationEventStore) Insert(_ context.Context, e *domain.MigrationEvent) error {
	if e == nil || e.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bySig[e.Signature]; ok {
		return storage.ErrDuplicateKey
	}

	cp := *e
	s.bySig[e.Signature] = &cp
	s.events = append(s.events, &cp)
	return nil
}

// GetBySignature retrieves an event by signature.
func (s *MigrationEventStore) GetBySignature(_ context.Context, signature string) (*domain.MigrationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.bySig[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// ListRecent returns up to limit events, newest first.
func (s *MigrationEventStore) ListRecent(_ context.Context, limit int) ([]*domain.MigrationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}

	out := make([]*domain.MigrationEvent, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.events[i]
		out = append(out, &cp)
	}
	return out, nil
}
