package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage"
)

func TestMigrationEventStore_InsertAndGetBySignature(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMigrationEventStore(pool)
	ctx := context.Background()

	event := &domain.MigrationEvent{
		Signature: "sig-001",
		TokenMint: "Mint111",
		Pool:      "Pool111",
		Slot:      12345,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ValueSOL:  1.5,
		TxURL:     "https://solscan.io/tx/sig-001",
	}

	require.NoError(t, store.Insert(ctx, event))

	retrieved, err := store.GetBySignature(ctx, "sig-001")
	require.NoError(t, err)

	assert.Equal(t, event.Signature, retrieved.Signature)
	assert.Equal(t, event.TokenMint, retrieved.TokenMint)
	assert.Equal(t, event.Pool, retrieved.Pool)
	assert.Equal(t, event.Slot, retrieved.Slot)
	assert.WithinDuration(t, event.Timestamp, retrieved.Timestamp, time.Second)
	assert.Equal(t, event.ValueSOL, retrieved.ValueSOL)
	assert.Equal(t, event.TxURL, retrieved.TxURL)
	assert.False(t, retrieved.Unresolved)
}

func TestMigrationEventStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMigrationEventStore(pool)
	ctx := context.Background()

	event := &domain.MigrationEvent{
		Signature: "sig-dup",
		TokenMint: "Mint111",
		Slot:      1,
		Timestamp: time.Now().UTC(),
	}

	require.NoError(t, store.Insert(ctx, event))

	err := store.Insert(ctx, event)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestMigrationEventStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMigrationEventStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.MigrationEvent{}), storage.ErrInvalidInput)
}

func TestMigrationEventStore_GetBySignatureNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMigrationEventStore(pool)

	_, err := store.GetBySignature(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMigrationEventStore_ListRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMigrationEventStore(pool)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		event := &domain.MigrationEvent{
			Signature:  "sig-" + string(rune('a'+i)),
			TokenMint:  "Mint111",
			Slot:       int64(i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Unresolved: i == 2,
		}
		require.NoError(t, store.Insert(ctx, event))
	}

	events, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, "sig-c", events[0].Signature)
	assert.True(t, events[0].Unresolved)
	assert.Equal(t, "sig-b", events[1].Signature)
}
