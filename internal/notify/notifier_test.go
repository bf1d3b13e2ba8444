package notify

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage/memory"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    map[int64][]string
	failFor map[int64]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		sent:    make(map[int64][]string),
		failFor: make(map[int64]error),
	}
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[chatID]; ok {
		return err
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestNotifier_FanOut(t *testing.T) {
	ctx := context.Background()
	recipients := memory.NewRecipientStore()
	require.NoError(t, recipients.Subscribe(ctx, 1))
	require.NoError(t, recipients.Subscribe(ctx, 2))

	sender := newFakeSender()
	notifier := NewNotifier(sender, recipients, NotifierOptions{Logger: quietLogger()})

	event := &domain.MigrationEvent{Signature: "sig1", TokenMint: "Mint111"}
	require.NoError(t, notifier.Notify(ctx, event, nil))

	assert.Len(t, sender.sent[1], 1)
	assert.Len(t, sender.sent[2], 1)
	assert.Contains(t, sender.sent[1][0], "Mint111")
}

func TestNotifier_PartialFailureContinues(t *testing.T) {
	ctx := context.Background()
	recipients := memory.NewRecipientStore()
	require.NoError(t, recipients.Subscribe(ctx, 1))
	require.NoError(t, recipients.Subscribe(ctx, 2))
	require.NoError(t, recipients.Subscribe(ctx, 3))

	sender := newFakeSender()
	sender.failFor[2] = errors.New("bot was blocked by the user")

	notifier := NewNotifier(sender, recipients, NotifierOptions{Logger: quietLogger()})

	event := &domain.MigrationEvent{Signature: "sig1", TokenMint: "Mint111"}
	require.NoError(t, notifier.Notify(ctx, event, nil))

	assert.Len(t, sender.sent[1], 1)
	assert.Empty(t, sender.sent[2])
	assert.Len(t, sender.sent[3], 1)
}

func TestNotifier_NoSubscribers(t *testing.T) {
	ctx := context.Background()
	recipients := memory.NewRecipientStore()

	sender := newFakeSender()
	notifier := NewNotifier(sender, recipients, NotifierOptions{Logger: quietLogger()})

	event := &domain.MigrationEvent{Signature: "sig1"}
	require.NoError(t, notifier.Notify(ctx, event, nil))
	assert.Empty(t, sender.sent)
}
