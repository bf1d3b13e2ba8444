package notify

import (
	"context"
	"log"
	"os"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage"
)

// sender is the subset of TelegramClient the notifier uses.
type sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Notifier fans a migration alert out to every subscribed chat. Delivery
// failures for individual recipients are logged and skipped so one blocked
// chat cannot stall the rest.
type Notifier struct {
	client     sender
	recipients storage.RecipientStore
	logger     *log.Logger
}

// NotifierOptions configures a Notifier.
type NotifierOptions struct {
	Logger *log.Logger
}

// NewNotifier creates a Notifier over the given client and recipient store.
func NewNotifier(client sender, recipients storage.RecipientStore, opts NotifierOptions) *Notifier {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[notify] ", log.LstdFlags)
	}
	return &Notifier{
		client:     client,
		recipients: recipients,
		logger:     logger,
	}
}

// Notify formats the event and sends it to all subscribers.
func (n *Notifier) Notify(ctx context.Context, event *domain.MigrationEvent, info *domain.TokenInfo) error {
	chats, err := n.recipients.List(ctx)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		n.logger.Printf("no subscribers, skipping alert for %s", event.Signature)
		return nil
	}

	text := FormatAlert(event, info)

	var delivered int
	for _, chatID := range chats {
		if err := n.client.SendMessage(ctx, chatID, text); err != nil {
			n.logger.Printf("delivery to chat %d failed: %v", chatID, err)
			continue
		}
		delivered++
	}

	n.logger.Printf("alert for %s delivered to %d/%d chats", event.Signature, delivered, len(chats))
	return nil
}
