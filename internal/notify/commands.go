package notify

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage"
)

// updatePoller is the subset of TelegramClient the command listener uses.
type updatePoller interface {
	sender
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error)
}

// CommandListener long-polls getUpdates and handles the /start and /stop
// subscription commands.
type CommandListener struct {
	client     updatePoller
	recipients storage.RecipientStore
	logger     *log.Logger

	pollTimeout int
	retryDelay  time.Duration
}

// CommandListenerOptions configures a CommandListener. Zero values select
// defaults.
type CommandListenerOptions struct {
	// PollTimeout is the getUpdates long-poll duration in seconds.
	// Defaults to 30.
	PollTimeout int
	// RetryDelay is the pause after a failed poll. Defaults to 5s.
	RetryDelay time.Duration
	Logger     *log.Logger
}

// NewCommandListener creates a listener over the given client and store.
func NewCommandListener(client updatePoller, recipients storage.RecipientStore, opts CommandListenerOptions) *CommandListener {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[commands] ", log.LstdFlags)
	}
	return &CommandListener{
		client:      client,
		recipients:  recipients,
		logger:      logger,
		pollTimeout: opts.PollTimeout,
		retryDelay:  opts.RetryDelay,
	}
}

// Run polls for commands until the context is cancelled.
func (l *CommandListener) Run(ctx context.Context) error {
	var offset int64

	for {
		updates, err := l.client.GetUpdates(ctx, offset, l.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Printf("poll failed: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.retryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			l.handleUpdate(ctx, update)
		}
	}
}

func (l *CommandListener) handleUpdate(ctx context.Context, update Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	command := strings.ToLower(strings.TrimSpace(update.Message.Text))
	// Strip a bot mention suffix such as /start@my_bot.
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	switch command {
	case "/start":
		if err := l.recipients.Subscribe(ctx, chatID); err != nil {
			l.logger.Printf("subscribe chat %d failed: %v", chatID, err)
			return
		}
		l.logger.Printf("chat %d subscribed", chatID)
		l.reply(ctx, chatID, "Subscribed\\. You will receive pump\\.fun migration alerts\\. Send /stop to unsubscribe\\.")
	case "/stop":
		if err := l.recipients.Unsubscribe(ctx, chatID); err != nil {
			l.logger.Printf("unsubscribe chat %d failed: %v", chatID, err)
			return
		}
		l.logger.Printf("chat %d unsubscribed", chatID)
		l.reply(ctx, chatID, "Unsubscribed\\. Send /start to subscribe again\\.")
	}
}

func (l *CommandListener) reply(ctx context.Context, chatID int64, text string) {
	if err := l.client.SendMessage(ctx, chatID, text); err != nil {
		l.logger.Printf("reply to chat %d failed: %v", chatID, err)
	}
}
