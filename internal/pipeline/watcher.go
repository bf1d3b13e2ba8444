// Package pipeline wires the subscription stream, fetch queue, detector
// and downstream consumers into the end-to-end migration watcher.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/dedup"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/detect"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/observability"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/queue"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/solana"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage"
)

const (
	lamportsPerSOL = 1_000_000_000
	solscanTxBase  = "https://solscan.io/tx/"
)

// Enricher augments a detected event with token market data. May return
// nil when nothing could be fetched.
type Enricher interface {
	Enrich(ctx context.Context, mint string) *domain.TokenInfo
}

// Notifier delivers a finished migration event downstream.
type Notifier interface {
	Notify(ctx context.Context, event *domain.MigrationEvent, info *domain.TokenInfo) error
}

// Options configures a Watcher. RPC, archive, enrichment and notification
// are all optional except the clients themselves.
type Options struct {
	// Program is the address whose logs are watched. Defaults to the
	// pump.fun bonding curve program.
	Program string
	// LedgerCapacity bounds the dedup ledger. Defaults to dedup.DefaultCapacity.
	LedgerCapacity int
	// Queue overrides fetch queue timing parameters.
	Queue queue.Options
	// Archive, when set, persists every detected event. Best effort.
	Archive storage.MigrationEventStore
	// Enricher, when set, fetches token data for resolved mints.
	Enricher Enricher
	// Notifier, when set, receives every detected event.
	Notifier Notifier
	Logger   *log.Logger
}

// Watcher runs the full detection pipeline: subscribe, pre-filter,
// fetch, classify, dedup, archive, enrich, notify.
type Watcher struct {
	ws       solana.WSClient
	rpc      solana.RPCClient
	detector *detect.Detector
	ledger   *dedup.Ledger
	queue    *queue.FetchQueue
	opts     Options
	logger   *log.Logger
}

// New creates a Watcher over the given clients.
func New(ws solana.WSClient, rpc solana.RPCClient, opts Options) *Watcher {
	if opts.Program == "" {
		opts.Program = detect.PumpFun
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[pipeline] ", log.LstdFlags)
	}

	w := &Watcher{
		ws:       ws,
		rpc:      rpc,
		detector: detect.NewDetector(opts.Program),
		ledger:   dedup.NewLedger(opts.LedgerCapacity),
		opts:     opts,
		logger:   logger,
	}

	queueOpts := opts.Queue
	queueOpts.Seen = w.ledger.Has
	if queueOpts.Logger == nil {
		queueOpts.Logger = logger
	}
	w.queue = queue.New(w.handleSignature, queueOpts)

	return w
}

// Run subscribes to program logs and processes the stream until ctx is
// cancelled or the subscription client reports a fatal condition.
func (w *Watcher) Run(ctx context.Context) error {
	notifCh, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{
		Mentions: []string{w.opts.Program},
	})
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}

	w.queue.Start(ctx)
	defer w.queue.Close()

	w.logger.Printf("watching program %s", w.opts.Program)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-w.ws.Fatal():
			return fmt.Errorf("subscription terminated: %w", err)
		case notif, ok := <-notifCh:
			if !ok {
				select {
				case err := <-w.ws.Fatal():
					return fmt.Errorf("subscription terminated: %w", err)
				default:
				}
				return errors.New("notification stream closed")
			}
			w.handleNotification(notif)
		}
	}
}

// handleNotification applies the cheap pre-filter and enqueues candidate
// signatures. Notifications without logs (the fallback transaction shape)
// cannot be pre-filtered and are always enqueued.
func (w *Watcher) handleNotification(notif solana.LogNotification) {
	observability.RecordLogEvent()

	if notif.Signature == "" {
		return
	}
	if w.ledger.Has(notif.Signature) {
		observability.RecordDuplicateSuppressed()
		return
	}
	if len(notif.Logs) > 0 && !detect.HasMigrationIndicator(notif.Logs) {
		return
	}

	observability.RecordPrefilterPassed()
	w.queue.Enqueue(notif.Signature)
	observability.UpdateQueueDepth(w.queue.Len())
}

// handleSignature fetches and classifies one signature. Rate-limit errors
// propagate so the queue re-enqueues; everything else is terminal for
// this signature.
func (w *Watcher) handleSignature(ctx context.Context, signature string) error {
	start := time.Now()
	tx, err := w.rpc.GetTransaction(ctx, signature)
	if err != nil {
		if errors.Is(err, solana.ErrRateLimited) {
			observability.RecordFetchError("rate_limited")
			return err
		}
		if errors.Is(err, solana.ErrNotFound) {
			observability.RecordFetchError("not_found")
		} else {
			observability.RecordFetchError("rpc")
		}
		return err
	}
	observability.RecordFetch(time.Since(start).Seconds())
	observability.UpdateQueueDepth(w.queue.Len())

	if w.ledger.Has(signature) {
		observability.RecordDuplicateSuppressed()
		return nil
	}

	result := w.detector.Classify(tx)

	// Every classified signature lands in the ledger, including negatives,
	// so replays of the same transaction are never refetched.
	w.ledger.Add(signature)
	observability.UpdateLedgerSize(w.ledger.Len())

	if !result.IsMigration {
		return nil
	}

	event := w.buildEvent(tx, result)
	observability.RecordMigrationDetected(event.Unresolved, event.Timestamp.Unix())
	w.logger.Printf("migration detected: sig=%s mint=%s unresolved=%t", event.Signature, event.TokenMint, event.Unresolved)

	w.archive(ctx, event)

	var info *domain.TokenInfo
	if w.opts.Enricher != nil && event.TokenMint != "" {
		info = w.opts.Enricher.Enrich(ctx, event.TokenMint)
	}

	if w.opts.Notifier != nil {
		err := w.opts.Notifier.Notify(ctx, event, info)
		observability.RecordNotification(err)
		if err != nil {
			w.logger.Printf("notify failed for %s: %v", event.Signature, err)
		}
	}

	return nil
}

func (w *Watcher) buildEvent(tx *solana.Transaction, result detect.DetectionResult) *domain.MigrationEvent {
	event := &domain.MigrationEvent{
		Signature:  result.Signature,
		TokenMint:  result.TokenMint,
		Pool:       result.Pool,
		Slot:       tx.Slot,
		TxURL:      solscanTxBase + result.Signature,
		Unresolved: result.TokenMint == "",
	}

	if tx.BlockTime > 0 {
		event.Timestamp = time.Unix(tx.BlockTime, 0).UTC()
	} else {
		event.Timestamp = time.Now().UTC()
	}

	// Fee payer balance delta approximates the SOL moved by the migration.
	if tx.Meta != nil && len(tx.Meta.PreBalances) > 0 && len(tx.Meta.PostBalances) > 0 {
		pre, post := tx.Meta.PreBalances[0], tx.Meta.PostBalances[0]
		if pre > post {
			event.ValueSOL = float64(pre-post) / lamportsPerSOL
		}
	}

	return event
}

// archive persists the event when a store is configured. Duplicates are
// expected after reconnect replays and are not errors.
func (w *Watcher) archive(ctx context.Context, event *domain.MigrationEvent) {
	if w.opts.Archive == nil {
		return
	}
	if err := w.opts.Archive.Insert(ctx, event); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		w.logger.Printf("archive failed for %s: %v", event.Signature, err)
	}
}
