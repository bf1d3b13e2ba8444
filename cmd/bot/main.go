package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/detect"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/notify"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/observability"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/pipeline"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/queue"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/solana"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage"
	chstore "github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage/clickhouse"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage/memory"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage/migrations"
	pgstore "github.com/WSOL12/pump-migration-tg-alert-bot/internal/storage/postgres"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/tokendata"
)

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint")
	program := flag.String("program", detect.PumpFun, "Program address to watch for migrations")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (empty for in-memory storage)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the event archive (optional)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	reconnectDelay := flag.Duration("reconnect-delay", 5*time.Second, "Delay between WebSocket reconnect attempts")
	reconnectAttempts := flag.Int("reconnect-attempts", 20, "Maximum consecutive WebSocket reconnect attempts")
	minFetchInterval := flag.Duration("min-fetch-interval", queue.DefaultMinInterval, "Minimum spacing between RPC transaction fetches")
	ledgerCap := flag.Int("ledger-cap", 1000, "Maximum signatures kept in the dedup ledger")
	disableTelegram := flag.Bool("disable-telegram", false, "Run detection without Telegram delivery")

	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lshortfile)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err := run(ctx, logger, runConfig{
		rpcEndpoint:       *rpcEndpoint,
		wsEndpoint:        *wsEndpoint,
		program:           *program,
		postgresDSN:       *postgresDSN,
		clickhouseDSN:     *clickhouseDSN,
		reconnectDelay:    *reconnectDelay,
		reconnectAttempts: *reconnectAttempts,
		minFetchInterval:  *minFetchInterval,
		ledgerCap:         *ledgerCap,
		disableTelegram:   *disableTelegram,
	})

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type runConfig struct {
	rpcEndpoint       string
	wsEndpoint        string
	program           string
	postgresDSN       string
	clickhouseDSN     string
	reconnectDelay    time.Duration
	reconnectAttempts int
	minFetchInterval  time.Duration
	ledgerCap         int
	disableTelegram   bool
}

func run(ctx context.Context, logger *log.Logger, cfg runConfig) error {
	if cfg.rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required")
	}
	if cfg.wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required")
	}

	rpc := solana.NewHTTPClient(cfg.rpcEndpoint)

	wsConfig := solana.DefaultWSConfig()
	wsConfig.ReconnectDelay = cfg.reconnectDelay
	wsConfig.MaxReconnectAttempts = cfg.reconnectAttempts
	wsConfig.Logger = logger
	ws := solana.NewWSClient(cfg.wsEndpoint, &wsConfig)
	defer ws.Close()

	// Recipient subscriptions live in Postgres when a DSN is given so
	// they survive restarts; otherwise they are in-memory only.
	var recipientStore storage.RecipientStore = memory.NewRecipientStore()
	var archiveStore storage.MigrationEventStore

	if cfg.postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}

		recipientStore = pgstore.NewRecipientStore(pool)
		archiveStore = pgstore.NewMigrationEventStore(pool)
	}

	// An explicit ClickHouse DSN moves the event archive there.
	if cfg.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("setup clickhouse: %w", err)
		}
		defer conn.Close()

		archiveStore = chstore.NewMigrationEventStore(conn)
	}
	if archiveStore == nil {
		archiveStore = memory.NewMigrationEventStore()
	}

	enricher := tokendata.NewService(tokendata.ServiceOptions{
		OnChain: tokendata.NewOnChainSource(rpc),
		Market:  tokendata.NewDexScreenerClient(),
		Logger:  logger,
	})

	var notifier pipeline.Notifier
	var listener *notify.CommandListener

	if !cfg.disableTelegram {
		token := os.Getenv("TELEGRAM_BOT_TOKEN")
		if token == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required (or pass --disable-telegram)")
		}
		tg := notify.NewTelegramClient(token)
		notifier = notify.NewNotifier(tg, recipientStore, notify.NotifierOptions{Logger: logger})
		listener = notify.NewCommandListener(tg, recipientStore, notify.CommandListenerOptions{Logger: logger})
	}

	watcher := pipeline.New(ws, rpc, pipeline.Options{
		Program:        cfg.program,
		LedgerCapacity: cfg.ledgerCap,
		Queue: queue.Options{
			MinInterval: cfg.minFetchInterval,
		},
		Archive:  archiveStore,
		Enricher: enricher,
		Notifier: notifier,
		Logger:   logger,
	})

	if listener != nil {
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("Command listener stopped: %v", err)
			}
		}()
	}

	logger.Printf("Starting migration watcher for program %s", cfg.program)
	return watcher.Run(ctx)
}
