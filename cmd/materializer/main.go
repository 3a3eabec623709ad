// Command materializer runs recurring-expense materialization outside the
// server process. With MATERIALIZE_INTERVAL set it loops on a ticker;
// with the interval at zero it sweeps once and exits, which suits cron.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/events"
	"fintrack/internal/ledger"
	fsledger "fintrack/internal/ledger/firestore"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/ledger/sqlite"
	"fintrack/internal/services"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger store", "error", err, "backend", cfg.LedgerBackend)
		os.Exit(1)
	}
	defer store.Close()

	var bus *events.Client
	if cfg.AMQPURL != "" {
		bus, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Event bus unavailable, continuing store-only", "error", err)
			bus = nil
		} else {
			defer bus.Close()
		}
	}

	materializer := services.NewMaterializer(store, bus)

	sweep := func(now time.Time) {
		result, err := materializer.RunAll(ctx, now)
		if err != nil {
			logger.Error("Materialization sweep failed", "error", err)
			return
		}
		logger.Info("Materialization sweep complete",
			"created", result.Created,
			"advanced", result.Advanced)
	}

	logger.Info("Starting materializer",
		"backend", cfg.LedgerBackend,
		"interval", cfg.MaterializeInterval)

	sweep(time.Now().UTC())
	if cfg.MaterializeInterval == 0 {
		return
	}

	ticker := time.NewTicker(cfg.MaterializeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Materializer stopped", "reason", ctx.Err())
			return
		case now := <-ticker.C:
			sweep(now.UTC())
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (ledger.Store, error) {
	switch cfg.LedgerBackend {
	case "sqlite":
		return sqlite.New(cfg.SQLiteDBPath)
	case "firestore":
		return fsledger.New(ctx, cfg.GoogleProjectID, cfg.GoogleCredentialsFile)
	default:
		return memory.New(), nil
	}
}
