package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/events"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	fsledger "fintrack/internal/ledger/firestore"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/ledger/sqlite"
	"fintrack/internal/services"
)

func main() {
	// .env is for local development; missing file is fine.
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
	logger.Info("Ledger store initialized", "backend", cfg.LedgerBackend)

	var bus *events.Client
	if cfg.AMQPURL != "" {
		bus, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Event bus unavailable, continuing store-only", "error", err)
			bus = nil
		} else {
			defer bus.Close()
			logger.Info("Event bus connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize auth", "error", err, "mode", cfg.AuthMode)
		os.Exit(1)
	}

	ledgerSvc := services.NewLedgerService(store, bus)
	materializer := services.NewMaterializer(store, bus)
	settlement := services.NewSettlement(store, bus)

	srv := apphttp.NewServer(":"+cfg.Port, ledgerSvc, materializer, settlement, verifier)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.MaterializeInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.MaterializeInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case now := <-ticker.C:
					result, err := materializer.RunAll(gctx, now.UTC())
					if err != nil {
						logger.Error("Periodic materialization failed", "error", err)
						continue
					}
					if result.Created > 0 {
						logger.Info("Periodic materialization complete", "created", result.Created)
					}
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
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

func newVerifier(ctx context.Context, cfg *config.Config) (auth.Verifier, error) {
	if cfg.AuthMode == "firebase" {
		return auth.NewFirebaseVerifier(ctx, cfg.GoogleProjectID, cfg.GoogleCredentialsFile)
	}
	return auth.StaticVerifier{UserID: cfg.StaticUserID}, nil
}
