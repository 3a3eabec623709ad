// Command notifier consumes ledger events from the bus and emits
// user-facing notifications. Delivery is currently structured log lines;
// the consumer loop and ack semantics are the part that matters.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/events"
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
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	bus, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to event bus", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting notifier", "queue", cfg.AMQPQueue)

	err = bus.Consume(ctx, func(event events.LedgerEvent) error {
		logger.Info("Notification",
			"message", describe(event),
			"kind", event.Kind,
			"user_id", event.UserID)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Notifier stopped gracefully")
}

func describe(e events.LedgerEvent) string {
	amount := fmt.Sprintf("%d.%02d", e.AmountCents/100, e.AmountCents%100)
	switch e.Kind {
	case events.KindExpenseCreated:
		return fmt.Sprintf("New %s expense of %s recorded", e.Category, amount)
	case events.KindExpenseDeleted:
		return "An expense was removed"
	case events.KindOwedSettled:
		return fmt.Sprintf("Debt of %s to %s settled", amount, e.Person)
	case events.KindOwedToMeSettled:
		return fmt.Sprintf("%s paid back %s", e.Person, amount)
	case events.KindMaterializationRun:
		return fmt.Sprintf("%d recurring expenses were added to the ledger", e.Count)
	default:
		return "Ledger updated"
	}
}
