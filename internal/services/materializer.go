// Package services orchestrates domain operations against the ledger
// store and publishes change events.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/ledger"
)

// Materializer turns due recurring definitions into concrete expenses.
// It is invoked explicitly: by the process endpoint, by the server's
// periodic loop, and by the standalone worker.
type Materializer struct {
	store ledger.Store
	bus   *events.Client
}

func NewMaterializer(store ledger.Store, bus *events.Client) *Materializer {
	return &Materializer{store: store, bus: bus}
}

// MaterializationResult summarizes one run for logging and the API
// response.
type MaterializationResult struct {
	Created  int
	Advanced int
}

// Run evaluates the user's recurring definitions against now and commits
// the resulting expenses and schedule advances as one atomic batch. An
// empty plan performs no store write. Each run advances a definition at
// most one period; overdue definitions converge across runs, so retrying
// after a failed commit never duplicates an occurrence.
func (m *Materializer) Run(ctx context.Context, userID string, now time.Time) (MaterializationResult, error) {
	defs, err := m.store.ListRecurring(ctx, userID)
	if err != nil {
		return MaterializationResult{}, fmt.Errorf("list recurring expenses: %w", err)
	}

	plan, err := core.PlanMaterialization(defs, now)
	if err != nil {
		return MaterializationResult{}, fmt.Errorf("plan materialization: %w", err)
	}
	if plan.Empty() {
		return MaterializationResult{}, nil
	}

	for i := range plan.Expenses {
		plan.Expenses[i].ID = uuid.New().String()
	}

	batch := ledger.Batch{
		ExpenseCreates:   plan.Expenses,
		RecurringUpdates: plan.Recurring,
	}
	if err := m.store.Commit(ctx, userID, batch); err != nil {
		return MaterializationResult{}, fmt.Errorf("commit materialization batch: %w", err)
	}

	result := MaterializationResult{
		Created:  len(plan.Expenses),
		Advanced: len(plan.Recurring),
	}

	slog.InfoContext(ctx, "Materialized recurring expenses",
		"user_id", userID,
		"created", result.Created,
		"advanced", result.Advanced)

	event := events.NewLedgerEvent(events.KindMaterializationRun, userID)
	event.Count = result.Created
	m.bus.PublishAsync(event)

	return result, nil
}

// RunAll materializes for every known user. A failing user is logged and
// skipped so one bad schedule cannot stall the rest; the combined error is
// returned after the sweep.
func (m *Materializer) RunAll(ctx context.Context, now time.Time) (MaterializationResult, error) {
	users, err := m.store.ListUsers(ctx)
	if err != nil {
		return MaterializationResult{}, fmt.Errorf("list users: %w", err)
	}

	var total MaterializationResult
	var errs []error
	for _, userID := range users {
		result, err := m.Run(ctx, userID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Materialization failed for user", "user_id", userID, "error", err)
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		total.Created += result.Created
		total.Advanced += result.Advanced
	}
	return total, errors.Join(errs...)
}
