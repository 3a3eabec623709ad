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

// ErrNothingToSettle is returned when the referenced owed record does not
// exist, typically because a second settle raced the first. The store is
// left untouched.
var ErrNothingToSettle = errors.New("nothing to settle")

// Settlement resolves owed records. Settling money the user owes converts
// the debt into a Repayment expense; settling money owed to the user just
// clears the record.
type Settlement struct {
	store ledger.Store
	bus   *events.Client
}

func NewSettlement(store ledger.Store, bus *events.Client) *Settlement {
	return &Settlement{store: store, bus: bus}
}

// SettleOwed deletes the owed record and creates the repayment expense in
// one atomic batch. The expense keeps the settled amount, is dated now,
// and carries repayment details pointing back at the original debt.
func (s *Settlement) SettleOwed(ctx context.Context, userID, owedID string, now time.Time) (core.Expense, error) {
	owed, err := s.store.GetOwed(ctx, userID, owedID)
	if errors.Is(err, ledger.ErrNotFound) {
		return core.Expense{}, ErrNothingToSettle
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("load owed amount: %w", err)
	}

	expense := core.Expense{
		ID:          uuid.New().String(),
		UserID:      userID,
		Category:    core.CategoryRepayment,
		Amount:      owed.Amount,
		Description: "Paid back " + owed.Person,
		Date:        now,
		Repayment: &core.RepaymentDetails{
			Person:              owed.Person,
			OriginalDescription: owed.Description,
		},
	}

	batch := ledger.Batch{
		ExpenseCreates: []core.Expense{expense},
		OwedDeletes:    []string{owedID},
	}
	if err := s.store.Commit(ctx, userID, batch); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return core.Expense{}, ErrNothingToSettle
		}
		return core.Expense{}, fmt.Errorf("commit settlement batch: %w", err)
	}

	slog.InfoContext(ctx, "Settled owed amount",
		"user_id", userID,
		"owed_id", owedID,
		"person", owed.Person,
		"amount_cents", owed.Amount.Cents)

	event := events.NewLedgerEvent(events.KindOwedSettled, userID)
	event.RecordID = owedID
	event.AmountCents = owed.Amount.Cents
	event.Person = owed.Person
	s.bus.PublishAsync(event)

	return expense, nil
}

// SettleOwedToMe clears a receivable. No expense is created; incoming
// money is not spending.
func (s *Settlement) SettleOwedToMe(ctx context.Context, userID, id string) error {
	owed, err := s.store.GetOwedToMe(ctx, userID, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return ErrNothingToSettle
	}
	if err != nil {
		return fmt.Errorf("load owed-to-me: %w", err)
	}

	if err := s.store.DeleteOwedToMe(ctx, userID, id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return ErrNothingToSettle
		}
		return fmt.Errorf("delete owed-to-me: %w", err)
	}

	slog.InfoContext(ctx, "Settled owed-to-me",
		"user_id", userID,
		"id", id,
		"person", owed.Person,
		"amount_cents", owed.Amount.Cents)

	event := events.NewLedgerEvent(events.KindOwedToMeSettled, userID)
	event.RecordID = id
	event.AmountCents = owed.Amount.Cents
	event.Person = owed.Person
	s.bus.PublishAsync(event)

	return nil
}
