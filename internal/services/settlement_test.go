package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
)

func TestSettleOwed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := NewSettlement(store, nil)

	owed := core.OwedAmount{
		ID:          "o1",
		UserID:      "u1",
		Person:      "Alice",
		Amount:      core.Cents(2500),
		Description: "concert tickets",
		Date:        day(1),
	}
	if err := store.CreateOwed(ctx, owed); err != nil {
		t.Fatal(err)
	}

	now := day(15)
	expense, err := s.SettleOwed(ctx, "u1", "o1", now)
	if err != nil {
		t.Fatal(err)
	}

	if expense.Category != core.CategoryRepayment {
		t.Errorf("category = %q, want %q", expense.Category, core.CategoryRepayment)
	}
	if expense.Amount.Cents != 2500 {
		t.Errorf("amount = %d, want 2500", expense.Amount.Cents)
	}
	if expense.Description != "Paid back Alice" {
		t.Errorf("description = %q", expense.Description)
	}
	if !expense.Date.Equal(now) {
		t.Errorf("date = %v, want settlement time %v", expense.Date, now)
	}
	if expense.Repayment == nil ||
		expense.Repayment.Person != "Alice" ||
		expense.Repayment.OriginalDescription != "concert tickets" {
		t.Errorf("repayment details = %+v", expense.Repayment)
	}

	// Debt is gone and the expense is in the ledger.
	if _, err := store.GetOwed(ctx, "u1", "o1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("owed record still present: %v", err)
	}
	expenses, _ := store.ListExpenses(ctx, "u1", nil, nil)
	if len(expenses) != 1 || expenses[0].ID != expense.ID {
		t.Errorf("ledger does not hold the repayment expense: %v", expenses)
	}
}

func TestSettleOwedMissing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := NewSettlement(store, nil)

	if _, err := s.SettleOwed(ctx, "u1", "ghost", day(1)); !errors.Is(err, ErrNothingToSettle) {
		t.Fatalf("got %v, want ErrNothingToSettle", err)
	}
	expenses, _ := store.ListExpenses(ctx, "u1", nil, nil)
	if len(expenses) != 0 {
		t.Error("settling a missing record created an expense")
	}
}

func TestSettleOwedTwice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := NewSettlement(store, nil)

	if err := store.CreateOwed(ctx, core.OwedAmount{ID: "o1", UserID: "u1", Person: "Bob", Amount: core.Cents(100), Description: "coffee", Date: day(1)}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.SettleOwed(ctx, "u1", "o1", day(2)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SettleOwed(ctx, "u1", "o1", day(3)); !errors.Is(err, ErrNothingToSettle) {
		t.Fatalf("second settle: got %v, want ErrNothingToSettle", err)
	}
	expenses, _ := store.ListExpenses(ctx, "u1", nil, nil)
	if len(expenses) != 1 {
		t.Errorf("got %d repayment expenses, want exactly 1", len(expenses))
	}
}

func TestSettleOwedToMe(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := NewSettlement(store, nil)

	if err := store.CreateOwedToMe(ctx, core.OwedToMe{ID: "m1", UserID: "u1", Person: "Carol", Amount: core.Cents(4000), Description: "rent share", Date: day(1)}); err != nil {
		t.Fatal(err)
	}

	if err := s.SettleOwedToMe(ctx, "u1", "m1"); err != nil {
		t.Fatal(err)
	}

	// Incoming money never becomes an expense.
	expenses, _ := store.ListExpenses(ctx, "u1", nil, nil)
	if len(expenses) != 0 {
		t.Errorf("settling a receivable created %d expenses", len(expenses))
	}
	if _, err := store.GetOwedToMe(ctx, "u1", "m1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("receivable still present: %v", err)
	}

	if err := s.SettleOwedToMe(ctx, "u1", "m1"); !errors.Is(err, ErrNothingToSettle) {
		t.Errorf("second settle: got %v, want ErrNothingToSettle", err)
	}
}
