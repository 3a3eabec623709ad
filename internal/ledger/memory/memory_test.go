package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestExpenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i, d := range []int{5, 20, 12} {
		e := core.Expense{
			ID:          string(rune('a' + i)),
			UserID:      "u1",
			Category:    "Groceries",
			Amount:      core.Cents(100),
			Description: "shop",
			Date:        day(d),
		}
		if err := s.CreateExpense(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListExpenses(ctx, "u1", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d expenses, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.After(got[i-1].Date) {
			t.Errorf("expenses not ordered by date descending: %v before %v", got[i-1].Date, got[i].Date)
		}
	}

	from, to := day(10), day(15)
	got, err = s.ListExpenses(ctx, "u1", &from, &to)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Date.Equal(day(12)) {
		t.Errorf("range filter returned %v, want the day-12 expense only", got)
	}

	if err := s.DeleteExpense(ctx, "u1", "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteExpense(ctx, "u1", "a"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestUserIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateExpense(ctx, core.Expense{ID: "e1", UserID: "u1", Category: "A", Amount: core.Cents(100), Description: "x", Date: day(1)}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListExpenses(ctx, "u2", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("u2 sees %d of u1's expenses", len(got))
	}
	if err := s.DeleteExpense(ctx, "u2", "e1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("cross-user delete: got %v, want ErrNotFound", err)
	}
}

func TestCreateAssignsID(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateOwed(ctx, core.OwedAmount{UserID: "u1", Person: "Alice", Amount: core.Cents(500), Description: "lunch", Date: day(1)}); err != nil {
		t.Fatal(err)
	}
	owed, err := s.ListOwed(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(owed) != 1 || owed[0].ID == "" {
		t.Errorf("expected one owed record with a generated ID, got %v", owed)
	}
}

func TestListRecurringOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, re := range []core.RecurringExpense{
		{ID: "late", UserID: "u1", Category: "A", Amount: core.Cents(100), Description: "x", Frequency: core.Monthly, StartDate: day(1), NextDueDate: day(20)},
		{ID: "soon", UserID: "u1", Category: "A", Amount: core.Cents(100), Description: "x", Frequency: core.Monthly, StartDate: day(1), NextDueDate: day(5)},
	} {
		if err := s.CreateRecurring(ctx, re); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListRecurring(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "soon" {
		t.Errorf("recurring not ordered by next due date ascending: %v", got)
	}
}

func TestListBudgetsByMonth(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, b := range []core.Budget{
		{ID: "b1", UserID: "u1", Scope: core.OverallScope(), Amount: core.Cents(10000), Month: "2025-03"},
		{ID: "b2", UserID: "u1", Scope: core.CategoryScope("Groceries"), Amount: core.Cents(5000), Month: "2025-04"},
	} {
		if err := s.CreateBudget(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListBudgets(ctx, "u1", "2025-03")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "b1" {
		t.Errorf("month filter returned %v, want b1 only", got)
	}

	all, err := s.ListBudgets(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("unfiltered list returned %d budgets, want 2", len(all))
	}
}

func TestCommitAtomicity(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateOwed(ctx, core.OwedAmount{ID: "o1", UserID: "u1", Person: "Alice", Amount: core.Cents(500), Description: "lunch", Date: day(1)}); err != nil {
		t.Fatal(err)
	}

	// A batch referencing a missing owed record must write nothing.
	err := s.Commit(ctx, "u1", ledger.Batch{
		ExpenseCreates: []core.Expense{{ID: "e1", UserID: "u1", Category: "Repayment", Amount: core.Cents(500), Description: "x", Date: day(2)}},
		OwedDeletes:    []string{"missing"},
	})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if got, _ := s.ListExpenses(ctx, "u1", nil, nil); len(got) != 0 {
		t.Errorf("failed commit still created %d expenses", len(got))
	}

	// A valid settlement batch applies both sides.
	err = s.Commit(ctx, "u1", ledger.Batch{
		ExpenseCreates: []core.Expense{{ID: "e1", UserID: "u1", Category: "Repayment", Amount: core.Cents(500), Description: "Paid back Alice", Date: day(2)}},
		OwedDeletes:    []string{"o1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := s.ListExpenses(ctx, "u1", nil, nil); len(got) != 1 {
		t.Errorf("commit created %d expenses, want 1", len(got))
	}
	if _, err := s.GetOwed(ctx, "u1", "o1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("owed record survived settlement commit: %v", err)
	}
}

func TestCommitRecurringUpdateRequiresExisting(t *testing.T) {
	ctx := context.Background()
	s := New()

	re := core.RecurringExpense{ID: "r1", UserID: "u1", Category: "A", Amount: core.Cents(100), Description: "x", Frequency: core.Monthly, StartDate: day(1), NextDueDate: day(1)}
	if err := s.CreateRecurring(ctx, re); err != nil {
		t.Fatal(err)
	}

	re.NextDueDate = day(31)
	if err := s.Commit(ctx, "u1", ledger.Batch{RecurringUpdates: []core.RecurringExpense{re}}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.ListRecurring(ctx, "u1")
	if !got[0].NextDueDate.Equal(day(31)) {
		t.Errorf("update did not apply, next due %v", got[0].NextDueDate)
	}

	ghost := re
	ghost.ID = "ghost"
	if err := s.Commit(ctx, "u1", ledger.Batch{RecurringUpdates: []core.RecurringExpense{ghost}}); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("updating a missing definition: got %v, want ErrNotFound", err)
	}
}
