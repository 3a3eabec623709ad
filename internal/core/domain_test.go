package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		UserID:      "u1",
		Category:    "Groceries",
		Amount:      Cents(1234),
		Description: "weekly shop",
		Date:        date(2025, time.March, 10),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"zero date", func(e *Expense) { e.Date = time.Time{} }, ErrInvalidDate},
		{"zero amount", func(e *Expense) { e.Amount = Cents(0) }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = Cents(-100) }, ErrInvalidAmount},
		{"blank description", func(e *Expense) { e.Description = "   " }, ErrEmptyDescription},
		{"blank category", func(e *Expense) { e.Category = "" }, ErrEmptyCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := valid
			tc.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}

	t.Run("description too long", func(t *testing.T) {
		e := valid
		e.Description = strings.Repeat("x", 201)
		if err := e.Validate(); err == nil {
			t.Error("expected error for over-long description")
		}
	})
}

func TestOwedValidate(t *testing.T) {
	owed := OwedAmount{
		UserID:      "u1",
		Person:      "Alice",
		Amount:      Cents(500),
		Description: "lunch",
		Date:        date(2025, time.March, 10),
	}
	if err := owed.Validate(); err != nil {
		t.Fatalf("valid owed rejected: %v", err)
	}
	owed.Person = " "
	if err := owed.Validate(); !errors.Is(err, ErrEmptyPerson) {
		t.Errorf("got %v, want ErrEmptyPerson", err)
	}

	otm := OwedToMe{
		UserID:      "u1",
		Person:      "Bob",
		Amount:      Cents(500),
		Description: "tickets",
		Date:        date(2025, time.March, 10),
	}
	if err := otm.Validate(); err != nil {
		t.Fatalf("valid owed-to-me rejected: %v", err)
	}
	otm.Amount = Cents(0)
	if err := otm.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("got %v, want ErrInvalidAmount", err)
	}
}

func TestRecurringExpenseValidate(t *testing.T) {
	start := date(2025, time.March, 1)
	valid := RecurringExpense{
		UserID:      "u1",
		Category:    "Bills",
		Amount:      Cents(999),
		Description: "streaming",
		Frequency:   Monthly,
		StartDate:   start,
		NextDueDate: start,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid definition rejected: %v", err)
	}

	bad := valid
	bad.Frequency = "sometimes"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("got %v, want ErrInvalidFrequency", err)
	}

	bad = valid
	bad.NextDueDate = start.AddDate(0, 0, -1)
	if err := bad.Validate(); err == nil {
		t.Error("expected error when next due date precedes start date")
	}
}

func TestBudgetValidate(t *testing.T) {
	cases := []struct {
		name string
		b    Budget
		ok   bool
	}{
		{"overall", Budget{Scope: OverallScope(), Amount: Cents(10000), Month: "2025-03"}, true},
		{"category", Budget{Scope: CategoryScope("Groceries"), Amount: Cents(5000), Month: "2025-03"}, true},
		{"bad month key", Budget{Scope: OverallScope(), Amount: Cents(100), Month: "March 2025"}, false},
		{"blank category scope", Budget{Scope: CategoryScope("  "), Amount: Cents(100), Month: "2025-03"}, false},
		{"overall with category", Budget{Scope: BudgetScope{Kind: ScopeOverall, Category: "x"}, Amount: Cents(100), Month: "2025-03"}, false},
		{"zero amount", Budget{Scope: OverallScope(), Amount: Cents(0), Month: "2025-03"}, false},
		{"unknown kind", Budget{Scope: BudgetScope{Kind: "weird"}, Amount: Cents(100), Month: "2025-03"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.b.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBudgetScope(t *testing.T) {
	if !OverallScope().Matches("anything") {
		t.Error("overall scope must match every category")
	}
	if CategoryScope("Groceries").Matches("Transport") {
		t.Error("category scope must not match other categories")
	}
	if got := OverallScope().Label(); got != "Overall Budget" {
		t.Errorf("overall label = %q", got)
	}
	if got := CategoryScope("Transport").Label(); got != "Transport" {
		t.Errorf("category label = %q", got)
	}
}

func TestMonthKey(t *testing.T) {
	if got := MonthKey(date(2025, time.March, 15)); got != "2025-03" {
		t.Errorf("MonthKey = %q, want 2025-03", got)
	}
	y, m, err := ParseMonthKey("2025-03")
	if err != nil || y != 2025 || m != time.March {
		t.Errorf("ParseMonthKey = (%d, %s, %v)", y, m, err)
	}
	if _, _, err := ParseMonthKey("2025-13"); !errors.Is(err, ErrInvalidMonthKey) {
		t.Errorf("got %v, want ErrInvalidMonthKey", err)
	}
}
