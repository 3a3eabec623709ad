// Package ledger defines the persistence port for the finance ledger and
// the batch type used for atomic multi-record writes.
package ledger

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"
)

// ErrNotFound is returned by Get and Delete operations when no record with
// the given ID exists for the user.
var ErrNotFound = errors.New("record not found")

// Batch groups writes that must land atomically or not at all. It carries
// exactly the shapes materialization and settlement need: expense creates
// paired with recurring-schedule advances, and owed-record deletions paired
// with the repayment expense that replaces them.
type Batch struct {
	ExpenseCreates   []core.Expense
	RecurringUpdates []core.RecurringExpense
	OwedDeletes      []string
	OwedToMeDeletes  []string
}

// Empty reports whether committing the batch would write nothing.
func (b Batch) Empty() bool {
	return len(b.ExpenseCreates) == 0 && len(b.RecurringUpdates) == 0 &&
		len(b.OwedDeletes) == 0 && len(b.OwedToMeDeletes) == 0
}

// Store is the ledger persistence port. All operations are scoped to a
// single user; implementations must never leak records across users.
//
// ListExpenses returns expenses ordered by date descending; from and to are
// optional inclusive bounds. ListRecurring returns definitions ordered by
// next due date ascending. Commit applies the batch atomically: a failure
// leaves the store untouched.
type Store interface {
	CreateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, userID, id string) error
	ListExpenses(ctx context.Context, userID string, from, to *time.Time) ([]core.Expense, error)

	CreateOwed(ctx context.Context, o core.OwedAmount) error
	GetOwed(ctx context.Context, userID, id string) (core.OwedAmount, error)
	DeleteOwed(ctx context.Context, userID, id string) error
	ListOwed(ctx context.Context, userID string) ([]core.OwedAmount, error)

	CreateOwedToMe(ctx context.Context, o core.OwedToMe) error
	GetOwedToMe(ctx context.Context, userID, id string) (core.OwedToMe, error)
	DeleteOwedToMe(ctx context.Context, userID, id string) error
	ListOwedToMe(ctx context.Context, userID string) ([]core.OwedToMe, error)

	CreateRecurring(ctx context.Context, re core.RecurringExpense) error
	DeleteRecurring(ctx context.Context, userID, id string) error
	ListRecurring(ctx context.Context, userID string) ([]core.RecurringExpense, error)

	CreateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, userID, id string) error
	ListBudgets(ctx context.Context, userID, month string) ([]core.Budget, error)

	Commit(ctx context.Context, userID string, batch Batch) error

	// ListUsers returns the IDs of users that may have recurring work
	// pending. Backends may over-approximate; the materializer tolerates
	// users with nothing due.
	ListUsers(ctx context.Context) ([]string, error)

	Close() error
}
