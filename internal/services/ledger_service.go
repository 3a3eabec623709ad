package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/ledger"
)

// ErrDuplicateBudget is returned when a budget already exists for the same
// month and scope.
var ErrDuplicateBudget = errors.New("budget already exists for this month and scope")

// LedgerService covers single-record CRUD plus the read-side reports.
// Writes validate in core, assign IDs, hit the store, then publish a
// fire-and-forget event; the request never waits on the broker.
type LedgerService struct {
	store ledger.Store
	bus   *events.Client
}

func NewLedgerService(store ledger.Store, bus *events.Client) *LedgerService {
	return &LedgerService{store: store, bus: bus}
}

func (s *LedgerService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.New().String()
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"user_id", e.UserID,
		"expense_id", e.ID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)

	event := events.NewLedgerEvent(events.KindExpenseCreated, e.UserID)
	event.RecordID = e.ID
	event.AmountCents = e.Amount.Cents
	event.Category = e.Category
	s.bus.PublishAsync(event)

	return e, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	event := events.NewLedgerEvent(events.KindExpenseDeleted, userID)
	event.RecordID = id
	s.bus.PublishAsync(event)
	return nil
}

// ListExpenses returns the user's expenses newest first, optionally
// bounded by date and filtered by a case-insensitive description or
// category match.
func (s *LedgerService) ListExpenses(ctx context.Context, userID string, from, to *time.Time, search string) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if search == "" {
		return expenses, nil
	}
	needle := strings.ToLower(search)
	filtered := expenses[:0]
	for _, e := range expenses {
		if strings.Contains(strings.ToLower(e.Description), needle) ||
			strings.Contains(strings.ToLower(e.Category), needle) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func (s *LedgerService) AddOwed(ctx context.Context, o core.OwedAmount) (core.OwedAmount, error) {
	if err := o.Validate(); err != nil {
		return core.OwedAmount{}, err
	}
	o.ID = uuid.New().String()
	if err := s.store.CreateOwed(ctx, o); err != nil {
		return core.OwedAmount{}, fmt.Errorf("create owed amount: %w", err)
	}
	return o, nil
}

func (s *LedgerService) DeleteOwed(ctx context.Context, userID, id string) error {
	return s.store.DeleteOwed(ctx, userID, id)
}

// ListOwed returns outstanding debts only; settled records are deleted and
// records flagged paid are hidden from the default view.
func (s *LedgerService) ListOwed(ctx context.Context, userID string) ([]core.OwedAmount, error) {
	all, err := s.store.ListOwed(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owed amounts: %w", err)
	}
	open := all[:0]
	for _, o := range all {
		if !o.Paid {
			open = append(open, o)
		}
	}
	return open, nil
}

func (s *LedgerService) AddOwedToMe(ctx context.Context, o core.OwedToMe) (core.OwedToMe, error) {
	if err := o.Validate(); err != nil {
		return core.OwedToMe{}, err
	}
	o.ID = uuid.New().String()
	if err := s.store.CreateOwedToMe(ctx, o); err != nil {
		return core.OwedToMe{}, fmt.Errorf("create owed-to-me: %w", err)
	}
	return o, nil
}

func (s *LedgerService) DeleteOwedToMe(ctx context.Context, userID, id string) error {
	return s.store.DeleteOwedToMe(ctx, userID, id)
}

func (s *LedgerService) ListOwedToMe(ctx context.Context, userID string) ([]core.OwedToMe, error) {
	all, err := s.store.ListOwedToMe(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owed-to-me: %w", err)
	}
	open := all[:0]
	for _, o := range all {
		if !o.Received {
			open = append(open, o)
		}
	}
	return open, nil
}

// AddRecurring stores a new schedule definition. The first occurrence is
// due on the start date itself, so NextDueDate starts there.
func (s *LedgerService) AddRecurring(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	re.NextDueDate = re.StartDate
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	re.ID = uuid.New().String()
	if err := s.store.CreateRecurring(ctx, re); err != nil {
		return core.RecurringExpense{}, fmt.Errorf("create recurring expense: %w", err)
	}
	return re, nil
}

func (s *LedgerService) DeleteRecurring(ctx context.Context, userID, id string) error {
	return s.store.DeleteRecurring(ctx, userID, id)
}

func (s *LedgerService) ListRecurring(ctx context.Context, userID string) ([]core.RecurringExpense, error) {
	return s.store.ListRecurring(ctx, userID)
}

// AddBudget rejects a second budget for the same month and scope.
func (s *LedgerService) AddBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	existing, err := s.store.ListBudgets(ctx, b.UserID, b.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("list budgets: %w", err)
	}
	for _, other := range existing {
		if other.Scope == b.Scope {
			return core.Budget{}, ErrDuplicateBudget
		}
	}
	b.ID = uuid.New().String()
	if err := s.store.CreateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, userID, id string) error {
	return s.store.DeleteBudget(ctx, userID, id)
}

func (s *LedgerService) ListBudgets(ctx context.Context, userID, month string) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, userID, month)
}

// MonthReport aggregates one calendar month of spending.
type MonthReport struct {
	Year              int
	Month             time.Month
	Total             core.Money
	Buckets           []core.CategoryBucket
	Highest           *core.Expense
	TopCategory       *core.CategoryTotal
	AverageDailySpend core.Money
}

func (s *LedgerService) MonthReport(ctx context.Context, userID string, year int, month time.Month) (MonthReport, error) {
	expenses, err := s.monthExpenses(ctx, userID, year, month)
	if err != nil {
		return MonthReport{}, err
	}

	report := MonthReport{
		Year:              year,
		Month:             month,
		Total:             core.TotalSpend(expenses),
		Buckets:           core.CategoryBuckets(expenses),
		AverageDailySpend: core.AverageDailySpend(expenses, year, month),
	}
	if highest, ok := core.HighestExpense(expenses); ok {
		report.Highest = &highest
	}
	if top, ok := core.TopCategory(expenses); ok {
		report.TopCategory = &top
	}
	return report, nil
}

// BudgetStatus pairs a budget with its consumption for the month view.
type BudgetStatus struct {
	Budget   core.Budget
	Progress core.Progress
}

func (s *LedgerService) BudgetProgress(ctx context.Context, userID, month string) ([]BudgetStatus, error) {
	year, m, err := core.ParseMonthKey(month)
	if err != nil {
		return nil, err
	}
	budgets, err := s.store.ListBudgets(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	expenses, err := s.monthExpenses(ctx, userID, year, m)
	if err != nil {
		return nil, err
	}

	statuses := make([]BudgetStatus, len(budgets))
	for i, b := range budgets {
		statuses[i] = BudgetStatus{Budget: b, Progress: core.BudgetProgress(b, expenses)}
	}
	return statuses, nil
}

func (s *LedgerService) CompareMonths(ctx context.Context, userID string, now time.Time) (core.MonthComparison, error) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	expenses, err := s.store.ListExpenses(ctx, userID, &from, nil)
	if err != nil {
		return core.MonthComparison{}, fmt.Errorf("list expenses: %w", err)
	}
	return core.CompareMonths(expenses, now), nil
}

func (s *LedgerService) MonthlyTrend(ctx context.Context, userID string, now time.Time) ([]core.TrendPoint, error) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	expenses, err := s.store.ListExpenses(ctx, userID, &from, nil)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return core.MonthlyTrend(expenses, now), nil
}

func (s *LedgerService) monthExpenses(ctx context.Context, userID string, year int, month time.Month) ([]core.Expense, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	expenses, err := s.store.ListExpenses(ctx, userID, &from, &to)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}
