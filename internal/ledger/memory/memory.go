// Package memory provides an in-memory ledger store used by tests and
// local development. All operations are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type Store struct {
	mu        sync.RWMutex
	expenses  map[string]core.Expense
	owed      map[string]core.OwedAmount
	owedToMe  map[string]core.OwedToMe
	recurring map[string]core.RecurringExpense
	budgets   map[string]core.Budget
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		expenses:  make(map[string]core.Expense),
		owed:      make(map[string]core.OwedAmount),
		owedToMe:  make(map[string]core.OwedToMe),
		recurring: make(map[string]core.RecurringExpense),
		budgets:   make(map[string]core.Budget),
	}
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createExpenseLocked(e)
	return nil
}

func (s *Store) createExpenseLocked(e core.Expense) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	s.expenses[e.ID] = e
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return ledger.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, userID string, from, to *time.Time) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID != userID {
			continue
		}
		if from != nil && e.Date.Before(*from) {
			continue
		}
		if to != nil && e.Date.After(*to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) CreateOwed(_ context.Context, o core.OwedAmount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	s.owed[o.ID] = o
	return nil
}

func (s *Store) GetOwed(_ context.Context, userID, id string) (core.OwedAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.owed[id]
	if !ok || o.UserID != userID {
		return core.OwedAmount{}, ledger.ErrNotFound
	}
	return o, nil
}

func (s *Store) DeleteOwed(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteOwedLocked(userID, id)
}

func (s *Store) deleteOwedLocked(userID, id string) error {
	o, ok := s.owed[id]
	if !ok || o.UserID != userID {
		return ledger.ErrNotFound
	}
	delete(s.owed, id)
	return nil
}

func (s *Store) ListOwed(_ context.Context, userID string) ([]core.OwedAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.OwedAmount
	for _, o := range s.owed {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) CreateOwedToMe(_ context.Context, o core.OwedToMe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	s.owedToMe[o.ID] = o
	return nil
}

func (s *Store) GetOwedToMe(_ context.Context, userID, id string) (core.OwedToMe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.owedToMe[id]
	if !ok || o.UserID != userID {
		return core.OwedToMe{}, ledger.ErrNotFound
	}
	return o, nil
}

func (s *Store) DeleteOwedToMe(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteOwedToMeLocked(userID, id)
}

func (s *Store) deleteOwedToMeLocked(userID, id string) error {
	o, ok := s.owedToMe[id]
	if !ok || o.UserID != userID {
		return ledger.ErrNotFound
	}
	delete(s.owedToMe, id)
	return nil
}

func (s *Store) ListOwedToMe(_ context.Context, userID string) ([]core.OwedToMe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.OwedToMe
	for _, o := range s.owedToMe {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) CreateRecurring(_ context.Context, re core.RecurringExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if re.ID == "" {
		re.ID = uuid.New().String()
	}
	s.recurring[re.ID] = re
	return nil
}

func (s *Store) DeleteRecurring(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	re, ok := s.recurring[id]
	if !ok || re.UserID != userID {
		return ledger.ErrNotFound
	}
	delete(s.recurring, id)
	return nil
}

func (s *Store) ListRecurring(_ context.Context, userID string) ([]core.RecurringExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.RecurringExpense
	for _, re := range s.recurring {
		if re.UserID == userID {
			out = append(out, re)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextDueDate.Before(out[j].NextDueDate) })
	return out, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.UserID != userID {
		return ledger.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, userID, month string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID != userID {
			continue
		}
		if month != "" && b.Month != month {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scope.Label() < out[j].Scope.Label() })
	return out, nil
}

// Commit applies the batch under one lock acquisition. Deletes are checked
// before anything is written so a missing record leaves the store intact.
func (s *Store) Commit(_ context.Context, userID string, batch ledger.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range batch.OwedDeletes {
		if o, ok := s.owed[id]; !ok || o.UserID != userID {
			return ledger.ErrNotFound
		}
	}
	for _, id := range batch.OwedToMeDeletes {
		if o, ok := s.owedToMe[id]; !ok || o.UserID != userID {
			return ledger.ErrNotFound
		}
	}
	for _, re := range batch.RecurringUpdates {
		if prev, ok := s.recurring[re.ID]; !ok || prev.UserID != userID {
			return ledger.ErrNotFound
		}
	}

	for _, e := range batch.ExpenseCreates {
		s.createExpenseLocked(e)
	}
	for _, re := range batch.RecurringUpdates {
		s.recurring[re.ID] = re
	}
	for _, id := range batch.OwedDeletes {
		_ = s.deleteOwedLocked(userID, id)
	}
	for _, id := range batch.OwedToMeDeletes {
		_ = s.deleteOwedToMeLocked(userID, id)
	}
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, re := range s.recurring {
		if !seen[re.UserID] {
			seen[re.UserID] = true
			out = append(out, re.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
