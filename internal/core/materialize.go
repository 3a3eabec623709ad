package core

import (
	"fmt"
	"time"
)

// MaterializationPlan is the outcome of evaluating recurring schedules
// against a point in time. Expenses holds the concrete entries to create
// and Recurring the schedule updates that must land in the same atomic
// write, so a definition is never advanced without its expense or vice
// versa.
type MaterializationPlan struct {
	Expenses  []Expense
	Recurring []RecurringExpense
}

// Empty reports whether the plan contains no work. An empty plan must not
// cause any store write.
func (p MaterializationPlan) Empty() bool {
	return len(p.Expenses) == 0 && len(p.Recurring) == 0
}

// PlanMaterialization inspects recurring definitions and emits one expense
// for each definition whose NextDueDate has arrived (NextDueDate <= now).
// The expense is dated now, the moment of materialization, not the due
// date. Each due definition is advanced exactly one period from its
// previous NextDueDate; a definition overdue by several periods catches up
// across successive runs rather than flooding a single one.
//
// The function is pure: it never assigns IDs and never touches a store.
func PlanMaterialization(defs []RecurringExpense, now time.Time) (MaterializationPlan, error) {
	var plan MaterializationPlan
	for _, def := range defs {
		if def.NextDueDate.After(now) {
			continue
		}
		next, err := NextOccurrence(def.NextDueDate, def.Frequency)
		if err != nil {
			return MaterializationPlan{}, fmt.Errorf("advancing schedule %q: %w", def.ID, err)
		}
		plan.Expenses = append(plan.Expenses, Expense{
			UserID:      def.UserID,
			Category:    def.Category,
			Amount:      def.Amount,
			Description: def.Description,
			Date:        now,
		})
		def.NextDueDate = next
		plan.Recurring = append(plan.Recurring, def)
	}
	return plan, nil
}
