package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// CategoryRepayment is the reserved category used for expenses created by
// settling an owed amount. It is never folded into the "Other" bucket.
const CategoryRepayment = "Repayment"

type (
	Frequency string

	Money struct {
		Cents int64
	}

	// RepaymentDetails links a settlement expense back to the owed record
	// it was derived from, for audit display.
	RepaymentDetails struct {
		Person              string
		OriginalDescription string
	}

	Expense struct {
		ID          string
		UserID      string
		Category    string
		Amount      Money
		Description string
		Date        time.Time
		Repayment   *RepaymentDetails
	}

	// OwedAmount is money the user owes to someone else. Settling it is
	// terminal: the record is deleted and replaced by a Repayment expense.
	OwedAmount struct {
		ID          string
		UserID      string
		Person      string
		Amount      Money
		Description string
		Date        time.Time
		Paid        bool
	}

	// OwedToMe is money someone else owes the user. Settling it deletes
	// the record without creating any ledger entry.
	OwedToMe struct {
		ID          string
		UserID      string
		Person      string
		Amount      Money
		Description string
		Date        time.Time
		Received    bool
	}

	// RecurringExpense is a schedule template. NextDueDate starts equal to
	// StartDate and is advanced only by materialization, one period at a
	// time, strictly increasing.
	RecurringExpense struct {
		ID          string
		UserID      string
		Category    string
		Amount      Money
		Description string
		Frequency   Frequency
		StartDate   time.Time
		NextDueDate time.Time
	}

	Budget struct {
		ID     string
		UserID string
		Scope  BudgetScope
		Amount Money
		Month  string // "2006-01" month key
	}
)

// ScopeKind distinguishes an overall budget from a per-category one.
// Modelled as an explicit variant so an overall budget cannot be confused
// with an empty "uncategorized" category.
type ScopeKind string

const (
	ScopeOverall  ScopeKind = "overall"
	ScopeCategory ScopeKind = "category"
)

type BudgetScope struct {
	Kind     ScopeKind
	Category string // set only when Kind == ScopeCategory
}

func OverallScope() BudgetScope {
	return BudgetScope{Kind: ScopeOverall}
}

func CategoryScope(name string) BudgetScope {
	return BudgetScope{Kind: ScopeCategory, Category: name}
}

// Matches reports whether an expense of the given category counts against
// this scope. An overall scope matches everything.
func (s BudgetScope) Matches(category string) bool {
	return s.Kind == ScopeOverall || s.Category == category
}

// Label returns the display name used in list views.
func (s BudgetScope) Label() string {
	if s.Kind == ScopeOverall {
		return "Overall Budget"
	}
	return s.Category
}

func (s BudgetScope) Validate() error {
	switch s.Kind {
	case ScopeOverall:
		if s.Category != "" {
			return errors.New("overall budget must not carry a category")
		}
		return nil
	case ScopeCategory:
		if strings.TrimSpace(s.Category) == "" {
			return ErrEmptyCategory
		}
		return nil
	default:
		return errors.New("invalid budget scope")
	}
}

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidMonthKey  = errors.New("invalid month key")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyPerson      = errors.New("empty person")
)

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MonthKey formats a time as the "2006-01" key budgets are stored under.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ParseMonthKey validates and parses a "2006-01" month key.
func ParseMonthKey(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, ErrInvalidMonthKey
	}
	return t.Year(), t.Month(), nil
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if len(desc) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := validateDescription(e.Description); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (o OwedAmount) Validate() error {
	if o.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(o.Person) == "" {
		return ErrEmptyPerson
	}
	if err := validateDescription(o.Description); err != nil {
		return err
	}
	return o.Amount.Validate()
}

func (o OwedToMe) Validate() error {
	if o.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(o.Person) == "" {
		return ErrEmptyPerson
	}
	if err := validateDescription(o.Description); err != nil {
		return err
	}
	return o.Amount.Validate()
}

func (re RecurringExpense) Validate() error {
	if re.StartDate.IsZero() {
		return ErrInvalidDate
	}
	if re.NextDueDate.Before(re.StartDate) {
		return errors.New("next due date must not precede start date")
	}
	if err := re.Frequency.Validate(); err != nil {
		return err
	}
	if err := validateDescription(re.Description); err != nil {
		return err
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(re.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Scope.Validate(); err != nil {
		return err
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if _, _, err := ParseMonthKey(b.Month); err != nil {
		return err
	}
	return nil
}
