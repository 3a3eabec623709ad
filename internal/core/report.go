package core

import (
	"sort"
	"time"
)

// OtherBucket is the synthetic category that absorbs long-tail spending in
// the category breakdown.
const OtherBucket = "Other"

type CategoryBucket struct {
	Category string
	Total    Money
}

type CategoryTotal struct {
	Category string
	Total    Money
}

// TotalSpend sums all expense amounts.
func TotalSpend(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// CategoryBuckets groups expenses by category for breakdown charts.
// Categories whose share of the total is under 5% are merged into the
// "Other" bucket, except the Repayment category, which always stays
// distinct so settlements remain visible. Buckets are sorted by total
// descending (ties keep encounter order) with "Other" always last, and
// their totals sum exactly to the input total.
func CategoryBuckets(expenses []Expense) []CategoryBucket {
	total := TotalSpend(expenses)
	if total.Cents == 0 {
		return nil
	}

	sums := make(map[string]int64)
	var order []string
	for _, e := range expenses {
		if _, seen := sums[e.Category]; !seen {
			order = append(order, e.Category)
		}
		sums[e.Category] += e.Amount.Cents
	}

	var buckets []CategoryBucket
	var other int64
	for _, cat := range order {
		sum := sums[cat]
		// sum < 5% of total, exactly, in integer arithmetic.
		if 20*sum < total.Cents && cat != CategoryRepayment {
			other += sum
			continue
		}
		buckets = append(buckets, CategoryBucket{Category: cat, Total: Cents(sum)})
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Total.Cents > buckets[j].Total.Cents
	})
	if other > 0 {
		buckets = append(buckets, CategoryBucket{Category: OtherBucket, Total: Cents(other)})
	}
	return buckets
}

// HighestExpense returns the single largest expense. On equal amounts the
// earliest element in input order wins. Returns false for empty input.
func HighestExpense(expenses []Expense) (Expense, bool) {
	if len(expenses) == 0 {
		return Expense{}, false
	}
	top := expenses[0]
	for _, e := range expenses[1:] {
		if e.Amount.Cents > top.Amount.Cents {
			top = e
		}
	}
	return top, true
}

// TopCategory returns the category with the largest combined spend. On
// equal totals the category encountered first wins. Returns false for
// empty input.
func TopCategory(expenses []Expense) (CategoryTotal, bool) {
	if len(expenses) == 0 {
		return CategoryTotal{}, false
	}
	sums := make(map[string]int64)
	var order []string
	for _, e := range expenses {
		if _, seen := sums[e.Category]; !seen {
			order = append(order, e.Category)
		}
		sums[e.Category] += e.Amount.Cents
	}
	top := CategoryTotal{Category: order[0], Total: Cents(sums[order[0]])}
	for _, cat := range order[1:] {
		if sums[cat] > top.Total.Cents {
			top = CategoryTotal{Category: cat, Total: Cents(sums[cat])}
		}
	}
	return top, true
}

// AverageDailySpend divides the total by the calendar length of the
// reporting month, half-up rounded to whole cents. The divisor is the full
// month, not the number of days elapsed or days with spending.
func AverageDailySpend(expenses []Expense, year int, month time.Month) Money {
	total := TotalSpend(expenses)
	days := int64(daysIn(year, month))
	return Cents((total.Cents*2 + days) / (days * 2))
}

// ProgressLevel classifies budget consumption for display.
type ProgressLevel string

const (
	LevelNormal   ProgressLevel = "normal"
	LevelWarning  ProgressLevel = "warning"
	LevelCritical ProgressLevel = "critical"
)

// Progress describes how far a budget has been consumed. Percent is nil
// when the budget amount is zero and the ratio is undefined; Remaining
// goes negative on overspend rather than clamping.
type Progress struct {
	Spent     Money
	Remaining Money
	Percent   *float64
	Level     ProgressLevel
}

// BudgetProgress measures expenses against a budget. Overall budgets count
// every expense, category budgets only their own.
func BudgetProgress(b Budget, expenses []Expense) Progress {
	var spent Money
	for _, e := range expenses {
		if b.Scope.Matches(e.Category) {
			spent = spent.Add(e.Amount)
		}
	}

	p := Progress{
		Spent:     spent,
		Remaining: Cents(b.Amount.Cents - spent.Cents),
		Level:     LevelNormal,
	}
	if b.Amount.Cents == 0 {
		return p
	}
	pct := float64(spent.Cents) / float64(b.Amount.Cents) * 100
	p.Percent = &pct
	switch {
	case pct > 100:
		p.Level = LevelCritical
	case pct > 75:
		p.Level = LevelWarning
	}
	return p
}

// MonthComparison contrasts the current calendar month's spend with the
// previous month's. PercentChange is nil when both months are zero; a
// previous month of zero with current spending reads as a flat +100%.
type MonthComparison struct {
	Current       Money
	Previous      Money
	PercentChange *float64
}

// CompareMonths computes month-over-month spend around now.
func CompareMonths(expenses []Expense, now time.Time) MonthComparison {
	curStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevStart := curStart.AddDate(0, -1, 0)

	var cur, prev int64
	for _, e := range expenses {
		switch {
		case sameMonth(e.Date, curStart):
			cur += e.Amount.Cents
		case sameMonth(e.Date, prevStart):
			prev += e.Amount.Cents
		}
	}

	c := MonthComparison{Current: Cents(cur), Previous: Cents(prev)}
	switch {
	case prev > 0:
		pct := (float64(cur) - float64(prev)) / float64(prev) * 100
		c.PercentChange = &pct
	case cur > 0:
		pct := 100.0
		c.PercentChange = &pct
	}
	return c
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// TrendPoint is one month's total in a spending trend series.
type TrendPoint struct {
	Year  int
	Month time.Month
	Total Money
}

// MonthlyTrend returns totals for the trailing twelve calendar months,
// including the current one, oldest first. Months without spending appear
// with a zero total so charts keep a continuous axis.
func MonthlyTrend(expenses []Expense, now time.Time) []TrendPoint {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	points := make([]TrendPoint, 12)
	index := make(map[string]int, 12)
	for i := 0; i < 12; i++ {
		m := first.AddDate(0, i-11, 0)
		points[i] = TrendPoint{Year: m.Year(), Month: m.Month()}
		index[MonthKey(m)] = i
	}
	for _, e := range expenses {
		if i, ok := index[MonthKey(e.Date)]; ok {
			points[i].Total = points[i].Total.Add(e.Amount)
		}
	}
	return points
}
