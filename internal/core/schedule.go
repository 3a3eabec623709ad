package core

import "time"

// NextOccurrence returns the occurrence that follows t for the given
// frequency. Month and year steps clamp the day of month to the length of
// the target month, so a schedule anchored on Jan 31 lands on Feb 28 (or 29)
// rather than spilling into March.
func NextOccurrence(t time.Time, f Frequency) (time.Time, error) {
	switch f {
	case Daily:
		return t.AddDate(0, 0, 1), nil
	case Weekly:
		return t.AddDate(0, 0, 7), nil
	case Monthly:
		return addMonthsClamped(t, 1), nil
	case Yearly:
		return addMonthsClamped(t, 12), nil
	default:
		return time.Time{}, ErrInvalidFrequency
	}
}

// addMonthsClamped steps forward by whole months without the day-overflow
// normalization time.AddDate applies (Jan 31 + 1 month would otherwise
// become Mar 2/3).
func addMonthsClamped(t time.Time, months int) time.Time {
	anchor := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := anchor.AddDate(0, months, 0)
	day := t.Day()
	if max := daysIn(target.Year(), target.Month()); day > max {
		day = max
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn returns the number of calendar days in the given month.
func daysIn(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysInMonth exposes the calendar length of a month for reporting math.
func DaysInMonth(year int, month time.Month) int {
	return daysIn(year, month)
}
