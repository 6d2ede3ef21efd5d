package revenue

import "time"

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

// MaxScheduleMonths bounds the length of a monthly schedule (100 years).
const MaxScheduleMonths = 1200

// Date builds a calendar date at noon UTC. Noon keeps the calendar day stable
// when the value is later rendered in another time zone.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// StartOfMonth returns the first day of t's month, keeping time of day and location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// EndOfMonth returns the last day of t's month, keeping time of day and location.
func EndOfMonth(t time.Time) time.Time {
	// Day 0 of the next month is the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// MonthsBetween counts calendar months in [start, end] inclusively.
// Aug 1 to Dec 31 is Aug, Sep, Oct, Nov, Dec = 5. The result is never below 1,
// so same-month and inverted ranges yield a single bucket.
func MonthsBetween(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
	if months < 1 {
		return 1
	}
	return months
}

// SameOrBeforeDay compares calendar days, ignoring time of day.
func SameOrBeforeDay(a, b time.Time) bool {
	return !calendarDay(a).After(calendarDay(b))
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// MONTH CURSOR
// =============================================================================

// MonthCursor walks month ends one calendar month at a time.
//
// Stepping goes through the first of the month so that Jan 31 advances to
// Feb 28/29 rather than overflowing into March.
type MonthCursor struct {
	current time.Time
}

// NewMonthCursor starts at the end of the month containing t.
func NewMonthCursor(t time.Time) *MonthCursor {
	return &MonthCursor{current: EndOfMonth(t)}
}

// Date returns the current month end.
func (c *MonthCursor) Date() time.Time {
	return c.current
}

// Next advances one calendar month and returns the new month end.
func (c *MonthCursor) Next() time.Time {
	c.current = EndOfMonth(StartOfMonth(c.current).AddDate(0, 1, 0))
	return c.current
}
