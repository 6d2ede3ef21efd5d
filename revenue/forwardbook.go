package revenue

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLOCK - The engine's only time source
// =============================================================================

// Clock supplies "now" to the forward-book aggregation.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine binds the allocators to a clock.
//
// Allocation is a pure function of its parameters. The forward book is not:
// re-running it on a later date moves entries from forward book into
// earned-to-date with no other input changing, so the clock is explicit.
type Engine struct {
	Clock Clock
}

// NewEngine returns an engine reading time from clock. A nil clock uses SystemClock.
func NewEngine(clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	return &Engine{Clock: clock}
}

// Allocate is Calculate.
func (e *Engine) Allocate(p Params) ([]Allocation, error) {
	return Calculate(p)
}

// ForwardBook aggregates allocations as of the engine clock's current time.
func (e *Engine) ForwardBook(allocations []Allocation, actualRevenue decimal.Decimal) ForwardBookSummary {
	return CalculateForwardBook(allocations, actualRevenue, e.now())
}

func (e *Engine) now() time.Time {
	if e == nil || e.Clock == nil {
		return SystemClock.Now()
	}
	return e.Clock.Now()
}

// CalculateForwardBook reduces a schedule as of asOf.
//
//   - TotalContracted: sum of all amounts
//   - EarnedToDate: sum of amounts recognized on or before asOf's calendar day
//   - Unearned: max(0, TotalContracted - actualRevenue)
//   - ForwardBook: max(0, TotalContracted - EarnedToDate)
func CalculateForwardBook(allocations []Allocation, actualRevenue decimal.Decimal, asOf time.Time) ForwardBookSummary {
	total := decimal.Zero
	earned := decimal.Zero

	for _, a := range allocations {
		total = total.Add(a.Amount)
		if SameOrBeforeDay(a.RecognitionDate, asOf) {
			earned = earned.Add(a.Amount)
		}
	}

	return ForwardBookSummary{
		TotalContracted: total,
		EarnedToDate:    earned,
		Unearned:        decimal.Max(decimal.Zero, total.Sub(actualRevenue)),
		ForwardBook:     decimal.Max(decimal.Zero, total.Sub(earned)),
		AsOf:            asOf,
	}
}
