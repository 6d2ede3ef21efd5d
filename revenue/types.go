/*
Package revenue provides the revenue allocation engine.

PURPOSE:
  Turns a contract value, a recognition period and an optional list of
  milestones into a time-ordered schedule of recognized revenue, and reduces
  a schedule into a forward-book summary (earned to date vs. unearned vs.
  remaining contracted value).

KEY CONCEPTS IN THIS FILE (types.go):
  - Method: Which recognition strategy produces the schedule
  - Kind: Tag carried by each schedule entry (display only)
  - Params: Immutable input to a calculation
  - Allocation: One dated, amount-bearing recognition event
  - ForwardBookSummary: Aggregate view of a schedule at an instant

DESIGN PRINCIPLES:
  1. Purity: Every calculation works only on its arguments and returns fresh slices
  2. Precision: Uses decimal.Decimal, amounts are rounded to a currency scale
  3. Explicit time: The only clock read happens through an injected Clock

USAGE:
  allocations, err := revenue.Calculate(revenue.Params{
      TotalValue: decimal.NewFromInt(9000),
      StartDate:  revenue.Date(2025, time.January, 15),
      EndDate:    revenue.Date(2025, time.March, 15),
      Method:     revenue.MethodStraightLine,
  })

SEE ALSO:
  - time.go: Month bucketing helpers
  - allocation.go: The allocators
  - forwardbook.go: Forward-book aggregation and clock injection
*/
package revenue

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// METHOD - Which recognition strategy is active
// =============================================================================

type Method string

const (
	MethodStraightLine       Method = "straight-line"
	MethodMilestoneBased     Method = "milestone-based"
	MethodPercentageComplete Method = "percentage-complete"
	MethodBilledBasis        Method = "billed-basis"
)

// Methods lists every supported method in display order.
var Methods = []Method{
	MethodStraightLine,
	MethodMilestoneBased,
	MethodPercentageComplete,
	MethodBilledBasis,
}

// ParseMethod converts a raw method name. An empty name selects straight-line.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return MethodStraightLine, nil
	}
	m := Method(s)
	if !m.Valid() {
		return "", &ParamError{Field: "method", Value: s, Err: ErrUnknownMethod}
	}
	return m, nil
}

func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// IsMonthly reports whether the method buckets revenue by calendar month.
// Monthly methods consume the date range; the others consume milestones.
func (m Method) IsMonthly() bool {
	return m == MethodStraightLine || m == MethodPercentageComplete || m == ""
}

// =============================================================================
// KIND - Entry tag
// =============================================================================

type Kind string

const (
	KindMilestone  Kind = "milestone"
	KindMonthly    Kind = "monthly"
	KindPercentage Kind = "percentage"
	KindBilled     Kind = "billed"
)

// LabelStyle selects how billed-basis entries are described.
type LabelStyle string

const (
	LabelBilledAmount        LabelStyle = "billed-amount"
	LabelBilledOnAchievement LabelStyle = "billed-on-achievement"
)

// DefaultCurrencyScale is the number of decimal places amounts are rounded to.
const DefaultCurrencyScale int32 = 2

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// Milestone is a named, dated, amount-bearing contractual event.
type Milestone struct {
	Name    string
	Amount  decimal.Decimal
	DueDate time.Time
}

// Params is the input to a calculation. It is never mutated.
type Params struct {
	TotalValue decimal.Decimal
	StartDate  time.Time
	EndDate    time.Time
	Method     Method
	Milestones []Milestone

	// BilledLabel only affects billed-basis descriptions.
	BilledLabel LabelStyle

	// Scale is the currency scale; zero means DefaultCurrencyScale.
	Scale int32
}

func (p Params) scale() int32 {
	if p.Scale <= 0 {
		return DefaultCurrencyScale
	}
	return p.Scale
}

// Allocation is one recognition event in a schedule.
type Allocation struct {
	Amount          decimal.Decimal
	RecognitionDate time.Time
	Kind            Kind
	Description     string
}

// ForwardBookSummary reduces a schedule at a given instant.
//
// Unearned is driven by the externally tracked actual revenue figure while
// ForwardBook is driven by the schedule's own earned-to-date. They answer
// different questions and are never derived from one another.
type ForwardBookSummary struct {
	TotalContracted decimal.Decimal
	EarnedToDate    decimal.Decimal
	Unearned        decimal.Decimal
	ForwardBook     decimal.Decimal
	AsOf            time.Time
}

// Sum adds up the amounts of a schedule.
func Sum(allocations []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return total
}
