/*
allocation.go - Revenue allocators

PURPOSE:
  Implements the four recognition methods. Monthly methods spread the total
  value across calendar months; dated methods pass milestones through.

ALLOCATION METHODS:
  Straight-line:
    - One "monthly" entry per calendar month in [start, end]
    - Bucket i is round(total*(i+1)/N) - round(total*i/N), so every bucket
      is within one unit of the scale of total/N and the sum is exact:
      $100 over 3 months is 33.33, 33.34, 33.33

  Percentage-complete:
    - Same buckets and amounts as straight-line, labelled with the
      cumulative completion percentage. A non-linear completion curve only
      has to replace the k/N fraction in linearSplit.

  Milestone-based / Billed-basis:
    - One entry per milestone, input order preserved, due date verbatim
    - Share one core; they differ only in Kind and label

VALIDATION:
  Monthly methods reject missing dates, inverted ranges and ranges longer
  than MaxScheduleMonths. Amount sanity (negative totals, milestone sums that
  diverge from the contract value) is a caller concern and is reported as
  warnings by the contract package.

SEE ALSO:
  - time.go: MonthsBetween, MonthCursor
  - forwardbook.go: Aggregation of the resulting schedule
*/
package revenue

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Calculate produces the schedule for params.Method.
func Calculate(p Params) ([]Allocation, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	switch p.Method {
	case MethodStraightLine, "":
		return StraightLine(p.TotalValue, p.StartDate, p.EndDate, p.scale()), nil
	case MethodPercentageComplete:
		return PercentageComplete(p.TotalValue, p.StartDate, p.EndDate, p.scale()), nil
	case MethodMilestoneBased:
		return MilestoneBased(p.Milestones), nil
	case MethodBilledBasis:
		return BilledBasis(p.Milestones, p.BilledLabel), nil
	default:
		return nil, &ParamError{Field: "method", Value: string(p.Method), Err: ErrUnknownMethod}
	}
}

// Validate checks the parameters the selected method depends on.
func Validate(p Params) error {
	if p.Method != "" && !p.Method.Valid() {
		return &ParamError{Field: "method", Value: string(p.Method), Err: ErrUnknownMethod}
	}
	if !p.Method.IsMonthly() {
		return nil
	}

	if p.StartDate.IsZero() {
		return &ParamError{Field: "start_date", Err: ErrMissingDate}
	}
	if p.EndDate.IsZero() {
		return &ParamError{Field: "end_date", Err: ErrMissingDate}
	}
	if !SameOrBeforeDay(p.StartDate, p.EndDate) {
		return &ParamError{
			Field: "end_date",
			Value: p.EndDate.Format("2006-01-02"),
			Err:   ErrInvalidPeriod,
		}
	}
	if n := MonthsBetween(p.StartDate, p.EndDate); n > MaxScheduleMonths {
		return &ParamError{Field: "end_date", Value: fmt.Sprintf("%d months", n), Err: ErrRangeTooLong}
	}
	return nil
}

// =============================================================================
// MONTHLY METHODS
// =============================================================================

// StraightLine spreads total evenly over the calendar months of [start, end].
func StraightLine(total decimal.Decimal, start, end time.Time, scale int32) []Allocation {
	months := MonthsBetween(start, end)
	amounts := linearSplit(total, months, scale)

	allocations := make([]Allocation, 0, months)
	cursor := NewMonthCursor(start)
	for i, amount := range amounts {
		allocations = append(allocations, Allocation{
			Amount:          amount,
			RecognitionDate: cursor.Date(),
			Kind:            KindMonthly,
			Description:     fmt.Sprintf("Month %d of %d — Straight-line allocation", i+1, months),
		})
		cursor.Next()
	}
	return allocations
}

var hundred = decimal.NewFromInt(100)

// PercentageComplete recognizes the increase of a linear completion curve each month.
func PercentageComplete(total decimal.Decimal, start, end time.Time, scale int32) []Allocation {
	months := MonthsBetween(start, end)
	n := decimal.NewFromInt(int64(months))
	amounts := linearSplit(total, months, scale)

	allocations := make([]Allocation, 0, months)
	cursor := NewMonthCursor(start)
	for i, amount := range amounts {
		fraction := decimal.NewFromInt(int64(i + 1)).Div(n)
		allocations = append(allocations, Allocation{
			Amount:          amount,
			RecognitionDate: cursor.Date(),
			Kind:            KindPercentage,
			Description:     fraction.Mul(hundred).StringFixed(1) + "% complete",
		})
		cursor.Next()
	}
	return allocations
}

// linearSplit divides total into months amounts as differences of the
// rounded cumulative totals. Rounding errors never accumulate: each amount
// differs from total/months by at most one unit of scale and the amounts
// sum to total rounded to scale.
func linearSplit(total decimal.Decimal, months int, scale int32) []decimal.Decimal {
	n := decimal.NewFromInt(int64(months))
	amounts := make([]decimal.Decimal, 0, months)
	previous := decimal.Zero
	for i := 1; i <= months; i++ {
		cumulative := total.Mul(decimal.NewFromInt(int64(i))).Div(n).Round(scale)
		if i == months {
			cumulative = total.Round(scale)
		}
		amounts = append(amounts, cumulative.Sub(previous))
		previous = cumulative
	}
	return amounts
}

// =============================================================================
// DATED METHODS
// =============================================================================

type labelFunc func(i int, m Milestone) string

// MilestoneBased recognizes each milestone on its due date, in input order.
func MilestoneBased(milestones []Milestone) []Allocation {
	return dated(milestones, KindMilestone, func(_ int, m Milestone) string {
		return "Milestone: " + m.Name
	})
}

// BilledBasis recognizes each billing event on its date, in input order.
func BilledBasis(milestones []Milestone, style LabelStyle) []Allocation {
	label := func(i int, m Milestone) string {
		return fmt.Sprintf("Billed amount %d: %s", i+1, m.Name)
	}
	if style == LabelBilledOnAchievement {
		label = func(_ int, m Milestone) string {
			return "Billed on achievement: " + m.Name
		}
	}
	return dated(milestones, KindBilled, label)
}

func dated(milestones []Milestone, kind Kind, label labelFunc) []Allocation {
	allocations := make([]Allocation, 0, len(milestones))
	for i, m := range milestones {
		allocations = append(allocations, Allocation{
			Amount:          m.Amount,
			RecognitionDate: m.DueDate,
			Kind:            kind,
			Description:     label(i, m),
		})
	}
	return allocations
}
