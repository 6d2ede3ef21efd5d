package revenue_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/contract-revenue/revenue"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) time.Time {
	return revenue.Date(year, month, day)
}

func usd(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !usd(want).Equal(got) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

// =============================================================================
// STRAIGHT-LINE
// =============================================================================

func TestStraightLine_ThreeMonths_EvenSplit(t *testing.T) {
	// GIVEN: $9000 between Jan 15 and Mar 15
	// WHEN: Allocating straight-line
	// THEN: 3 buckets of 3000 at each month end

	allocations, err := revenue.Calculate(revenue.Params{
		TotalValue: usd("9000"),
		StartDate:  date(2025, time.January, 15),
		EndDate:    date(2025, time.March, 15),
		Method:     revenue.MethodStraightLine,
	})
	require.NoError(t, err)
	require.Len(t, allocations, 3)

	wantDates := []time.Time{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
	}
	for i, a := range allocations {
		assertAmount(t, "3000", a.Amount, "bucket %d", i)
		assert.True(t, wantDates[i].Equal(a.RecognitionDate), "bucket %d: got %v", i, a.RecognitionDate)
		assert.Equal(t, revenue.KindMonthly, a.Kind)
	}
	assert.Equal(t, "Month 1 of 3 — Straight-line allocation", allocations[0].Description)
	assert.Equal(t, "Month 3 of 3 — Straight-line allocation", allocations[2].Description)

	assertAmount(t, "9000", revenue.Sum(allocations))
}

func TestStraightLine_RemainderSpreadAcrossBuckets(t *testing.T) {
	// GIVEN: $100 over 3 months (does not divide to the cent)
	// WHEN: Allocating straight-line
	// THEN: 33.33, 33.34, 33.33 and the sum is exactly 100

	allocations := revenue.StraightLine(usd("100"), date(2025, time.April, 1), date(2025, time.June, 30), 2)
	require.Len(t, allocations, 3)

	assertAmount(t, "33.33", allocations[0].Amount)
	assertAmount(t, "33.34", allocations[1].Amount)
	assertAmount(t, "33.33", allocations[2].Amount)
	assertAmount(t, "100", revenue.Sum(allocations))
}

func TestMonthlyMethods_LongRangesStayEven(t *testing.T) {
	// GIVEN: Small totals over long ranges, where per-bucket rounding
	//        errors would pile up in a single remainder bucket
	// WHEN: Allocating with either monthly method
	// THEN: No bucket is negative, every bucket is within a cent of
	//       total/N, and the sum is exactly the total

	tests := []struct {
		total  string
		months int
	}{
		{"1.00", 60},
		{"1000", 600},
		{"100", 1200},
	}

	cent := usd("0.01")
	start := date(2025, time.January, 1)
	for _, tt := range tests {
		end := start.AddDate(0, tt.months-1, 0)
		total := usd(tt.total)
		even := total.Div(decimal.NewFromInt(int64(tt.months)))

		for _, method := range []revenue.Method{revenue.MethodStraightLine, revenue.MethodPercentageComplete} {
			t.Run(fmt.Sprintf("%s/%s over %d months", method, tt.total, tt.months), func(t *testing.T) {
				allocations, err := revenue.Calculate(revenue.Params{
					TotalValue: total, StartDate: start, EndDate: end, Method: method,
				})
				require.NoError(t, err)
				require.Len(t, allocations, tt.months)

				for i, a := range allocations {
					assert.False(t, a.Amount.IsNegative(), "bucket %d is %s", i, a.Amount)
					assert.True(t, a.Amount.Sub(even).Abs().LessThanOrEqual(cent),
						"bucket %d is %s, want about %s", i, a.Amount, even.StringFixed(4))
				}
				assertAmount(t, tt.total, revenue.Sum(allocations))
			})
		}
	}
}

func TestStraightLine_SameMonth_SingleBucket(t *testing.T) {
	allocations := revenue.StraightLine(usd("1200"), date(2025, time.May, 3), date(2025, time.May, 20), 2)

	require.Len(t, allocations, 1)
	assertAmount(t, "1200", allocations[0].Amount)
	assert.True(t, date(2025, time.May, 31).Equal(allocations[0].RecognitionDate))
}

func TestStraightLine_CrossesYearAndLeapFebruary(t *testing.T) {
	allocations := revenue.StraightLine(usd("400"), date(2023, time.December, 31), date(2024, time.March, 1), 2)

	require.Len(t, allocations, 4)
	assert.True(t, date(2023, time.December, 31).Equal(allocations[0].RecognitionDate))
	assert.True(t, date(2024, time.January, 31).Equal(allocations[1].RecognitionDate))
	assert.True(t, date(2024, time.February, 29).Equal(allocations[2].RecognitionDate))
	assert.True(t, date(2024, time.March, 31).Equal(allocations[3].RecognitionDate))
}

// =============================================================================
// PERCENTAGE-COMPLETE
// =============================================================================

func TestPercentageComplete_MatchesLinearCurve(t *testing.T) {
	// GIVEN: $5000 over 5 months
	// WHEN: Allocating by percentage complete
	// THEN: 1000 per month with the cumulative percentage in the description

	allocations, err := revenue.Calculate(revenue.Params{
		TotalValue: usd("5000"),
		StartDate:  date(2025, time.August, 1),
		EndDate:    date(2025, time.December, 31),
		Method:     revenue.MethodPercentageComplete,
	})
	require.NoError(t, err)
	require.Len(t, allocations, 5)

	wantDescriptions := []string{"20.0% complete", "40.0% complete", "60.0% complete", "80.0% complete", "100.0% complete"}
	for i, a := range allocations {
		assertAmount(t, "1000", a.Amount, "bucket %d", i)
		assert.Equal(t, revenue.KindPercentage, a.Kind)
		assert.Equal(t, wantDescriptions[i], a.Description)
	}
	assert.True(t, date(2025, time.December, 31).Equal(allocations[4].RecognitionDate))
}

func TestPercentageComplete_CumulativeDifferenceSumsToTotal(t *testing.T) {
	allocations := revenue.PercentageComplete(usd("100"), date(2025, time.January, 1), date(2025, time.March, 1), 2)
	require.Len(t, allocations, 3)

	// cumulative: 33.33, 66.67, 100.00
	assertAmount(t, "33.33", allocations[0].Amount)
	assertAmount(t, "33.34", allocations[1].Amount)
	assertAmount(t, "33.33", allocations[2].Amount)
	assertAmount(t, "100", revenue.Sum(allocations))
	assert.Equal(t, "33.3% complete", allocations[0].Description)
}

// =============================================================================
// MILESTONE METHODS
// =============================================================================

func TestMilestoneBased_PreservesInputOrder(t *testing.T) {
	// GIVEN: Milestones supplied out of date order
	// WHEN: Allocating milestone-based
	// THEN: Output keeps [B, A], amounts and dates verbatim

	milestones := []revenue.Milestone{
		{Name: "B", Amount: usd("10"), DueDate: date(2025, time.June, 1)},
		{Name: "A", Amount: usd("5"), DueDate: date(2025, time.March, 1)},
	}

	allocations := revenue.MilestoneBased(milestones)
	require.Len(t, allocations, 2)

	assert.Equal(t, "Milestone: B", allocations[0].Description)
	assert.Equal(t, "Milestone: A", allocations[1].Description)
	assertAmount(t, "10", allocations[0].Amount)
	assert.True(t, date(2025, time.June, 1).Equal(allocations[0].RecognitionDate))
	assert.Equal(t, revenue.KindMilestone, allocations[1].Kind)
}

func TestBilledBasis_LabelStyles(t *testing.T) {
	milestones := []revenue.Milestone{
		{Name: "Kickoff", Amount: usd("2500"), DueDate: date(2025, time.February, 14)},
		{Name: "Delivery", Amount: usd("7500"), DueDate: date(2025, time.September, 30)},
	}

	byAmount := revenue.BilledBasis(milestones, revenue.LabelBilledAmount)
	require.Len(t, byAmount, 2)
	assert.Equal(t, "Billed amount 1: Kickoff", byAmount[0].Description)
	assert.Equal(t, "Billed amount 2: Delivery", byAmount[1].Description)
	assert.Equal(t, revenue.KindBilled, byAmount[0].Kind)

	onAchievement := revenue.BilledBasis(milestones, revenue.LabelBilledOnAchievement)
	assert.Equal(t, "Billed on achievement: Delivery", onAchievement[1].Description)
	assertAmount(t, "7500", onAchievement[1].Amount)
}

func TestDatedMethods_EmptyMilestones_EmptySchedule(t *testing.T) {
	for _, method := range []revenue.Method{revenue.MethodMilestoneBased, revenue.MethodBilledBasis} {
		allocations, err := revenue.Calculate(revenue.Params{Method: method})
		require.NoError(t, err, method)
		assert.NotNil(t, allocations, method)
		assert.Empty(t, allocations, method)
	}
}

func TestDatedMethods_IgnoreDateRange(t *testing.T) {
	// Milestone methods never look at the work period, even an inverted one.
	allocations, err := revenue.Calculate(revenue.Params{
		StartDate:  date(2026, time.January, 1),
		EndDate:    date(2025, time.January, 1),
		Method:     revenue.MethodMilestoneBased,
		Milestones: []revenue.Milestone{{Name: "Only", Amount: usd("1"), DueDate: date(2025, time.May, 5)}},
	})
	require.NoError(t, err)
	assert.Len(t, allocations, 1)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCalculate_InvertedRange_Rejected(t *testing.T) {
	_, err := revenue.Calculate(revenue.Params{
		TotalValue: usd("1000"),
		StartDate:  date(2025, time.December, 1),
		EndDate:    date(2025, time.January, 1),
		Method:     revenue.MethodStraightLine,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, revenue.ErrInvalidPeriod))
	assert.True(t, revenue.IsClientError(err))

	var pe *revenue.ParamError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "end_date", pe.Field)
}

func TestCalculate_MissingDates_Rejected(t *testing.T) {
	_, err := revenue.Calculate(revenue.Params{
		TotalValue: usd("1000"),
		EndDate:    date(2025, time.January, 1),
		Method:     revenue.MethodPercentageComplete,
	})
	assert.ErrorIs(t, err, revenue.ErrMissingDate)
}

func TestCalculate_RangeTooLong_Rejected(t *testing.T) {
	_, err := revenue.Calculate(revenue.Params{
		TotalValue: usd("1000"),
		StartDate:  date(1900, time.January, 1),
		EndDate:    date(2100, time.January, 1),
		Method:     revenue.MethodStraightLine,
	})
	assert.ErrorIs(t, err, revenue.ErrRangeTooLong)
}

func TestCalculate_EmptyMethodDefaultsToStraightLine(t *testing.T) {
	allocations, err := revenue.Calculate(revenue.Params{
		TotalValue: usd("600"),
		StartDate:  date(2025, time.January, 1),
		EndDate:    date(2025, time.June, 30),
	})
	require.NoError(t, err)
	require.Len(t, allocations, 6)
	assert.Equal(t, revenue.KindMonthly, allocations[0].Kind)
}

func TestParseMethod(t *testing.T) {
	m, err := revenue.ParseMethod("billed-basis")
	require.NoError(t, err)
	assert.Equal(t, revenue.MethodBilledBasis, m)

	m, err = revenue.ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, revenue.MethodStraightLine, m)

	_, err = revenue.ParseMethod("accelerated")
	assert.ErrorIs(t, err, revenue.ErrUnknownMethod)
}
