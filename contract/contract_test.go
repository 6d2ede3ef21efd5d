package contract_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/contract-revenue/contract"
	"github.com/warp/contract-revenue/llm"
	"github.com/warp/contract-revenue/revenue"
)

func date(y int, m time.Month, d int) time.Time {
	return revenue.Date(y, m, d)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func usd(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func usdPtr(s string) *decimal.Decimal {
	d := usd(s)
	return &d
}

func str(s string) *string { return &s }

// =============================================================================
// DATES
// =============================================================================

func TestParseDate_CalendarDateAtNoon(t *testing.T) {
	got, err := contract.ParseDate("2025-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 31, 12, 0, 0, 0, time.UTC), got)

	// A west-of-UTC view of the same instant is still March 31.
	ny := time.FixedZone("EST", -5*3600)
	assert.Equal(t, 31, got.In(ny).Day())
}

func TestParseDate_TimestampReducedToDate(t *testing.T) {
	got, err := contract.ParseDate("2025-03-31T23:30:00-02:00")
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.March, 31), got)
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := contract.ParseDate("31/03/2025")
	assert.Error(t, err)
}

// =============================================================================
// FIELD VALIDATION
// =============================================================================

func validFields() *llm.ContractFields {
	return &llm.ContractFields{
		ContractValue: usdPtr("100000"),
		StartDate:     str("2025-01-01"),
		EndDate:       str("2025-12-31"),
		Milestones: []llm.MilestoneFields{
			{Name: "Kickoff", Amount: usd("50000"), DueDate: "2025-02-01"},
			{Name: "Delivery", Amount: usd("50000"), DueDate: "2025-11-30"},
		},
		Confidence: 0.9,
	}
}

func TestValidateFields_Clean(t *testing.T) {
	v := contract.ValidateFields(validFields(), date(2025, time.June, 1))

	assert.True(t, v.IsValid)
	assert.Empty(t, v.Errors)
	assert.Empty(t, v.Warnings)
	assert.NoError(t, v.Err())
}

func TestValidateFields_Rules(t *testing.T) {
	now := date(2025, time.June, 1)

	tests := []struct {
		name        string
		mutate      func(f *llm.ContractFields)
		wantError   string
		wantWarning string
	}{
		{
			name:        "implausibly large value",
			mutate:      func(f *llm.ContractFields) { f.ContractValue = usdPtr("10000000.01"); f.Milestones = nil },
			wantWarning: "Contract value seems unusually high or low",
		},
		{
			name:        "negative value",
			mutate:      func(f *llm.ContractFields) { f.ContractValue = usdPtr("-1"); f.Milestones = nil },
			wantWarning: "Contract value seems unusually high or low",
		},
		{
			name:      "start not before end",
			mutate:    func(f *llm.ContractFields) { f.StartDate = str("2025-12-31") },
			wantError: "Start date must be before end date",
		},
		{
			name:        "end in the past",
			mutate:      func(f *llm.ContractFields) { f.StartDate = str("2024-01-01"); f.EndDate = str("2025-05-31") },
			wantWarning: "End date is in the past",
		},
		{
			name:      "unparseable start",
			mutate:    func(f *llm.ContractFields) { f.StartDate = str("Jan 1st") },
			wantError: "Start date is not a valid date",
		},
		{
			name:      "milestone without name",
			mutate:    func(f *llm.ContractFields) { f.Milestones[1].Name = "  " },
			wantError: "Milestone 2 is missing a name",
		},
		{
			name:      "milestone with zero amount",
			mutate:    func(f *llm.ContractFields) { f.Milestones[0].Amount = decimal.Zero },
			wantError: "Milestone 1 has invalid amount",
		},
		{
			name:        "milestones diverge more than 10%",
			mutate:      func(f *llm.ContractFields) { f.Milestones[1].Amount = usd("60001") },
			wantWarning: "Total milestone value differs significantly from contract value",
		},
		{
			name:        "low confidence",
			mutate:      func(f *llm.ContractFields) { f.Confidence = 0.29 },
			wantWarning: "Low confidence in extracted data - manual review recommended",
		},
		{
			name:      "inverted work period",
			mutate:    func(f *llm.ContractFields) { f.WorkStartDate = str("2025-06-01"); f.WorkEndDate = str("2025-05-01") },
			wantError: "Work start date must be before work end date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(f)
			v := contract.ValidateFields(f, now)

			if tt.wantError != "" {
				assert.False(t, v.IsValid)
				assert.Contains(t, v.Errors, tt.wantError)
				assert.ErrorContains(t, v.Err(), tt.wantError)
			} else {
				assert.True(t, v.IsValid, "errors: %v", v.Errors)
			}
			if tt.wantWarning != "" {
				assert.Contains(t, v.Warnings, tt.wantWarning)
			}
		})
	}
}

func TestValidateFields_TenPercentBoundaryIsAccepted(t *testing.T) {
	f := validFields()
	f.Milestones[1].Amount = usd("60000") // total 110000, exactly 10% over

	v := contract.ValidateFields(f, date(2025, time.June, 1))
	assert.NotContains(t, v.Warnings, "Total milestone value differs significantly from contract value")
}

func TestValidateFields_EndDateTodayIsNotPast(t *testing.T) {
	f := validFields()
	f.EndDate = str("2025-06-01")

	v := contract.ValidateFields(f, time.Date(2025, time.June, 1, 23, 0, 0, 0, time.UTC))
	assert.NotContains(t, v.Warnings, "End date is in the past")
}

// =============================================================================
// PARAMS
// =============================================================================

func scheduledContract() contract.Contract {
	return contract.Contract{
		ID:               "c1",
		Value:            usdPtr("12000"),
		StartDate:        datePtr(2025, time.January, 1),
		EndDate:          datePtr(2025, time.December, 31),
		WorkStartDate:    datePtr(2025, time.March, 1),
		WorkEndDate:      datePtr(2025, time.August, 31),
		BillingStartDate: datePtr(2025, time.February, 1),
		Milestones: []contract.Milestone{
			{Name: "Kickoff", Amount: usd("4000"), DueDate: datePtr(2025, time.February, 15)},
			{Name: "Undated", Amount: usd("1000")},
			{Name: "Final", Amount: usd("8000"), DueDate: datePtr(2025, time.December, 15)},
		},
	}
}

func TestBuildParams_MonthlyMethodsUseWorkPeriod(t *testing.T) {
	for _, m := range []revenue.Method{revenue.MethodStraightLine, revenue.MethodPercentageComplete} {
		p, err := contract.BuildParams(scheduledContract(), m, "")
		require.NoError(t, err)

		assert.Equal(t, m, p.Method)
		assert.Equal(t, date(2025, time.March, 1), p.StartDate)
		assert.Equal(t, date(2025, time.August, 31), p.EndDate)
		assert.True(t, usd("12000").Equal(p.TotalValue))
	}
}

func TestBuildParams_FallsBackToContractTerm(t *testing.T) {
	c := scheduledContract()
	c.WorkStartDate, c.WorkEndDate = nil, nil

	p, err := contract.BuildParams(c, "", "")
	require.NoError(t, err)

	assert.Equal(t, revenue.MethodStraightLine, p.Method)
	assert.Equal(t, date(2025, time.January, 1), p.StartDate)
	assert.Equal(t, date(2025, time.December, 31), p.EndDate)
}

func TestBuildParams_BilledBasisUsesBillingPeriodAndDatedMilestones(t *testing.T) {
	p, err := contract.BuildParams(scheduledContract(), revenue.MethodBilledBasis, revenue.LabelBilledOnAchievement)
	require.NoError(t, err)

	assert.Equal(t, date(2025, time.February, 1), p.StartDate)
	assert.Equal(t, date(2025, time.December, 31), p.EndDate) // no billing end: contract end
	assert.Equal(t, revenue.LabelBilledOnAchievement, p.BilledLabel)
	require.Len(t, p.Milestones, 2)
	assert.Equal(t, "Kickoff", p.Milestones[0].Name)
	assert.Equal(t, "Final", p.Milestones[1].Name)
}

func TestBuildParams_MissingFields(t *testing.T) {
	c := contract.Contract{ID: "c"}

	_, err := contract.BuildParams(c, revenue.MethodPercentageComplete, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrMissingField)
	assert.True(t, contract.IsClientError(err))

	var mf *contract.MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, []string{"contract_value", "start_date", "end_date"}, mf.Fields)

	// Milestone methods need neither value nor dates.
	p, err := contract.BuildParams(c, revenue.MethodMilestoneBased, "")
	require.NoError(t, err)
	assert.Empty(t, p.Milestones)
}

func TestBuildParams_UnknownMethod(t *testing.T) {
	_, err := contract.BuildParams(scheduledContract(), "weighted", "")
	assert.ErrorIs(t, err, revenue.ErrUnknownMethod)
	assert.True(t, contract.IsClientError(err))
}

func TestScheduleWarnings(t *testing.T) {
	c := scheduledContract()
	p, err := contract.BuildParams(c, revenue.MethodMilestoneBased, "")
	require.NoError(t, err)

	warnings := contract.ScheduleWarnings(c, p)
	assert.Equal(t, []string{"1 milestone(s) without a due date were left out"}, warnings)

	// GIVEN: The dated milestones no longer add up to the contract value
	c.Value = usdPtr("15000")

	// THEN: The divergence is reported, not reconciled
	warnings = contract.ScheduleWarnings(c, p)
	assert.Contains(t, warnings, "Milestone total 12000.00 does not match contract value 15000.00")

	// Monthly methods have no milestone checks.
	p, err = contract.BuildParams(c, revenue.MethodStraightLine, "")
	require.NoError(t, err)
	assert.Empty(t, contract.ScheduleWarnings(c, p))
}
