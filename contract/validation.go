package contract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"github.com/warp/contract-revenue/llm"
	"github.com/warp/contract-revenue/revenue"
)

// Sanity bounds for extracted values.
var (
	MaxPlausibleValue  = decimal.NewFromInt(10_000_000)
	MilestoneTolerance = decimal.NewFromFloat(0.1)
)

// MinConfidence is the model confidence below which review is recommended.
const MinConfidence = 0.3

// ValidationResult is the outcome of checking extracted fields. Errors send
// a contract to review; warnings are informational.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Err folds the validation errors into one error, or nil when valid.
func (v ValidationResult) Err() error {
	var result *multierror.Error
	for _, e := range v.Errors {
		result = multierror.Append(result, errors.New(e))
	}
	return result.ErrorOrNil()
}

// ValidateFields checks model output for internal consistency. now decides
// whether the end date lies in the past.
func ValidateFields(f *llm.ContractFields, now time.Time) ValidationResult {
	v := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if f.ContractValue != nil && (!f.ContractValue.IsPositive() || f.ContractValue.GreaterThan(MaxPlausibleValue)) {
		v.Warnings = append(v.Warnings, "Contract value seems unusually high or low")
	}

	start, startErr := parseOptionalDate(f.StartDate)
	end, endErr := parseOptionalDate(f.EndDate)
	if startErr != nil {
		v.Errors = append(v.Errors, "Start date is not a valid date")
	}
	if endErr != nil {
		v.Errors = append(v.Errors, "End date is not a valid date")
	}
	if start != nil && end != nil {
		if !start.Before(*end) {
			v.Errors = append(v.Errors, "Start date must be before end date")
		}
		if !revenue.SameOrBeforeDay(now, *end) {
			v.Warnings = append(v.Warnings, "End date is in the past")
		}
	}

	for _, pair := range []struct {
		name       string
		start, end *string
	}{
		{"Work", f.WorkStartDate, f.WorkEndDate},
		{"Billing", f.BillingStartDate, f.BillingEndDate},
	} {
		ps, errS := parseOptionalDate(pair.start)
		pe, errE := parseOptionalDate(pair.end)
		if errS != nil || errE != nil {
			v.Errors = append(v.Errors, fmt.Sprintf("%s period has an invalid date", pair.name))
			continue
		}
		if ps != nil && pe != nil && !ps.Before(*pe) {
			v.Errors = append(v.Errors, fmt.Sprintf("%s start date must be before %s end date", pair.name, strings.ToLower(pair.name)))
		}
	}

	if len(f.Milestones) > 0 {
		total := decimal.Zero
		for i, m := range f.Milestones {
			if strings.TrimSpace(m.Name) == "" {
				v.Errors = append(v.Errors, fmt.Sprintf("Milestone %d is missing a name", i+1))
			}
			if !m.Amount.IsPositive() {
				v.Errors = append(v.Errors, fmt.Sprintf("Milestone %d has invalid amount", i+1))
			}
			if m.DueDate != "" {
				if _, err := ParseDate(m.DueDate); err != nil {
					v.Errors = append(v.Errors, fmt.Sprintf("Milestone %d has an invalid due date", i+1))
				}
			}
			total = total.Add(m.Amount)
		}

		if f.ContractValue != nil && !f.ContractValue.IsZero() &&
			total.Sub(*f.ContractValue).Abs().GreaterThan(f.ContractValue.Mul(MilestoneTolerance)) {
			v.Warnings = append(v.Warnings, "Total milestone value differs significantly from contract value")
		}
	}

	if f.Confidence < MinConfidence {
		v.Warnings = append(v.Warnings, "Low confidence in extracted data - manual review recommended")
	}

	v.IsValid = len(v.Errors) == 0
	return v
}

// ScheduleWarnings reports conditions the engine computes through without
// complaint but a reviewer should see: negative totals and milestone sums
// that do not reconcile with the contract value.
func ScheduleWarnings(c Contract, p revenue.Params) []string {
	warnings := []string{}

	if p.TotalValue.IsNegative() {
		warnings = append(warnings, "Contract value is negative")
	}

	if p.Method.IsMonthly() {
		return warnings
	}

	if len(p.Milestones) == 0 {
		return append(warnings, "No milestones with due dates; the schedule is empty")
	}
	if skipped := len(c.Milestones) - len(p.Milestones); skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d milestone(s) without a due date were left out", skipped))
	}

	sum := decimal.Zero
	for _, m := range p.Milestones {
		if m.Amount.IsNegative() {
			warnings = append(warnings, fmt.Sprintf("Milestone %q has a negative amount", m.Name))
		}
		sum = sum.Add(m.Amount)
	}
	if c.Value != nil && !sum.Equal(*c.Value) {
		warnings = append(warnings, fmt.Sprintf("Milestone total %s does not match contract value %s",
			sum.StringFixed(2), c.Value.StringFixed(2)))
	}
	return warnings
}
