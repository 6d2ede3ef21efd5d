package contract

import (
	"time"

	"github.com/warp/contract-revenue/revenue"
)

// BuildParams maps a stored contract onto engine input for method.
//
// Straight-line and percentage-complete recognize over the work period,
// billed-basis over the billing period; both fall back to the contract term.
// The milestone methods use the milestones that have a due date.
func BuildParams(c Contract, method revenue.Method, label revenue.LabelStyle) (revenue.Params, error) {
	method, err := revenue.ParseMethod(string(method))
	if err != nil {
		return revenue.Params{}, err
	}

	p := revenue.Params{
		Method:      method,
		BilledLabel: label,
	}

	var missing []string
	if c.Value != nil {
		p.TotalValue = *c.Value
	}

	if method.IsMonthly() {
		if c.Value == nil {
			missing = append(missing, "contract_value")
		}
		start := firstDate(c.WorkStartDate, c.StartDate)
		end := firstDate(c.WorkEndDate, c.EndDate)
		if start == nil {
			missing = append(missing, "start_date")
		}
		if end == nil {
			missing = append(missing, "end_date")
		}
		if len(missing) > 0 {
			return revenue.Params{}, &MissingFieldError{Method: method, Fields: missing}
		}
		p.StartDate, p.EndDate = *start, *end
		return p, nil
	}

	if method == revenue.MethodBilledBasis {
		if s := firstDate(c.BillingStartDate, c.StartDate); s != nil {
			p.StartDate = *s
		}
		if e := firstDate(c.BillingEndDate, c.EndDate); e != nil {
			p.EndDate = *e
		}
	} else {
		if c.StartDate != nil {
			p.StartDate = *c.StartDate
		}
		if c.EndDate != nil {
			p.EndDate = *c.EndDate
		}
	}

	p.Milestones = make([]revenue.Milestone, 0, len(c.Milestones))
	for _, m := range c.Milestones {
		if m.DueDate == nil {
			continue
		}
		p.Milestones = append(p.Milestones, revenue.Milestone{
			Name:    m.Name,
			Amount:  m.Amount,
			DueDate: *m.DueDate,
		})
	}
	return p, nil
}

func firstDate(dates ...*time.Time) *time.Time {
	for _, d := range dates {
		if d != nil {
			return d
		}
	}
	return nil
}
