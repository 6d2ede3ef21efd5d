package contract

import (
	"log"
	"strings"
	"time"

	"github.com/warp/contract-revenue/llm"
)

// FromFields builds a contract from model output. Dates the model got wrong
// are dropped here; ValidateFields reports them.
func FromFields(f *llm.ContractFields, filename, text string) Contract {
	c := Contract{
		Filename:     filename,
		OriginalText: text,
		Value:        f.ContractValue,
		ClientName:   deref(f.ClientName),
		Description:  deref(f.Description),
		PaymentTerms: deref(f.PaymentTerms),
		Deliverables: append([]string{}, f.Deliverables...),
		Confidence:   f.Confidence,
		Reasoning:    f.Reasoning,
		Milestones:   make([]Milestone, 0, len(f.Milestones)),
	}

	c.StartDate = lenientDate("start_date", f.StartDate)
	c.EndDate = lenientDate("end_date", f.EndDate)
	c.WorkStartDate = lenientDate("work_start_date", f.WorkStartDate)
	c.WorkEndDate = lenientDate("work_end_date", f.WorkEndDate)
	c.BillingStartDate = lenientDate("billing_start_date", f.BillingStartDate)
	c.BillingEndDate = lenientDate("billing_end_date", f.BillingEndDate)

	for _, m := range f.Milestones {
		due := m.DueDate
		c.Milestones = append(c.Milestones, Milestone{
			Name:    strings.TrimSpace(m.Name),
			Amount:  m.Amount,
			DueDate: lenientDate("milestone due_date", &due),
		})
	}
	return c
}

func lenientDate(field string, s *string) *time.Time {
	t, err := parseOptionalDate(s)
	if err != nil {
		log.Printf("[Contract] Ignoring %s: %v", field, err)
		return nil
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
