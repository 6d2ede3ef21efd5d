package export

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/warp/contract-revenue/contract"
	"github.com/warp/contract-revenue/revenue"
)

// WriteCSV writes the report as CSV.
func WriteCSV(w io.Writer, r Report) error {
	c := r.Contract
	rows := [][]string{
		{"Contract Analysis Report"},
		{"Generated:", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
		{"Contract Information"},
		{"Field", "Value"},
		{"File Name", c.Filename},
		{"Client Name", orNotSpecified(c.ClientName)},
		{"Contract Value", money(c.Value)},
		{"Start Date", contract.FormatDate(c.StartDate)},
		{"End Date", contract.FormatDate(c.EndDate)},
		{"Description", orNotSpecified(c.Description)},
		{},
	}

	if len(r.Milestones) > 0 {
		rows = append(rows, []string{"Milestones"}, []string{"Name", "Amount", "Due Date"})
		for _, m := range r.Milestones {
			rows = append(rows, []string{m.Name, m.Amount.StringFixed(2), contract.FormatDate(m.DueDate)})
		}
		rows = append(rows, []string{})
	}

	if len(r.Allocations) > 0 {
		rows = append(rows,
			[]string{"Revenue Recognition Schedule"},
			[]string{"Description", "Amount", "Recognition Date", "Type"},
		)
		for _, a := range r.Allocations {
			rows = append(rows, []string{a.Description, a.Amount.StringFixed(2), day(a.RecognitionDate), string(a.Kind)})
		}
		total := revenue.Sum(r.Allocations)
		rows = append(rows, []string{}, []string{"Total", total.StringFixed(2), "", ""})
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
