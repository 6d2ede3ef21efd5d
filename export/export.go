/*
export - Contract schedule reports

PURPOSE:
  Renders a contract and its revenue schedule for download:
  - CSV: a single report with contract info, milestones and schedule
  - XLSX: "Revenue Schedule" and "Billing Schedule" sheets, one row per
    entry with the contract columns repeated for pivoting

SEE ALSO:
  - api/handlers.go: ExportContract endpoint
*/
package export

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/contract-revenue/contract"
	"github.com/warp/contract-revenue/revenue"
)

// Format is a supported export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Report is everything an export renders.
type Report struct {
	Contract    contract.Contract
	Milestones  []contract.Milestone
	Allocations []revenue.Allocation
	GeneratedAt time.Time
}

// NewReport assembles a report for a contract and its schedule.
func NewReport(c contract.Contract, allocations []revenue.Allocation, generatedAt time.Time) Report {
	return Report{
		Contract:    c,
		Milestones:  c.Milestones,
		Allocations: allocations,
		GeneratedAt: generatedAt,
	}
}

const notSpecified = "Not specified"

func orNotSpecified(s string) string {
	if s == "" {
		return notSpecified
	}
	return s
}

func money(d *decimal.Decimal) string {
	if d == nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(contract.DateLayout)
}
