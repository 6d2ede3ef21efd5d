package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/contract-revenue/contract"
)

const (
	SheetRevenue = "Revenue Schedule"
	SheetBilling = "Billing Schedule"

	currencyFormat = "$#,##0.00"
	noMilestones   = "No billing milestones found"
)

var (
	revenueHeader = []any{"File Name", "Client Name", "Contract Value", "Contract Description", "Revenue Description", "Amount", "Recognition Date"}
	billingHeader = []any{"File Name", "Client Name", "Contract Value", "Contract Description", "Milestone Name", "Amount", "Due Date"}

	revenueWidths = []float64{40, 25, 15, 50, 40, 15, 15}
	billingWidths = []float64{40, 25, 15, 50, 30, 15, 15}
)

// WriteXLSX writes the report as an Excel workbook.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	currency, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(currencyFormat)})
	if err != nil {
		return fmt.Errorf("create currency style: %w", err)
	}

	c := r.Contract
	value := 0.0
	if c.Value != nil {
		value = c.Value.InexactFloat64()
	}
	prefix := func() []any {
		return []any{c.Filename, c.ClientName, value, c.Description}
	}

	// Revenue sheet replaces the default sheet.
	if err := f.SetSheetName(f.GetSheetName(0), SheetRevenue); err != nil {
		return err
	}
	revenueRows := make([][]any, 0, len(r.Allocations))
	for _, a := range r.Allocations {
		revenueRows = append(revenueRows, append(prefix(), a.Description, a.Amount.InexactFloat64(), day(a.RecognitionDate)))
	}
	if err := writeSheet(f, SheetRevenue, revenueHeader, revenueRows, revenueWidths, currency); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetBilling); err != nil {
		return err
	}
	billingRows := make([][]any, 0, len(r.Milestones))
	for _, m := range r.Milestones {
		billingRows = append(billingRows, append(prefix(), m.Name, m.Amount.InexactFloat64(), contract.FormatDate(m.DueDate)))
	}
	if len(billingRows) == 0 {
		billingRows = append(billingRows, []any{noMilestones, "", "", "", "", "", ""})
		if err := writeSheet(f, SheetBilling, billingHeader, billingRows, billingWidths, -1); err != nil {
			return err
		}
	} else if err := writeSheet(f, SheetBilling, billingHeader, billingRows, billingWidths, currency); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

// writeSheet fills a sheet. Columns C and F get the currency style unless
// style is negative.
func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, widths []float64, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	if style >= 0 && len(rows) > 0 {
		last := len(rows) + 1
		for _, col := range []string{"C", "F"} {
			if err := f.SetCellStyle(sheet, col+"2", fmt.Sprintf("%s%d", col, last), style); err != nil {
				return err
			}
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
