// Package xlsx renders invoices as Excel workbooks.
package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/omrishi123/tractortrack/internal/export"
	"github.com/omrishi123/tractortrack/internal/report"
)

const (
	SheetName   = "Invoice"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var columnWidths = []float64{12, 12, 10, 10, 12, 12, 12}

// Render returns the invoice as an .xlsx file.
func Render(inv report.Invoice) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	layout := export.Table(inv)
	for i, row := range layout.Rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := applyStyles(f, layout); err != nil {
		return nil, err
	}
	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func applyStyles(f *excelize.File, layout export.Layout) error {
	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("create title style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return fmt.Errorf("create heading style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}
	boldMoney, err := f.NewStyle(&excelize.Style{NumFmt: 2, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create totals style: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(layout.Columns)
	styles := []struct {
		from, to string
		id       int
	}{
		{"A1", "A1", title},
		{fmt.Sprintf("A%d", layout.HeadingRow+1), fmt.Sprintf("%s%d", lastCol, layout.HeadingRow+1), bold},
		{fmt.Sprintf("D%d", layout.HeadingRow+2), fmt.Sprintf("%s%d", lastCol, layout.TotalsRow), money},
		{fmt.Sprintf("A%d", layout.TotalsRow+1), fmt.Sprintf("%s%d", lastCol, layout.TotalsRow+1), boldMoney},
	}
	for _, s := range styles {
		// an invoice without lines has no money block
		if s.id == money && layout.TotalsRow == layout.HeadingRow+1 {
			continue
		}
		if err := f.SetCellStyle(SheetName, s.from, s.to, s.id); err != nil {
			return fmt.Errorf("apply style %s:%s: %w", s.from, s.to, err)
		}
	}
	return nil
}
