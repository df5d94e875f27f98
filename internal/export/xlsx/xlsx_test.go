package xlsx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/report"
)

func invoice(lines int) report.Invoice {
	inv := report.Invoice{
		Header:    report.Header{UserName: "Omkar", TractorName: "Mahindra"},
		BillTo:    report.BillTo{Name: "Ramesh", Phone: "9876543210"},
		Generated: core.NewDate(2024, 4, 1),
		Language:  core.English,
		Totals:    report.Totals{Billed: core.Zero, Paid: core.Zero, Balance: core.Zero},
	}
	for i := 0; i < lines; i++ {
		inv.Lines = append(inv.Lines, report.Line{
			Date:      core.NewDate(2024, 3, i+1),
			Equipment: core.TangHar,
			Duration:  "1h 0m",
			Rate:      core.MoneyFromInt(1200),
			Cost:      core.MoneyFromInt(1200),
			Paid:      core.Zero,
			Balance:   core.MoneyFromInt(1200),
		})
		inv.Totals.Billed = inv.Totals.Billed.Add(core.MoneyFromInt(1200))
		inv.Totals.Balance = inv.Totals.Balance.Add(core.MoneyFromInt(1200))
	}
	return inv
}

func TestRender(t *testing.T) {
	b, err := Render(invoice(2))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	title, err := f.GetCellValue(SheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Mahindra Invoice", title)

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)

	var dates []string
	for _, r := range rows {
		if len(r) > 1 && r[1] == string(core.TangHar) {
			dates = append(dates, r[0])
		}
	}
	assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, dates)
}

func TestRenderWithoutLines(t *testing.T) {
	b, err := Render(invoice(0))
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}
