package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/ledger"
)

func buildData(t *testing.T) (core.AppData, string, string) {
	t.Helper()
	data := core.NewAppData()
	name, tractor := "Omkar", "Mahindra 575"
	data, err := ledger.UpdateSettings(data, core.SettingsPatch{UserName: &name, TractorName: &tractor})
	require.NoError(t, err)

	data, c, err := ledger.AddCustomer(data, ledger.CustomerInput{Name: "Ramesh", Phone: "9876543210", Address: "Ward 3"})
	require.NoError(t, err)
	data, other, err := ledger.AddCustomer(data, ledger.CustomerInput{Name: "Suresh", Phone: "9876543211"})
	require.NoError(t, err)

	entries := []struct {
		customer string
		date     core.Date
		eq       core.Equipment
		hours    int
		minutes  int
	}{
		{c.ID, core.NewDate(2024, 3, 15), core.Rotavator, 1, 0},
		{c.ID, core.NewDate(2024, 3, 1), core.TangHar, 2, 0},
		{other.ID, core.NewDate(2024, 3, 5), core.Rotavator, 5, 0},
		{c.ID, core.NewDate(2024, 4, 2), core.Rotavator, 0, 30},
		{c.ID, core.NewDate(2024, 3, 10), core.Rotavator, 2, 30},
	}
	for _, e := range entries {
		data, _, err = ledger.AddWorkLog(data, ledger.WorkLogInput{
			CustomerID: e.customer, Date: e.date, Equipment: e.eq, Hours: e.hours, Minutes: e.minutes,
		})
		require.NoError(t, err)
	}
	// pay 1000 against the 2h30m entry
	for _, w := range data.WorkLogs {
		if w.CustomerID == c.ID && w.Hours == 2 && w.Minutes == 30 {
			data, _, err = ledger.AddPaymentTo(data, w.ID, core.NewDate(2024, 3, 12), core.MoneyFromInt(1000))
			require.NoError(t, err)
		}
	}
	return data, c.ID, other.ID
}

func TestAssembleFiltersAndSorts(t *testing.T) {
	data, customerID, _ := buildData(t)
	generated := core.NewDate(2024, 5, 1)

	inv, err := AssembleAt(Request{
		CustomerID: customerID,
		From:       core.NewDate(2024, 3, 1),
		To:         core.NewDate(2024, 3, 31),
	}, data, generated)
	require.NoError(t, err)

	require.Len(t, inv.Lines, 3)
	var dates []string
	for _, l := range inv.Lines {
		dates = append(dates, l.Date.String())
	}
	assert.Equal(t, []string{"2024-03-01", "2024-03-10", "2024-03-15"}, dates)

	assert.Equal(t, "2400.00", inv.Lines[0].Cost.String())
	assert.Equal(t, "2h 0m", inv.Lines[0].Duration)
	assert.Equal(t, "1000.00", inv.Lines[1].Paid.String())
	assert.Equal(t, "1500.00", inv.Lines[1].Balance.String())

	assert.Equal(t, "5900.00", inv.Totals.Billed.String())
	assert.Equal(t, "1000.00", inv.Totals.Paid.String())
	assert.Equal(t, "4900.00", inv.Totals.Balance.String())

	assert.Equal(t, "Omkar", inv.Header.UserName)
	assert.Equal(t, "Mahindra 575", inv.Header.TractorName)
	assert.Equal(t, "Ramesh", inv.BillTo.Name)
	assert.Equal(t, "Ward 3", inv.BillTo.Address)
	assert.Equal(t, "2024-03-01 to 2024-03-31", inv.Period())
	assert.True(t, inv.Generated.Equal(generated))
}

func TestAssembleUnboundedRange(t *testing.T) {
	data, customerID, _ := buildData(t)

	inv, err := Assemble(Request{CustomerID: customerID}, data)
	require.NoError(t, err)
	assert.Len(t, inv.Lines, 4)
	assert.Equal(t, "All time", inv.Period())

	inv, err = Assemble(Request{CustomerID: customerID, From: core.NewDate(2024, 3, 15)}, data)
	require.NoError(t, err)
	assert.Len(t, inv.Lines, 2)
	assert.Equal(t, "From 2024-03-15", inv.Period())
}

func TestAssembleBoundsAreInclusive(t *testing.T) {
	data, customerID, _ := buildData(t)
	day := core.NewDate(2024, 3, 10)

	inv, err := Assemble(Request{CustomerID: customerID, From: day, To: day}, data)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)
	assert.True(t, inv.Lines[0].Date.Equal(day))
}

func TestAssembleErrors(t *testing.T) {
	data, customerID, _ := buildData(t)

	_, err := Assemble(Request{CustomerID: "missing"}, data)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = Assemble(Request{
		CustomerID: customerID,
		From:       core.NewDate(2024, 4, 1),
		To:         core.NewDate(2024, 3, 1),
	}, data)
	assert.True(t, core.IsValidation(err))
}

func TestAssembleEmptyRange(t *testing.T) {
	data, customerID, _ := buildData(t)

	inv, err := Assemble(Request{CustomerID: customerID, From: core.NewDate(2030, 1, 1)}, data)
	require.NoError(t, err)
	assert.NotNil(t, inv.Lines)
	assert.Empty(t, inv.Lines)
	assert.True(t, inv.Totals.Billed.IsZero())
}
