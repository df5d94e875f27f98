package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omrishi123/tractortrack/internal/core"
)

func day(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

func seeded(t *testing.T) (core.AppData, core.Customer) {
	t.Helper()
	data, c, err := AddCustomer(core.NewAppData(), CustomerInput{Name: "Ramesh Kumar", Phone: "9876543210"})
	require.NoError(t, err)
	return data, c
}

func assertBalanceInvariant(t *testing.T, w core.WorkLog) {
	t.Helper()
	assert.True(t, w.Balance.Equal(w.TotalCost.Sub(PaymentsTotal(w))),
		"balance %s != totalCost %s - payments %s", w.Balance, w.TotalCost, PaymentsTotal(w))
}

func TestTotalCost(t *testing.T) {
	tests := []struct {
		name    string
		hours   int
		minutes int
		rate    int64
		want    string
	}{
		{"whole hours", 2, 0, 1000, "2000.00"},
		{"hours and half", 2, 30, 1000, "2500.00"},
		{"minutes only", 0, 20, 1200, "400.00"},
		{"rounded to paise", 0, 7, 1000, "116.67"},
		{"zero duration", 0, 0, 1000, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TotalCost(tt.hours, tt.minutes, core.MoneyFromInt(tt.rate))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestPaymentLifecycle(t *testing.T) {
	rates := core.DefaultSettings().Rates
	entry, err := NewWorkLog("c1", day(t, "2024-03-01"), core.Rotavator, 2, 30, rates)
	require.NoError(t, err)

	assert.Equal(t, "2500.00", entry.TotalCost.String())
	assert.Equal(t, "2500.00", entry.Balance.String())
	assert.Equal(t, StatusUnpaid, StatusOf(entry))
	assert.Empty(t, entry.Payments)

	entry, _, err = AddPayment(entry, day(t, "2024-03-02"), core.MoneyFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "1500.00", entry.Balance.String())
	assert.Equal(t, StatusPartial, StatusOf(entry))

	entry, _, err = AddPayment(entry, day(t, "2024-03-03"), core.MoneyFromInt(1500))
	require.NoError(t, err)
	assert.True(t, entry.Balance.IsZero())
	assert.Equal(t, StatusPaid, StatusOf(entry))

	entry, over, err := AddPayment(entry, day(t, "2024-03-04"), core.MoneyFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "-100.00", entry.Balance.String())
	assert.Equal(t, StatusPaid, StatusOf(entry))
	assert.Len(t, entry.Payments, 3)
	assertBalanceInvariant(t, entry)

	entry, err = DeletePayment(entry, over.ID)
	require.NoError(t, err)
	assert.True(t, entry.Balance.IsZero())
	assertBalanceInvariant(t, entry)
}

func TestAddPaymentRejectsNonPositive(t *testing.T) {
	entry, err := NewWorkLog("c1", day(t, "2024-03-01"), core.TangHar, 1, 0, core.DefaultSettings().Rates)
	require.NoError(t, err)

	for _, amount := range []core.Money{core.Zero, core.MoneyFromInt(-5)} {
		_, _, err := AddPayment(entry, day(t, "2024-03-02"), amount)
		require.Error(t, err)
		assert.True(t, core.IsValidation(err))
		assert.ErrorIs(t, err, core.ErrInvalidAmount)
	}
}

func TestAddPaymentDoesNotAliasInput(t *testing.T) {
	entry, err := NewWorkLog("c1", day(t, "2024-03-01"), core.TangHar, 1, 0, core.DefaultSettings().Rates)
	require.NoError(t, err)

	next, _, err := AddPayment(entry, day(t, "2024-03-02"), core.MoneyFromInt(200))
	require.NoError(t, err)

	assert.Empty(t, entry.Payments)
	assert.Equal(t, "1200.00", entry.Balance.String())
	assert.Equal(t, "1000.00", next.Balance.String())
}

func TestReconcile(t *testing.T) {
	rates := core.DefaultSettings().Rates
	entry, err := NewWorkLog("c1", day(t, "2024-03-01"), core.Rotavator, 2, 30, rates)
	require.NoError(t, err)
	entry, _, err = AddPayment(entry, day(t, "2024-03-02"), core.MoneyFromInt(1000))
	require.NoError(t, err)

	data := core.NewAppData()
	data.WorkLogs = []core.WorkLog{entry}

	_, changed := Reconcile(data)
	assert.False(t, changed, "a consistent document needs no repair")

	stale := data.Clone()
	stale.WorkLogs[0].Balance = core.MoneyFromInt(2500)
	fixed, changed := Reconcile(stale)
	require.True(t, changed)
	assert.True(t, fixed.WorkLogs[0].Balance.Equal(core.MoneyFromInt(1500)))
	assert.Equal(t, StatusPartial, StatusOf(fixed.WorkLogs[0]))
	assert.True(t, stale.WorkLogs[0].Balance.Equal(core.MoneyFromInt(2500)), "input must not change")
}

func TestDeletePaymentUnknown(t *testing.T) {
	entry, err := NewWorkLog("c1", day(t, "2024-03-01"), core.Rotavator, 1, 0, core.DefaultSettings().Rates)
	require.NoError(t, err)

	_, err = DeletePayment(entry, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestNewWorkLogValidation(t *testing.T) {
	rates := core.DefaultSettings().Rates
	tests := []struct {
		name      string
		equipment core.Equipment
		hours     int
		minutes   int
		rates     core.Rates
		wantErr   error
	}{
		{"hours above day", core.Rotavator, 25, 0, rates, core.ErrInvalidDuration},
		{"negative minutes", core.Rotavator, 1, -1, rates, core.ErrInvalidDuration},
		{"minutes overflow", core.Rotavator, 1, 60, rates, core.ErrInvalidDuration},
		{"unknown equipment", core.Equipment("Plough"), 1, 0, rates, core.ErrInvalidEquipment},
		{"no rate", core.TangHar, 1, 0, core.Rates{core.Rotavator: core.MoneyFromInt(1000)}, core.ErrMissingRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWorkLog("c1", day(t, "2024-03-01"), tt.equipment, tt.hours, tt.minutes, tt.rates)
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEditAfterFullPaymentReopensBalance(t *testing.T) {
	rates := core.DefaultSettings().Rates
	entry, err := NewWorkLog("c1", day(t, "2024-03-01"), core.Rotavator, 2, 0, rates)
	require.NoError(t, err)
	entry, _, err = AddPayment(entry, day(t, "2024-03-01"), core.MoneyFromInt(2000))
	require.NoError(t, err)
	require.Equal(t, StatusPaid, StatusOf(entry))

	hours := 3
	entry, err = EditWorkLog(entry, WorkLogEdit{Hours: &hours}, rates)
	require.NoError(t, err)

	assert.Equal(t, "3000.00", entry.TotalCost.String())
	assert.Equal(t, "1000.00", entry.Balance.String())
	assert.Equal(t, StatusPartial, StatusOf(entry))
	assertBalanceInvariant(t, entry)
}

func TestEditUsesCurrentRate(t *testing.T) {
	rates := core.DefaultSettings().Rates
	entry, err := NewWorkLog("c1", day(t, "2024-03-01"), core.Rotavator, 1, 0, rates)
	require.NoError(t, err)

	raised := core.Rates{core.Rotavator: core.MoneyFromInt(1100), core.TangHar: core.MoneyFromInt(1300)}
	eq := core.TangHar
	entry, err = EditWorkLog(entry, WorkLogEdit{Equipment: &eq}, raised)
	require.NoError(t, err)

	assert.Equal(t, "1300.00", entry.Rate.String())
	assert.Equal(t, "1300.00", entry.TotalCost.String())
	assert.Equal(t, "c1", entry.CustomerID)
}

func TestRateSnapshotSurvivesSettingsChange(t *testing.T) {
	data, c := seeded(t)
	data, entry, err := AddWorkLog(data, WorkLogInput{
		CustomerID: c.ID, Date: day(t, "2024-03-01"), Equipment: core.Rotavator, Hours: 1,
	})
	require.NoError(t, err)

	data, err = UpdateSettings(data, core.SettingsPatch{Rates: core.Rates{core.Rotavator: core.MoneyFromInt(1500)}})
	require.NoError(t, err)

	i := data.FindWorkLog(entry.ID)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, "1000.00", data.WorkLogs[i].Rate.String())
	assert.Equal(t, "1000.00", data.WorkLogs[i].TotalCost.String())

	r, ok := data.Settings.Rates.Rate(core.Rotavator)
	require.True(t, ok)
	assert.Equal(t, "1500.00", r.String())
	assert.Equal(t, "1200.00", data.Settings.Rates[core.TangHar].String())
}

func TestAddWorkLogRequiresCustomer(t *testing.T) {
	data := core.NewAppData()
	_, _, err := AddWorkLog(data, WorkLogInput{
		CustomerID: "ghost", Date: day(t, "2024-03-01"), Equipment: core.Rotavator, Hours: 1,
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, data.WorkLogs)
}

func TestDeleteCustomerCascades(t *testing.T) {
	data, a := seeded(t)
	data, b, err := AddCustomer(data, CustomerInput{Name: "Suresh", Phone: "9123456780"})
	require.NoError(t, err)

	for _, id := range []string{a.ID, b.ID, a.ID} {
		data, _, err = AddWorkLog(data, WorkLogInput{
			CustomerID: id, Date: day(t, "2024-03-01"), Equipment: core.TangHar, Hours: 1,
		})
		require.NoError(t, err)
	}
	data, _, err = AddExpense(data, ExpenseInput{Date: day(t, "2024-03-01"), Category: "Diesel", Amount: core.MoneyFromInt(300)})
	require.NoError(t, err)

	before := data
	data, removed := DeleteCustomer(data, a.ID)
	require.True(t, removed)

	assert.Len(t, data.Customers, 1)
	assert.Equal(t, b.ID, data.Customers[0].ID)
	require.Len(t, data.WorkLogs, 1)
	assert.Equal(t, b.ID, data.WorkLogs[0].CustomerID)
	assert.Len(t, data.Expenses, 1)

	// the input document is left alone
	assert.Len(t, before.Customers, 2)
	assert.Len(t, before.WorkLogs, 3)
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	data, _ := seeded(t)

	got, removed := DeleteCustomer(data, "missing")
	assert.False(t, removed)
	assert.Equal(t, data, got)

	got, removed = DeleteWorkLog(data, "missing")
	assert.False(t, removed)
	assert.Equal(t, data, got)

	got, removed = DeleteExpense(data, "missing")
	assert.False(t, removed)
	assert.Equal(t, data, got)
}

func TestCustomerMutations(t *testing.T) {
	t.Run("rejects short name", func(t *testing.T) {
		_, _, err := AddCustomer(core.NewAppData(), CustomerInput{Name: " R ", Phone: "9876543210"})
		assert.True(t, core.IsValidation(err))
		assert.ErrorIs(t, err, core.ErrEmptyName)
	})

	t.Run("update replaces fields", func(t *testing.T) {
		data, c := seeded(t)
		c.Address = "Village Road 4"
		c.Name = "  Ramesh K  "
		data, got, err := UpdateCustomer(data, c)
		require.NoError(t, err)
		assert.Equal(t, "Ramesh K", got.Name)
		assert.Equal(t, "Village Road 4", data.Customers[0].Address)
	})

	t.Run("update keeps notes", func(t *testing.T) {
		data, c := seeded(t)
		data, err := UpdateCustomerNotes(data, c.ID, "pays after harvest")
		require.NoError(t, err)

		c.Phone = "9123456780"
		c.Notes = ""
		data, got, err := UpdateCustomer(data, c)
		require.NoError(t, err)
		assert.Equal(t, "pays after harvest", got.Notes)
		assert.Equal(t, "pays after harvest", data.Customers[0].Notes)
		assert.Equal(t, "9123456780", data.Customers[0].Phone)
	})

	t.Run("update unknown", func(t *testing.T) {
		data, _ := seeded(t)
		_, _, err := UpdateCustomer(data, core.Customer{ID: "nope", Name: "Someone", Phone: "9876543210"})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("notes only", func(t *testing.T) {
		data, c := seeded(t)
		data, err := UpdateCustomerNotes(data, c.ID, "pays after harvest")
		require.NoError(t, err)
		assert.Equal(t, "pays after harvest", data.Customers[0].Notes)
		assert.Equal(t, c.Name, data.Customers[0].Name)
	})
}

func TestPaymentsThroughDocument(t *testing.T) {
	data, c := seeded(t)
	data, entry, err := AddWorkLog(data, WorkLogInput{
		CustomerID: c.ID, Date: day(t, "2024-03-01"), Equipment: core.Rotavator, Hours: 2, Minutes: 30,
	})
	require.NoError(t, err)

	data, updated, err := AddPaymentTo(data, entry.ID, day(t, "2024-03-05"), core.MoneyFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "1500.00", updated.Balance.String())
	require.Len(t, updated.Payments, 1)

	data, updated, err = DeletePaymentFrom(data, entry.ID, updated.Payments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "2500.00", updated.Balance.String())

	_, _, err = AddPaymentTo(data, "missing", day(t, "2024-03-05"), core.MoneyFromInt(10))
	assert.ErrorIs(t, err, core.ErrNotFound)

	for _, w := range data.WorkLogs {
		assertBalanceInvariant(t, w)
	}
}

func TestExpenseMutations(t *testing.T) {
	data := core.NewAppData()
	data, e, err := AddExpense(data, ExpenseInput{Date: day(t, "2024-03-01"), Category: "Diesel", Amount: core.MoneyFromInt(200)})
	require.NoError(t, err)

	e.Amount = core.MoneyFromInt(250)
	data, _, err = UpdateExpense(data, e)
	require.NoError(t, err)
	assert.Equal(t, "250.00", data.Expenses[0].Amount.String())

	_, _, err = AddExpense(data, ExpenseInput{Date: day(t, "2024-03-01"), Category: "D", Amount: core.MoneyFromInt(5)})
	assert.ErrorIs(t, err, core.ErrEmptyCategory)

	data, removed := DeleteExpense(data, e.ID)
	assert.True(t, removed)
	assert.Empty(t, data.Expenses)
}

func TestUpdateSettingsRejectsBadLanguage(t *testing.T) {
	lang := core.Language("fr")
	data := core.NewAppData()
	got, err := UpdateSettings(data, core.SettingsPatch{Language: &lang})
	assert.ErrorIs(t, err, core.ErrInvalidLanguage)
	assert.Equal(t, core.English, got.Settings.Language)
}
