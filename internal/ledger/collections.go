package ledger

import (
	"strings"

	"github.com/omrishi123/tractortrack/internal/core"
)

// CustomerInput is what the caller supplies when adding a customer.
type CustomerInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// WorkLogInput is what the caller supplies when logging new work.
type WorkLogInput struct {
	CustomerID string         `json:"customerId"`
	Date       core.Date      `json:"date"`
	Equipment  core.Equipment `json:"equipment"`
	Hours      int            `json:"hours"`
	Minutes    int            `json:"minutes"`
}

// ExpenseInput is what the caller supplies when recording an expense.
type ExpenseInput struct {
	Date        core.Date  `json:"date"`
	Category    string     `json:"category"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
}

func cleanCustomer(c core.Customer) core.Customer {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	return c
}

// AddCustomer appends a new customer with a fresh id.
func AddCustomer(data core.AppData, in CustomerInput) (core.AppData, core.Customer, error) {
	c := cleanCustomer(core.Customer{
		ID:      core.NewID(),
		Name:    in.Name,
		Phone:   in.Phone,
		Address: in.Address,
		Notes:   in.Notes,
	})
	if err := c.Validate(); err != nil {
		return data, core.Customer{}, err
	}
	next := data.Clone()
	next.Customers = append(next.Customers, c)
	return next, c, nil
}

// UpdateCustomer replaces name, phone and address of the stored customer
// carrying c.ID. Notes are kept; UpdateCustomerNotes owns them.
func UpdateCustomer(data core.AppData, c core.Customer) (core.AppData, core.Customer, error) {
	c = cleanCustomer(c)
	if err := c.Validate(); err != nil {
		return data, core.Customer{}, err
	}
	i := data.FindCustomer(c.ID)
	if i < 0 {
		return data, core.Customer{}, core.NotFound("customer", c.ID)
	}
	c.Notes = data.Customers[i].Notes
	next := data.Clone()
	next.Customers[i] = c
	return next, c, nil
}

// UpdateCustomerNotes changes only the free-text notes of a customer.
func UpdateCustomerNotes(data core.AppData, customerID, notes string) (core.AppData, error) {
	i := data.FindCustomer(customerID)
	if i < 0 {
		return data, core.NotFound("customer", customerID)
	}
	next := data.Clone()
	next.Customers[i].Notes = notes
	return next, nil
}

// DeleteCustomer removes the customer and every work entry that references
// it. Deleting an unknown id is a no-op; the bool reports whether anything
// was removed.
func DeleteCustomer(data core.AppData, customerID string) (core.AppData, bool) {
	i := data.FindCustomer(customerID)
	if i < 0 {
		return data, false
	}
	next := data.Clone()
	next.Customers = append(next.Customers[:i], next.Customers[i+1:]...)
	kept := next.WorkLogs[:0]
	for _, w := range next.WorkLogs {
		if w.CustomerID != customerID {
			kept = append(kept, w)
		}
	}
	next.WorkLogs = kept
	return next, true
}

// AddWorkLog creates an entry for an existing customer at the current rate.
func AddWorkLog(data core.AppData, in WorkLogInput) (core.AppData, core.WorkLog, error) {
	entry, err := NewWorkLog(in.CustomerID, in.Date, in.Equipment, in.Hours, in.Minutes, data.Settings.Rates)
	if err != nil {
		return data, core.WorkLog{}, err
	}
	if data.FindCustomer(in.CustomerID) < 0 {
		return data, core.WorkLog{}, core.NotFound("customer", in.CustomerID)
	}
	next := data.Clone()
	next.WorkLogs = append(next.WorkLogs, entry)
	return next, entry, nil
}

// UpdateWorkLog edits an entry in place; see EditWorkLog.
func UpdateWorkLog(data core.AppData, workLogID string, edit WorkLogEdit) (core.AppData, core.WorkLog, error) {
	i := data.FindWorkLog(workLogID)
	if i < 0 {
		return data, core.WorkLog{}, core.NotFound("work log", workLogID)
	}
	entry, err := EditWorkLog(data.WorkLogs[i], edit, data.Settings.Rates)
	if err != nil {
		return data, core.WorkLog{}, err
	}
	next := data.Clone()
	next.WorkLogs[i] = entry
	return next, entry, nil
}

// DeleteWorkLog removes one entry. Unknown ids are ignored.
func DeleteWorkLog(data core.AppData, workLogID string) (core.AppData, bool) {
	i := data.FindWorkLog(workLogID)
	if i < 0 {
		return data, false
	}
	next := data.Clone()
	next.WorkLogs = append(next.WorkLogs[:i], next.WorkLogs[i+1:]...)
	return next, true
}

// AddPaymentTo records a payment against an entry.
func AddPaymentTo(data core.AppData, workLogID string, date core.Date, amount core.Money) (core.AppData, core.WorkLog, error) {
	i := data.FindWorkLog(workLogID)
	if i < 0 {
		return data, core.WorkLog{}, core.NotFound("work log", workLogID)
	}
	entry, _, err := AddPayment(data.WorkLogs[i], date, amount)
	if err != nil {
		return data, core.WorkLog{}, err
	}
	next := data.Clone()
	next.WorkLogs[i] = entry
	return next, entry, nil
}

// DeletePaymentFrom removes a payment from an entry.
func DeletePaymentFrom(data core.AppData, workLogID, paymentID string) (core.AppData, core.WorkLog, error) {
	i := data.FindWorkLog(workLogID)
	if i < 0 {
		return data, core.WorkLog{}, core.NotFound("work log", workLogID)
	}
	entry, err := DeletePayment(data.WorkLogs[i], paymentID)
	if err != nil {
		return data, core.WorkLog{}, err
	}
	next := data.Clone()
	next.WorkLogs[i] = entry
	return next, entry, nil
}

// AddExpense appends a new expense with a fresh id.
func AddExpense(data core.AppData, in ExpenseInput) (core.AppData, core.Expense, error) {
	e := core.Expense{
		ID:          core.NewID(),
		Date:        in.Date,
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
	}
	if err := e.Validate(); err != nil {
		return data, core.Expense{}, err
	}
	next := data.Clone()
	next.Expenses = append(next.Expenses, e)
	return next, e, nil
}

// UpdateExpense replaces the stored expense carrying e.ID.
func UpdateExpense(data core.AppData, e core.Expense) (core.AppData, core.Expense, error) {
	e.Category = strings.TrimSpace(e.Category)
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return data, core.Expense{}, err
	}
	i := data.FindExpense(e.ID)
	if i < 0 {
		return data, core.Expense{}, core.NotFound("expense", e.ID)
	}
	next := data.Clone()
	next.Expenses[i] = e
	return next, e, nil
}

// DeleteExpense removes one expense. Unknown ids are ignored.
func DeleteExpense(data core.AppData, expenseID string) (core.AppData, bool) {
	i := data.FindExpense(expenseID)
	if i < 0 {
		return data, false
	}
	next := data.Clone()
	next.Expenses = append(next.Expenses[:i], next.Expenses[i+1:]...)
	return next, true
}

// UpdateSettings merges a partial update into the settings singleton.
// Existing work entries keep their rate snapshots.
func UpdateSettings(data core.AppData, patch core.SettingsPatch) (core.AppData, error) {
	if err := patch.Validate(); err != nil {
		return data, err
	}
	next := data.Clone()
	next.Settings = next.Settings.Apply(patch)
	return next, nil
}
