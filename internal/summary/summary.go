// Package summary derives read-only figures from an account document.
package summary

import (
	"cmp"
	"slices"
	"strings"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/ledger"
)

// Summary is the dashboard view of a whole account.
type Summary struct {
	TotalIncome    core.Money `json:"totalIncome"`
	TotalExpenses  core.Money `json:"totalExpenses"`
	NetProfit      core.Money `json:"netProfit"`
	TotalCustomers int        `json:"totalCustomers"`
	TotalDues      core.Money `json:"totalDues"`
}

// CustomerDue is one row of the per-customer dues table.
type CustomerDue struct {
	CustomerID string     `json:"customerId"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Entries    int        `json:"entries"`
	Due        core.Money `json:"due"`
}

// EntryView pairs a work entry with its derived payment status.
type EntryView struct {
	core.WorkLog
	Paid   core.Money    `json:"paid"`
	Status ledger.Status `json:"status"`
}

// CustomerLedger is the detail view of a single customer.
type CustomerLedger struct {
	Customer    core.Customer `json:"customer"`
	Entries     []EntryView   `json:"entries"`
	TotalBilled core.Money    `json:"totalBilled"`
	TotalPaid   core.Money    `json:"totalPaid"`
	TotalDue    core.Money    `json:"totalDue"`
}

// Compute totals the document. Income counts money actually collected,
// so overpayments raise it and dues may go negative.
func Compute(data core.AppData) Summary {
	s := Summary{
		TotalIncome:    core.Zero,
		TotalExpenses:  core.Zero,
		TotalDues:      core.Zero,
		TotalCustomers: len(data.Customers),
	}
	for _, w := range data.WorkLogs {
		s.TotalIncome = s.TotalIncome.Add(w.Paid())
		s.TotalDues = s.TotalDues.Add(w.Balance)
	}
	for _, e := range data.Expenses {
		s.TotalExpenses = s.TotalExpenses.Add(e.Amount)
	}
	s.NetProfit = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// CustomerDueAmount sums the balances of every entry owned by customerID.
func CustomerDueAmount(workLogs []core.WorkLog, customerID string) core.Money {
	due := core.Zero
	for _, w := range workLogs {
		if w.CustomerID == customerID {
			due = due.Add(w.Balance)
		}
	}
	return due
}

// DuesByCustomer returns one row per customer ordered by amount owed,
// largest first. Ties keep the customer list order.
func DuesByCustomer(data core.AppData) []CustomerDue {
	rows := make([]CustomerDue, 0, len(data.Customers))
	index := make(map[string]int, len(data.Customers))
	for _, c := range data.Customers {
		index[c.ID] = len(rows)
		rows = append(rows, CustomerDue{CustomerID: c.ID, Name: c.Name, Phone: c.Phone, Due: core.Zero})
	}
	for _, w := range data.WorkLogs {
		i, ok := index[w.CustomerID]
		if !ok {
			continue
		}
		rows[i].Entries++
		rows[i].Due = rows[i].Due.Add(w.Balance)
	}
	slices.SortStableFunc(rows, func(a, b CustomerDue) int {
		return b.Due.Cmp(a.Due)
	})
	return rows
}

// Ledger builds the detail view for customerID with the newest entries first.
func Ledger(data core.AppData, customerID string) (CustomerLedger, error) {
	i := data.FindCustomer(customerID)
	if i < 0 {
		return CustomerLedger{}, core.NotFound("customer", customerID)
	}
	out := CustomerLedger{
		Customer:    data.Customers[i],
		Entries:     []EntryView{},
		TotalBilled: core.Zero,
		TotalPaid:   core.Zero,
		TotalDue:    core.Zero,
	}
	for _, w := range data.WorkLogs {
		if w.CustomerID != customerID {
			continue
		}
		out.Entries = append(out.Entries, view(w))
		out.TotalBilled = out.TotalBilled.Add(w.TotalCost)
		out.TotalPaid = out.TotalPaid.Add(w.Paid())
		out.TotalDue = out.TotalDue.Add(w.Balance)
	}
	slices.SortStableFunc(out.Entries, func(a, b EntryView) int {
		return b.Date.Compare(a.Date.Time)
	})
	return out, nil
}

// Outstanding lists the entries of customerID that still carry a positive
// balance, oldest first, for collecting payments.
func Outstanding(data core.AppData, customerID string) ([]EntryView, error) {
	if data.FindCustomer(customerID) < 0 {
		return nil, core.NotFound("customer", customerID)
	}
	out := []EntryView{}
	for _, w := range data.WorkLogs {
		if w.CustomerID == customerID && w.Balance.IsPositive() {
			out = append(out, view(w))
		}
	}
	slices.SortStableFunc(out, func(a, b EntryView) int {
		return a.Date.Compare(b.Date.Time)
	})
	return out, nil
}

// SearchCustomers filters by a case-insensitive substring of the name.
// An empty term returns every customer sorted by name.
func SearchCustomers(customers []core.Customer, term string) []core.Customer {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]core.Customer, 0, len(customers))
	for _, c := range customers {
		if term == "" || strings.Contains(strings.ToLower(c.Name), term) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Customer) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

func view(w core.WorkLog) EntryView {
	return EntryView{WorkLog: w.Clone(), Paid: w.Paid(), Status: ledger.StatusOf(w)}
}
