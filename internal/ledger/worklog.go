// Package ledger holds the pure billing rules: how a work session becomes a
// cost, how payments reduce its balance, and how the account document is
// mutated. Functions never modify their inputs; every mutation returns a
// new, consistent value.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/omrishi123/tractortrack/internal/core"
)

var minutesPerHour = decimal.NewFromInt(60)

// TotalCost computes (hours + minutes/60) * rate rounded to currency precision.
func TotalCost(hours, minutes int, rate core.Money) core.Money {
	totalMinutes := decimal.NewFromInt(int64(hours*60 + minutes))
	return core.MoneyFromDecimal(rate.Decimal().Mul(totalMinutes).Div(minutesPerHour))
}

// PaymentsTotal sums every payment recorded on the entry.
func PaymentsTotal(entry core.WorkLog) core.Money {
	total := core.Zero
	for _, p := range entry.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// Recompute restores balance = totalCost - sum(payments).
func Recompute(entry core.WorkLog) core.WorkLog {
	entry.Balance = entry.TotalCost.Sub(PaymentsTotal(entry))
	return entry
}

// Reconcile recomputes every entry of a document that did not come out of
// this package: stored, seeded or remote. The bool reports whether any
// balance was wrong.
func Reconcile(data core.AppData) (core.AppData, bool) {
	out := data.Clone()
	changed := false
	for i, w := range out.WorkLogs {
		fixed := Recompute(w)
		if !fixed.Balance.Equal(w.Balance) {
			out.WorkLogs[i] = fixed
			changed = true
		}
	}
	return out, changed
}

// NewWorkLog builds an entry billed at the current rate for equipment.
// The rate is copied into the entry so later price changes never touch it.
func NewWorkLog(customerID string, date core.Date, equipment core.Equipment, hours, minutes int, rates core.Rates) (core.WorkLog, error) {
	entry := core.WorkLog{
		ID:         core.NewID(),
		CustomerID: customerID,
		Date:       date,
		Equipment:  equipment,
		Hours:      hours,
		Minutes:    minutes,
		Payments:   []core.Payment{},
	}
	if err := entry.Validate(); err != nil {
		return core.WorkLog{}, err
	}
	rate, ok := rates.Rate(equipment)
	if !ok {
		return core.WorkLog{}, core.Invalid("equipment", core.ErrMissingRate)
	}
	entry.Rate = rate
	entry.TotalCost = TotalCost(hours, minutes, rate)
	entry.Balance = entry.TotalCost
	return entry, nil
}

// WorkLogEdit lists the fields an edit may change. Nil means unchanged.
// The owning customer is fixed at creation and cannot be edited.
type WorkLogEdit struct {
	Date      *core.Date      `json:"date,omitempty"`
	Equipment *core.Equipment `json:"equipment,omitempty"`
	Hours     *int            `json:"hours,omitempty"`
	Minutes   *int            `json:"minutes,omitempty"`
}

// EditWorkLog applies edit, re-snapshots the rate from the current price
// list, recomputes totalCost and then the balance against the payments
// already received. A fully paid entry can become due again.
func EditWorkLog(entry core.WorkLog, edit WorkLogEdit, rates core.Rates) (core.WorkLog, error) {
	next := entry.Clone()
	if edit.Date != nil {
		next.Date = *edit.Date
	}
	if edit.Equipment != nil {
		next.Equipment = *edit.Equipment
	}
	if edit.Hours != nil {
		next.Hours = *edit.Hours
	}
	if edit.Minutes != nil {
		next.Minutes = *edit.Minutes
	}
	if err := next.Validate(); err != nil {
		return core.WorkLog{}, err
	}
	rate, ok := rates.Rate(next.Equipment)
	if !ok {
		return core.WorkLog{}, core.Invalid("equipment", core.ErrMissingRate)
	}
	next.Rate = rate
	next.TotalCost = TotalCost(next.Hours, next.Minutes, rate)
	return Recompute(next), nil
}

// AddPayment appends a payment and lowers the balance by amount.
// Overpayment is accepted and leaves a negative balance.
func AddPayment(entry core.WorkLog, date core.Date, amount core.Money) (core.WorkLog, core.Payment, error) {
	p := core.Payment{ID: core.NewID(), Date: date, Amount: amount}
	if err := p.Validate(); err != nil {
		return core.WorkLog{}, core.Payment{}, err
	}
	next := entry.Clone()
	next.Payments = append(next.Payments, p)
	return Recompute(next), p, nil
}

// DeletePayment removes one payment and recomputes the balance.
func DeletePayment(entry core.WorkLog, paymentID string) (core.WorkLog, error) {
	next := entry.Clone()
	for i, p := range next.Payments {
		if p.ID == paymentID {
			next.Payments = append(next.Payments[:i], next.Payments[i+1:]...)
			return Recompute(next), nil
		}
	}
	return core.WorkLog{}, core.NotFound("payment", paymentID)
}
