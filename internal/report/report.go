// Package report assembles invoice documents from an account. It produces
// structured data only; rendering is left to the export packages.
package report

import (
	"fmt"
	"slices"

	"github.com/omrishi123/tractortrack/internal/core"
)

// Request selects the customer and the optional inclusive date range.
// A zero bound leaves that side unconstrained.
type Request struct {
	CustomerID string    `json:"customerId"`
	From       core.Date `json:"from"`
	To         core.Date `json:"to"`
}

type Header struct {
	UserName    string `json:"userName"`
	TractorName string `json:"tractorName"`
	Logo        string `json:"logo"`
}

type BillTo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Line is one work entry as shown on the invoice.
type Line struct {
	WorkLogID string         `json:"workLogId"`
	Date      core.Date      `json:"date"`
	Equipment core.Equipment `json:"equipment"`
	Hours     int            `json:"hours"`
	Minutes   int            `json:"minutes"`
	Duration  string         `json:"duration"`
	Rate      core.Money     `json:"rate"`
	Cost      core.Money     `json:"cost"`
	Paid      core.Money     `json:"paid"`
	Balance   core.Money     `json:"balance"`
}

type Totals struct {
	Billed  core.Money `json:"billed"`
	Paid    core.Money `json:"paid"`
	Balance core.Money `json:"balance"`
}

// Invoice is the complete document handed to a renderer.
type Invoice struct {
	Header    Header        `json:"header"`
	BillTo    BillTo        `json:"billTo"`
	Lines     []Line        `json:"lines"`
	Totals    Totals        `json:"totals"`
	Signature string        `json:"signature"`
	From      core.Date     `json:"from"`
	To        core.Date     `json:"to"`
	Generated core.Date     `json:"generated"`
	Language  core.Language `json:"language"`
}

// Period describes the date range for titles, e.g. "2024-01-01 to 2024-01-31".
func (inv Invoice) Period() string {
	switch {
	case inv.From.IsEmpty() && inv.To.IsEmpty():
		return "All time"
	case inv.From.IsEmpty():
		return "Up to " + inv.To.String()
	case inv.To.IsEmpty():
		return "From " + inv.From.String()
	default:
		return inv.From.String() + " to " + inv.To.String()
	}
}

// Validate rejects a range whose start is after its end.
func (r Request) Validate() error {
	if !r.From.IsEmpty() && !r.To.IsEmpty() && r.From.After(r.To) {
		return &core.ValidationError{Field: "from", Reason: "start date is after end date", Err: core.ErrInvalidDate}
	}
	return nil
}

func (r Request) includes(d core.Date) bool {
	if !r.From.IsEmpty() && d.Before(r.From) {
		return false
	}
	if !r.To.IsEmpty() && d.After(r.To) {
		return false
	}
	return true
}

// Assemble builds the invoice for req, stamping it with today's date.
func Assemble(req Request, data core.AppData) (Invoice, error) {
	return AssembleAt(req, data, core.Today())
}

// AssembleAt is Assemble with an explicit generation date.
func AssembleAt(req Request, data core.AppData, generated core.Date) (Invoice, error) {
	if err := req.Validate(); err != nil {
		return Invoice{}, err
	}
	i := data.FindCustomer(req.CustomerID)
	if i < 0 {
		return Invoice{}, core.NotFound("customer", req.CustomerID)
	}
	c := data.Customers[i]
	s := data.Settings

	inv := Invoice{
		Header:    Header{UserName: s.UserName, TractorName: s.TractorName, Logo: s.Logo},
		BillTo:    BillTo{Name: c.Name, Phone: c.Phone, Address: c.Address},
		Lines:     []Line{},
		Totals:    Totals{Billed: core.Zero, Paid: core.Zero, Balance: core.Zero},
		Signature: s.Signature,
		From:      req.From,
		To:        req.To,
		Generated: generated,
		Language:  s.Language,
	}

	var entries []core.WorkLog
	for _, w := range data.WorkLogs {
		if w.CustomerID == req.CustomerID && req.includes(w.Date) {
			entries = append(entries, w)
		}
	}
	slices.SortStableFunc(entries, func(a, b core.WorkLog) int {
		return a.Date.Compare(b.Date.Time)
	})

	for _, w := range entries {
		paid := w.Paid()
		inv.Lines = append(inv.Lines, Line{
			WorkLogID: w.ID,
			Date:      w.Date,
			Equipment: w.Equipment,
			Hours:     w.Hours,
			Minutes:   w.Minutes,
			Duration:  FormatDuration(w.Hours, w.Minutes),
			Rate:      w.Rate,
			Cost:      w.TotalCost,
			Paid:      paid,
			Balance:   w.Balance,
		})
		inv.Totals.Billed = inv.Totals.Billed.Add(w.TotalCost)
		inv.Totals.Paid = inv.Totals.Paid.Add(paid)
		inv.Totals.Balance = inv.Totals.Balance.Add(w.Balance)
	}
	return inv, nil
}

// FormatDuration renders a session length as "2h 30m".
func FormatDuration(hours, minutes int) string {
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
