// Package export lays invoices out as tables shared by the file and sheet
// renderers.
package export

import (
	"fmt"
	"strings"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/report"
)

// Labels are the fixed captions printed on an invoice.
type Labels struct {
	Invoice   string
	BillTo    string
	Phone     string
	Address   string
	Period    string
	Generated string
	Date      string
	Equipment string
	Duration  string
	Rate      string
	Cost      string
	Paid      string
	Balance   string
	Total     string
	Signature string
}

var labels = map[core.Language]Labels{
	core.English: {
		Invoice:   "Invoice",
		BillTo:    "Bill To",
		Phone:     "Phone",
		Address:   "Address",
		Period:    "Period",
		Generated: "Generated",
		Date:      "Date",
		Equipment: "Equipment",
		Duration:  "Duration",
		Rate:      "Rate/hr",
		Cost:      "Cost",
		Paid:      "Paid",
		Balance:   "Balance",
		Total:     "Total",
		Signature: "Authorised Signature",
	},
	core.Hindi: {
		Invoice:   "बिल",
		BillTo:    "ग्राहक",
		Phone:     "फ़ोन",
		Address:   "पता",
		Period:    "अवधि",
		Generated: "जारी",
		Date:      "तारीख",
		Equipment: "उपकरण",
		Duration:  "समय",
		Rate:      "दर/घंटा",
		Cost:      "लागत",
		Paid:      "भुगतान",
		Balance:   "बकाया",
		Total:     "कुल",
		Signature: "हस्ताक्षर",
	},
}

// LabelsFor falls back to English for unknown languages.
func LabelsFor(lang core.Language) Labels {
	if l, ok := labels[lang]; ok {
		return l
	}
	return labels[core.English]
}

// Layout is an invoice as rows of cells. Money cells are float64 so
// spreadsheets treat them as numbers.
type Layout struct {
	Rows       [][]any
	HeadingRow int // index of the line table heading
	TotalsRow  int
	Columns    int
}

// Table builds the layout: title block, bill-to block, line table, totals.
func Table(inv report.Invoice) Layout {
	l := LabelsFor(inv.Language)

	title := l.Invoice
	if name := strings.TrimSpace(inv.Header.TractorName); name != "" {
		title = name + " " + l.Invoice
	}
	rows := [][]any{
		{title},
		{inv.Header.UserName},
		{l.Period, inv.Period()},
		{l.Generated, inv.Generated.String()},
		{},
		{l.BillTo, inv.BillTo.Name},
		{l.Phone, inv.BillTo.Phone},
	}
	if inv.BillTo.Address != "" {
		rows = append(rows, []any{l.Address, inv.BillTo.Address})
	}
	rows = append(rows, []any{})

	heading := len(rows)
	rows = append(rows, []any{l.Date, l.Equipment, l.Duration, l.Rate, l.Cost, l.Paid, l.Balance})
	for _, line := range inv.Lines {
		rows = append(rows, []any{
			line.Date.String(),
			string(line.Equipment),
			line.Duration,
			line.Rate.Float64(),
			line.Cost.Float64(),
			line.Paid.Float64(),
			line.Balance.Float64(),
		})
	}

	totals := len(rows)
	rows = append(rows,
		[]any{l.Total, "", "", "", inv.Totals.Billed.Float64(), inv.Totals.Paid.Float64(), inv.Totals.Balance.Float64()},
		[]any{},
		[]any{l.Signature},
	)

	return Layout{Rows: rows, HeadingRow: heading, TotalsRow: totals, Columns: 7}
}

// Title names an exported invoice after the customer and period.
func Title(inv report.Invoice) string {
	name := strings.TrimSpace(inv.BillTo.Name)
	if name == "" {
		name = "Customer"
	}
	return fmt.Sprintf("%s %s", name, inv.Period())
}

// Filename is Title made safe for file systems and quoted header values.
func Filename(inv report.Invoice, ext string) string {
	r := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "_", `"`, "", "\r", "", "\n", "")
	return r.Replace(Title(inv)) + "." + ext
}
