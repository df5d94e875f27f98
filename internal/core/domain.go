package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	Rotavator Equipment = "Rotavator"
	TangHar   Equipment = "Tang Har"
)

type (
	// Equipment is the kind of attachment a work entry was billed for.
	Equipment string

	Customer struct {
		ID      string `json:"id"`
		Name    string `json:"name" validate:"required,min=2,max=100"`
		Phone   string `json:"phone" validate:"required,min=10,max=20"`
		Notes   string `json:"notes"`
		Address string `json:"address" validate:"max=300"`
	}

	Payment struct {
		ID     string `json:"id"`
		Date   Date   `json:"date"`
		Amount Money  `json:"amount"`
	}

	// WorkLog is one billable session of equipment usage. Rate is the
	// hourly price captured when the entry was created or last edited.
	WorkLog struct {
		ID         string    `json:"id"`
		CustomerID string    `json:"customerId" validate:"required"`
		Date       Date      `json:"date"`
		Equipment  Equipment `json:"equipment" validate:"required,equipment"`
		Hours      int       `json:"hours" validate:"gte=0,lte=24"`
		Minutes    int       `json:"minutes" validate:"gte=0,lte=59"`
		Rate       Money     `json:"rate"`
		TotalCost  Money     `json:"totalCost"`
		Payments   []Payment `json:"payments"`
		Balance    Money     `json:"balance"`
	}

	Expense struct {
		ID          string `json:"id"`
		Date        Date   `json:"date"`
		Category    string `json:"category" validate:"required,min=2,max=100"`
		Amount      Money  `json:"amount"`
		Description string `json:"description" validate:"max=500"`
	}

	// AppData is the whole persisted document of one account.
	AppData struct {
		Customers []Customer `json:"customers"`
		WorkLogs  []WorkLog  `json:"workLogs"`
		Expenses  []Expense  `json:"expenses"`
		Settings  Settings   `json:"settings"`
	}

	// PartialAppData is an incoming document in which absent top-level
	// fields decode as nil.
	PartialAppData struct {
		Customers []Customer `json:"customers"`
		WorkLogs  []WorkLog  `json:"workLogs"`
		Expenses  []Expense  `json:"expenses"`
		Settings  *Settings  `json:"settings"`
	}
)

// Equipments lists every known equipment kind in display order.
func Equipments() []Equipment {
	return []Equipment{Rotavator, TangHar}
}

func (e Equipment) IsValid() bool {
	switch e {
	case Rotavator, TangHar:
		return true
	default:
		return false
	}
}

func (e Equipment) String() string { return string(e) }

// NewID returns a fresh time-ordered identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (c Customer) Validate() error {
	return validateStruct(c)
}

func (p Payment) Validate() error {
	if err := p.Date.Validate(); err != nil {
		return Invalid("date", ErrInvalidDate)
	}
	if !p.Amount.IsPositive() {
		return Invalid("amount", ErrInvalidAmount)
	}
	return nil
}

func (w WorkLog) Validate() error {
	if err := validateStruct(w); err != nil {
		return err
	}
	if err := w.Date.Validate(); err != nil {
		return Invalid("date", ErrInvalidDate)
	}
	if w.Rate.IsNegative() {
		return Invalid("rate", ErrInvalidAmount)
	}
	return nil
}

func (e Expense) Validate() error {
	if err := validateStruct(e); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return Invalid("date", ErrInvalidDate)
	}
	if !e.Amount.IsPositive() {
		return Invalid("amount", ErrInvalidAmount)
	}
	return nil
}

// Paid is the amount already collected on the entry.
func (w WorkLog) Paid() Money {
	return w.TotalCost.Sub(w.Balance)
}

// NewAppData returns an empty document with default settings.
func NewAppData() AppData {
	return AppData{
		Customers: []Customer{},
		WorkLogs:  []WorkLog{},
		Expenses:  []Expense{},
		Settings:  DefaultSettings(),
	}
}

// Normalize replaces nil collections with empty ones so the document
// always encodes arrays and maps rather than null.
func (d AppData) Normalize() AppData {
	if d.Customers == nil {
		d.Customers = []Customer{}
	}
	if d.WorkLogs == nil {
		d.WorkLogs = []WorkLog{}
	}
	if d.Expenses == nil {
		d.Expenses = []Expense{}
	}
	for i := range d.WorkLogs {
		if d.WorkLogs[i].Payments != nil {
			continue
		}
		// copy before writing so the caller's backing array is untouched
		logs := append([]WorkLog{}, d.WorkLogs...)
		for j := i; j < len(logs); j++ {
			if logs[j].Payments == nil {
				logs[j].Payments = []Payment{}
			}
		}
		d.WorkLogs = logs
		break
	}
	d.Settings = d.Settings.normalize()
	return d
}

// Clone returns a deep copy that shares no slices or maps with d.
func (d AppData) Clone() AppData {
	out := AppData{
		Customers: append([]Customer(nil), d.Customers...),
		WorkLogs:  make([]WorkLog, len(d.WorkLogs)),
		Expenses:  append([]Expense(nil), d.Expenses...),
		Settings:  d.Settings.Clone(),
	}
	for i, w := range d.WorkLogs {
		out.WorkLogs[i] = w.Clone()
	}
	return out.Normalize()
}

// Clone copies the entry including its payment list.
func (w WorkLog) Clone() WorkLog {
	w.Payments = append([]Payment{}, w.Payments...)
	return w
}

// Partial converts a full document into a merge source in which every
// top-level field is present.
func (d AppData) Partial() PartialAppData {
	d = d.Normalize()
	s := d.Settings
	return PartialAppData{
		Customers: d.Customers,
		WorkLogs:  d.WorkLogs,
		Expenses:  d.Expenses,
		Settings:  &s,
	}
}

// Merge overlays every top-level field present in p onto d. Fields are
// replaced wholesale; there is no per-record conflict resolution.
func (d AppData) Merge(p PartialAppData) AppData {
	out := d.Clone()
	if p.Customers != nil {
		out.Customers = append([]Customer{}, p.Customers...)
	}
	if p.WorkLogs != nil {
		out.WorkLogs = make([]WorkLog, len(p.WorkLogs))
		for i, w := range p.WorkLogs {
			out.WorkLogs[i] = w.Clone()
		}
	}
	if p.Expenses != nil {
		out.Expenses = append([]Expense{}, p.Expenses...)
	}
	if p.Settings != nil {
		out.Settings = p.Settings.Clone()
	}
	return out.Normalize()
}

// FindCustomer returns the index of the customer with id, or -1.
func (d AppData) FindCustomer(id string) int {
	for i, c := range d.Customers {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// FindWorkLog returns the index of the work entry with id, or -1.
func (d AppData) FindWorkLog(id string) int {
	for i, w := range d.WorkLogs {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// FindExpense returns the index of the expense with id, or -1.
func (d AppData) FindExpense(id string) int {
	for i, e := range d.Expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Fingerprint hashes the canonical JSON encoding of the document. Two
// documents with equal values have equal fingerprints.
func Fingerprint(d AppData) (string, error) {
	b, err := json.Marshal(d.Normalize())
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
