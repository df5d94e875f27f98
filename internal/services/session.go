package services

import (
	"context"
	"sync"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/ledger"
	"github.com/omrishi123/tractortrack/internal/log"
	"github.com/omrishi123/tractortrack/internal/report"
	"github.com/omrishi123/tractortrack/internal/summary"
)

// Session owns the authoritative in-memory document of one account. All
// calls are serialised by its lock; every successful mutation is handed to
// the coalescer for persistence.
type Session struct {
	userID    string
	coalescer *Coalescer
	logger    *log.Logger
	events    *log.EventLogger

	mu       sync.RWMutex
	data     core.AppData
	lastErr  error
	repaired bool

	cancel context.CancelFunc
}

// NewSession wraps doc, which must already match what the store holds.
func NewSession(userID string, doc core.AppData, c *Coalescer, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentSession).WithUser(userID)
	stored := doc.Normalize()
	data, repaired := ledger.Reconcile(stored)
	s := &Session{
		userID:    userID,
		coalescer: c,
		logger:    logger,
		events:    log.NewEventLogger(logger),
		data:      data,
		repaired:  repaired,
		cancel:    func() {},
	}
	if hash, err := core.Fingerprint(stored); err == nil {
		c.MarkPersisted(hash)
	}
	if repaired {
		logger.Warn("Stored balances disagreed with payments, recomputed", log.FieldOperation, log.OpReload)
	}
	return s
}

func (s *Session) UserID() string { return s.userID }

// scheduleRepair queues a write of balances recomputed at load time.
func (s *Session) scheduleRepair() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.repaired {
		return
	}
	s.repaired = false
	if err := s.coalescer.Schedule(s.data); err != nil {
		s.logger.Warn("Could not schedule repaired document write", log.FieldError, err)
	}
}

// Data returns a copy of the whole document.
func (s *Session) Data() core.AppData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

func (s *Session) read(fn func(core.AppData)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Session) Summary() summary.Summary {
	var out summary.Summary
	s.read(func(d core.AppData) { out = summary.Compute(d) })
	return out
}

func (s *Session) Dues() []summary.CustomerDue {
	var out []summary.CustomerDue
	s.read(func(d core.AppData) { out = summary.DuesByCustomer(d) })
	return out
}

func (s *Session) SearchCustomers(term string) []core.Customer {
	var out []core.Customer
	s.read(func(d core.AppData) { out = summary.SearchCustomers(d.Customers, term) })
	return out
}

func (s *Session) CustomerLedger(customerID string) (summary.CustomerLedger, error) {
	var (
		out summary.CustomerLedger
		err error
	)
	s.read(func(d core.AppData) { out, err = summary.Ledger(d, customerID) })
	return out, err
}

func (s *Session) Outstanding(customerID string) ([]summary.EntryView, error) {
	var (
		out []summary.EntryView
		err error
	)
	s.read(func(d core.AppData) { out, err = summary.Outstanding(d, customerID) })
	return out, err
}

func (s *Session) Report(req report.Request) (report.Invoice, error) {
	var (
		out report.Invoice
		err error
	)
	s.read(func(d core.AppData) { out, err = report.Assemble(req, d) })
	return out, err
}

// mutate applies fn under the write lock and schedules persistence when fn
// succeeds. changed=false leaves the document untouched and unscheduled.
func mutate[T any](s *Session, op string, fields log.LogFields, fn func(core.AppData) (core.AppData, T, bool, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, out, changed, err := fn(s.data)
	if err != nil {
		return out, err
	}
	if !changed {
		return out, nil
	}
	s.data = next
	if err := s.coalescer.Schedule(next); err != nil {
		s.logger.Warn("Could not schedule document write", log.FieldError, err)
	}
	s.events.Mutation(context.Background(), s.userID, op, fields)
	return out, nil
}

func (s *Session) AddCustomer(in ledger.CustomerInput) (core.Customer, error) {
	return mutate(s, log.OpCreate, log.NewFields(), func(d core.AppData) (core.AppData, core.Customer, bool, error) {
		next, c, err := ledger.AddCustomer(d, in)
		return next, c, err == nil, err
	})
}

func (s *Session) UpdateCustomer(c core.Customer) (core.Customer, error) {
	return mutate(s, log.OpUpdate, log.NewFields().WithWorkLog(c.ID, "", "", ""), func(d core.AppData) (core.AppData, core.Customer, bool, error) {
		next, out, err := ledger.UpdateCustomer(d, c)
		return next, out, err == nil, err
	})
}

func (s *Session) UpdateCustomerNotes(customerID, notes string) error {
	_, err := mutate(s, log.OpUpdate, log.NewFields().WithWorkLog(customerID, "", "", ""), func(d core.AppData) (core.AppData, struct{}, bool, error) {
		next, err := ledger.UpdateCustomerNotes(d, customerID, notes)
		return next, struct{}{}, err == nil, err
	})
	return err
}

// DeleteCustomer removes the customer and its work entries. It reports
// whether the customer existed.
func (s *Session) DeleteCustomer(customerID string) bool {
	removed, _ := mutate(s, log.OpDelete, log.NewFields().WithWorkLog(customerID, "", "", ""), func(d core.AppData) (core.AppData, bool, bool, error) {
		next, ok := ledger.DeleteCustomer(d, customerID)
		return next, ok, ok, nil
	})
	return removed
}

func (s *Session) AddWorkLog(in ledger.WorkLogInput) (core.WorkLog, error) {
	return mutate(s, log.OpCreate, log.NewFields().WithWorkLog(in.CustomerID, "", string(in.Equipment), ""), func(d core.AppData) (core.AppData, core.WorkLog, bool, error) {
		next, w, err := ledger.AddWorkLog(d, in)
		return next, w, err == nil, err
	})
}

func (s *Session) UpdateWorkLog(workLogID string, edit ledger.WorkLogEdit) (core.WorkLog, error) {
	return mutate(s, log.OpUpdate, log.NewFields().WithWorkLog("", workLogID, "", ""), func(d core.AppData) (core.AppData, core.WorkLog, bool, error) {
		next, w, err := ledger.UpdateWorkLog(d, workLogID, edit)
		return next, w, err == nil, err
	})
}

func (s *Session) DeleteWorkLog(workLogID string) bool {
	removed, _ := mutate(s, log.OpDelete, log.NewFields().WithWorkLog("", workLogID, "", ""), func(d core.AppData) (core.AppData, bool, bool, error) {
		next, ok := ledger.DeleteWorkLog(d, workLogID)
		return next, ok, ok, nil
	})
	return removed
}

func (s *Session) AddPayment(workLogID string, date core.Date, amount core.Money) (core.WorkLog, error) {
	return mutate(s, log.OpPay, log.NewFields().WithWorkLog("", workLogID, "", amount.String()), func(d core.AppData) (core.AppData, core.WorkLog, bool, error) {
		next, w, err := ledger.AddPaymentTo(d, workLogID, date, amount)
		return next, w, err == nil, err
	})
}

func (s *Session) DeletePayment(workLogID, paymentID string) (core.WorkLog, error) {
	return mutate(s, log.OpDelete, log.NewFields().WithWorkLog("", workLogID, "", ""), func(d core.AppData) (core.AppData, core.WorkLog, bool, error) {
		next, w, err := ledger.DeletePaymentFrom(d, workLogID, paymentID)
		return next, w, err == nil, err
	})
}

func (s *Session) AddExpense(in ledger.ExpenseInput) (core.Expense, error) {
	return mutate(s, log.OpCreate, log.NewFields().WithWorkLog("", "", "", in.Amount.String()), func(d core.AppData) (core.AppData, core.Expense, bool, error) {
		next, e, err := ledger.AddExpense(d, in)
		return next, e, err == nil, err
	})
}

func (s *Session) UpdateExpense(e core.Expense) (core.Expense, error) {
	return mutate(s, log.OpUpdate, log.NewFields(), func(d core.AppData) (core.AppData, core.Expense, bool, error) {
		next, out, err := ledger.UpdateExpense(d, e)
		return next, out, err == nil, err
	})
}

func (s *Session) DeleteExpense(expenseID string) bool {
	removed, _ := mutate(s, log.OpDelete, log.NewFields(), func(d core.AppData) (core.AppData, bool, bool, error) {
		next, ok := ledger.DeleteExpense(d, expenseID)
		return next, ok, ok, nil
	})
	return removed
}

func (s *Session) UpdateSettings(patch core.SettingsPatch) (core.Settings, error) {
	return mutate(s, log.OpUpdate, log.NewFields(), func(d core.AppData) (core.AppData, core.Settings, bool, error) {
		next, err := ledger.UpdateSettings(d, patch)
		return next, next.Settings.Clone(), err == nil, err
	})
}

// ApplyRemote overlays a document received from the store or another
// device. Present top-level fields replace the local ones wholesale. When
// the result equals the incoming full document it is recorded as already
// persisted, so the change is not written back. Balances are recomputed
// from payments; a document that needed repair is written back.
func (s *Session) ApplyRemote(incoming core.PartialAppData) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, repaired := ledger.Reconcile(s.data.Merge(incoming))
	mergedHash, err := core.Fingerprint(merged)
	if err != nil {
		s.logger.Warn("Discarding undecodable remote document", log.FieldError, err)
		return false
	}
	if s.coalescer.IsOwnWrite(mergedHash) {
		return false
	}
	currentHash, _ := core.Fingerprint(s.data)
	if mergedHash == currentHash {
		return false
	}

	s.data = merged
	if isComplete(incoming) && !repaired {
		s.coalescer.MarkPersisted(mergedHash)
	} else if err := s.coalescer.Schedule(merged); err != nil {
		s.logger.Warn("Could not schedule merged document write", log.FieldError, err)
	}
	s.logger.Info("Applied remote document", log.FieldOperation, log.OpMerge, log.FieldHash, mergedHash)
	return true
}

func isComplete(p core.PartialAppData) bool {
	return p.Customers != nil && p.WorkLogs != nil && p.Expenses != nil && p.Settings != nil
}

func (s *Session) recordPersistError(err *core.PersistenceError) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.events.Failure(context.Background(), "Document write failed", err, log.OpPersist,
		log.NewFields().WithUser(s.userID).WithErrorType(log.ErrorTypeDatabase))
}

func (s *Session) recordPersisted() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

// SessionStatus describes the persistence state of a session.
type SessionStatus struct {
	Pending   bool           `json:"pending"`
	LastError string         `json:"lastError,omitempty"`
	Stats     CoalescerStats `json:"stats"`
}

func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	lastErr := s.lastErr
	s.mu.RUnlock()
	st := SessionStatus{Pending: s.coalescer.Pending(), Stats: s.coalescer.Stats()}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}
	return st
}

// Flush writes any pending change now.
func (s *Session) Flush(ctx context.Context) error {
	return s.coalescer.Flush(ctx)
}

// release stops remote deliveries and writes pending changes. The session
// stays usable; later mutations are still persisted by the coalescer.
func (s *Session) release(ctx context.Context) error {
	s.cancel()
	return s.coalescer.Flush(ctx)
}

// Close releases the session and rejects further writes.
func (s *Session) Close(ctx context.Context) error {
	s.cancel()
	return s.coalescer.Close(ctx)
}
