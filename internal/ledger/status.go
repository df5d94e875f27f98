package ledger

import "github.com/omrishi123/tractortrack/internal/core"

// Status classifies how much of an entry has been paid.
type Status string

const (
	StatusPaid    Status = "Paid"
	StatusPartial Status = "Partial"
	StatusUnpaid  Status = "Unpaid"
)

// StatusOf returns Paid when nothing is owed (overpayment included),
// Partial when some but not all of the cost was collected, and Unpaid
// otherwise.
func StatusOf(entry core.WorkLog) Status {
	switch {
	case entry.Balance.Sign() <= 0:
		return StatusPaid
	case entry.Balance.LessThan(entry.TotalCost):
		return StatusPartial
	default:
		return StatusUnpaid
	}
}
