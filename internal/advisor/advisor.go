// Package advisor suggests which customers are due for routine work.
package advisor

import (
	"cmp"
	"context"
	"slices"

	"github.com/omrishi123/tractortrack/internal/core"
)

// NoServiceDate marks a customer without any logged work.
const NoServiceDate = "N/A"

type (
	// CustomerRecord is the per-customer history an advisor looks at.
	CustomerRecord struct {
		Name            string         `json:"name"`
		Phone           string         `json:"phone"`
		LastServiceDate string         `json:"lastServiceDate"`
		LastEquipment   core.Equipment `json:"lastEquipment,omitempty"`
	}

	// Input is the request body sent to an advisor.
	Input struct {
		Customers                     []CustomerRecord      `json:"customerData"`
		RoutineServiceIntervalsInDays core.ServiceIntervals `json:"routineServiceIntervalsInDays"`
	}

	// Suggestion lists customer names to contact and why.
	Suggestion struct {
		CustomersToContact []string `json:"customersToContact"`
		Reasoning          string   `json:"reasoning"`
	}

	Advisor interface {
		Suggest(ctx context.Context, in Input) (Suggestion, error)
	}
)

// BuildInput collects each customer's most recent work entry together with
// the configured service intervals. Customers keep their document order.
func BuildInput(data core.AppData) Input {
	latest := make(map[string]core.WorkLog, len(data.Customers))
	for _, w := range data.WorkLogs {
		prev, ok := latest[w.CustomerID]
		if !ok || w.Date.After(prev.Date) {
			latest[w.CustomerID] = w
		}
	}

	in := Input{
		Customers:                     make([]CustomerRecord, 0, len(data.Customers)),
		RoutineServiceIntervalsInDays: core.ServiceIntervals{},
	}
	for e, days := range data.Settings.ServiceIntervals {
		in.RoutineServiceIntervalsInDays[e] = days
	}
	for _, c := range data.Customers {
		rec := CustomerRecord{Name: c.Name, Phone: c.Phone, LastServiceDate: NoServiceDate}
		if w, ok := latest[c.ID]; ok {
			rec.LastServiceDate = w.Date.String()
			rec.LastEquipment = w.Equipment
		}
		in.Customers = append(in.Customers, rec)
	}
	return in
}

// sortByOverdue orders names by days overdue, most overdue first.
func sortByOverdue(names []string, overdue map[string]int) {
	slices.SortStableFunc(names, func(a, b string) int {
		return cmp.Compare(overdue[b], overdue[a])
	})
}
