package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/omrishi123/tractortrack/internal/core"
)

// DueChecker decides whether a customer last served on last is due again.
type DueChecker interface {
	IsDue(last, today core.Date, intervalDays int) (overdueDays int, due bool)
}

// DaysChecker is due once intervalDays full days have passed.
type DaysChecker struct{}

func (DaysChecker) IsDue(last, today core.Date, intervalDays int) (int, bool) {
	if intervalDays <= 0 || last.IsEmpty() {
		return 0, false
	}
	elapsed := int(today.Sub(last.Time).Hours() / 24)
	if elapsed < intervalDays {
		return 0, false
	}
	return elapsed - intervalDays, true
}

// IntervalAdvisor answers without any remote service by comparing each
// customer's last service date with the interval of the equipment used.
// Customers with no history are never suggested.
type IntervalAdvisor struct {
	Checker DueChecker
	Now     func() time.Time
}

func NewIntervalAdvisor() *IntervalAdvisor {
	return &IntervalAdvisor{Checker: DaysChecker{}, Now: time.Now}
}

func (a *IntervalAdvisor) Suggest(ctx context.Context, in Input) (Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return Suggestion{}, err
	}
	checker := a.Checker
	if checker == nil {
		checker = DaysChecker{}
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	today := core.DateOf(now())

	names := []string{}
	overdue := map[string]int{}
	var reasons []string
	for _, c := range in.Customers {
		if c.LastServiceDate == NoServiceDate {
			continue
		}
		last, err := core.ParseDate(c.LastServiceDate)
		if err != nil {
			return Suggestion{}, fmt.Errorf("customer %s: %w", c.Name, err)
		}
		interval := in.RoutineServiceIntervalsInDays[c.LastEquipment]
		days, due := checker.IsDue(last, today, interval)
		if !due {
			continue
		}
		names = append(names, c.Name)
		overdue[c.Name] = days
		reasons = append(reasons, fmt.Sprintf("%s: last %s on %s, interval %d days",
			c.Name, c.LastEquipment, c.LastServiceDate, interval))
	}
	sortByOverdue(names, overdue)

	reasoning := "No customer has passed the service interval of their last job."
	if len(names) > 0 {
		reasoning = "Service interval elapsed for " + strings.Join(reasons, "; ") + "."
	}
	return Suggestion{CustomersToContact: names, Reasoning: reasoning}, nil
}
