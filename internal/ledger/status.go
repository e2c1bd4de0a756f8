package ledger

import (
	"fmt"
	"time"

	"pagamentos/internal/core"
)

const (
	StatusPaid     StatusKind = "paid"
	StatusOverdue  StatusKind = "overdue"
	StatusDueToday StatusKind = "due_today"
	StatusDueSoon  StatusKind = "due_soon"
	StatusOpen     StatusKind = "open"
)

// DueSoonDays is the inclusive horizon of the DueSoon bucket.
const DueSoonDays = 5

type (
	StatusKind string

	// Status is the display status of a bill. DaysRemaining is set only for StatusDueSoon.
	Status struct {
		Kind          StatusKind `json:"kind"`
		DaysRemaining int        `json:"days_remaining,omitempty"`
	}
)

// Today returns the current local date at midnight.
func Today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// Classify derives the status of r relative to the calendar date of ref.
// It has no side effects and must be re-run whenever Paid or DueDate change.
func Classify(r *core.BillRecord, ref time.Time) Status {
	if r.Paid {
		return Status{Kind: StatusPaid}
	}
	if r.DueDate.IsEmpty() {
		return Status{Kind: StatusOpen}
	}

	// Both sides are UTC midnights, so the difference is a whole number of days.
	diff := int(r.DueDate.Sub(core.DateOf(ref).Time).Hours() / 24)
	switch {
	case diff < 0:
		return Status{Kind: StatusOverdue}
	case diff == 0:
		return Status{Kind: StatusDueToday}
	case diff <= DueSoonDays:
		return Status{Kind: StatusDueSoon, DaysRemaining: diff}
	default:
		return Status{Kind: StatusOpen}
	}
}

// Label returns the pt-BR text shown for the status.
func (s Status) Label() string {
	switch s.Kind {
	case StatusPaid:
		return "Pago"
	case StatusOverdue:
		return "Vencida"
	case StatusDueToday:
		return "Vence hoje"
	case StatusDueSoon:
		return fmt.Sprintf("Vence em %d dia(s)", s.DaysRemaining)
	default:
		return "Em aberto"
	}
}
