package model

import "time"

// BillStatus is the payment state of a water bill.
type BillStatus string

const (
	// StatusCurrent means a balance exists but the due date is more than a week away.
	StatusCurrent BillStatus = "current"

	// StatusDueSoon means the bill is due within DueSoonDays days.
	StatusDueSoon BillStatus = "due_soon"

	// StatusOverdue means the due date has passed with a balance outstanding.
	StatusOverdue BillStatus = "overdue"

	// StatusPaid means nothing is owed.
	StatusPaid BillStatus = "paid"

	// StatusUnknown means a balance exists but the portal did not show a due date.
	StatusUnknown BillStatus = "unknown"
)

// DueSoonDays is the window, in days, in which a bill counts as due soon.
const DueSoonDays = 7

// CalculateStatus derives a bill's status from the amount due and due date.
// A zero due date means the due date is unknown.
func CalculateStatus(amountDue Cents, dueDate, today time.Time) BillStatus {
	if amountDue <= 0 {
		return StatusPaid
	}
	if dueDate.IsZero() {
		return StatusUnknown
	}

	days := DaysBetween(today, dueDate)
	switch {
	case days < 0:
		return StatusOverdue
	case days <= DueSoonDays:
		return StatusDueSoon
	default:
		return StatusCurrent
	}
}

// Emoji returns the indicator shown next to a property in chat messages.
func (s BillStatus) Emoji() string {
	switch s {
	case StatusCurrent:
		return "🟢"
	case StatusDueSoon:
		return "🟡"
	case StatusOverdue:
		return "🔴"
	case StatusPaid:
		return "✅"
	default:
		return "⚪"
	}
}

// Label returns a human-readable name for the status.
func (s BillStatus) Label() string {
	switch s {
	case StatusCurrent:
		return "Current"
	case StatusDueSoon:
		return "Due Soon"
	case StatusOverdue:
		return "Overdue"
	case StatusPaid:
		return "Paid"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is one of the known statuses.
func (s BillStatus) Valid() bool {
	switch s {
	case StatusCurrent, StatusDueSoon, StatusOverdue, StatusPaid, StatusUnknown:
		return true
	}
	return false
}
