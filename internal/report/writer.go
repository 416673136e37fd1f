package report

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
	"github.com/bluedeer/waterbill/internal/notify"
)

// Dashboard is everything a report shows.
type Dashboard struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Summary     notify.BillSummary   `json:"summary"`
	Bills       []model.PropertyBill `json:"bills"`
	LastScrape  *model.ScrapeLog     `json:"last_scrape,omitempty"`
}

// NewDashboard summarizes bills. Bills are ordered by address.
func NewDashboard(bills []model.PropertyBill, lastScrape *model.ScrapeLog, now time.Time) *Dashboard {
	sorted := slices.Clone(bills)
	slices.SortStableFunc(sorted, func(a, b model.PropertyBill) int {
		return strings.Compare(a.Property.Address, b.Property.Address)
	})
	if sorted == nil {
		sorted = []model.PropertyBill{}
	}
	return &Dashboard{
		GeneratedAt: now,
		Summary:     notify.Summarize(sorted),
		Bills:       sorted,
		LastScrape:  lastScrape,
	}
}

// StatusCount is the number of properties in one status.
type StatusCount struct {
	Status model.BillStatus
	Label  string
	Count  int
}

// StatusCounts returns the status breakdown in display order.
func (d *Dashboard) StatusCounts() []StatusCount {
	s := d.Summary
	return []StatusCount{
		{model.StatusOverdue, "Overdue", len(s.Overdue)},
		{model.StatusDueSoon, "Due Soon", len(s.DueSoon)},
		{model.StatusCurrent, "Current", s.Current},
		{model.StatusPaid, "Paid", s.Paid},
		{model.StatusUnknown, "Unknown", s.Unknown},
	}
}

// Writer defines the interface for report output.
type Writer interface {
	// Write renders the dashboard and returns the number of bytes written.
	Write(d *Dashboard) (int, error)
}

// MultiWriter writes to multiple Writers in turn, stopping at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the dashboard to all configured Writers.
func (m *MultiWriter) Write(d *Dashboard) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(d)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// dueText describes the due date of a bill for tables.
func dueText(b *model.WaterBill) string {
	if b == nil {
		return "-"
	}
	return notify.Date(b.DueDate)
}

// amountText is the balance of a bill, or "-" without one.
func amountText(b *model.WaterBill) string {
	if b == nil {
		return "-"
	}
	return notify.Money(b.AmountDue)
}

// scrapeText describes the last refresh run.
func scrapeText(l *model.ScrapeLog) string {
	if l == nil {
		return "never"
	}
	when := l.StartedAt.Format("Jan 02, 2006 15:04")
	if l.Success {
		return when + " (success)"
	}
	if l.ErrorMessage != "" {
		return when + " (failed: " + l.ErrorMessage + ")"
	}
	return when + " (failed)"
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
