package notify

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
)

// maxRecertsListed is how many tenants the recert overview shows.
const maxRecertsListed = 10

// recertDue is a tenant's next recertification relative to today.
type recertDue struct {
	tenant   string
	property string
	date     time.Time
	daysLeft int
}

func recertsDue(recerts []model.TenantRecert, today time.Time) []recertDue {
	out := make([]recertDue, 0, len(recerts))
	for _, r := range recerts {
		date, ok := r.Tenant.RecertDate()
		if !ok {
			continue
		}
		property := r.PropertyAddress
		if property == "" {
			property = "Unknown"
		}
		out = append(out, recertDue{
			tenant:   r.Tenant.Name,
			property: property,
			date:     date,
			daysLeft: model.DaysBetween(today, date),
		})
	}
	return out
}

// RecertReminders lists tenants whose recertification date is between today
// and windowDays from now. It returns "" when nobody is due.
func RecertReminders(recerts []model.TenantRecert, today time.Time, windowDays int) string {
	var b strings.Builder
	for _, r := range recertsDue(recerts, today) {
		if r.daysLeft < 0 || r.daysLeft > windowDays {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("🔔 *Recertification Reminders*\n\n")
		}

		var urgency string
		switch {
		case r.daysLeft == 0:
			urgency = "⚠️ *TODAY*"
		case r.daysLeft <= 7:
			urgency = "🔴 " + days(r.daysLeft)
		case r.daysLeft <= 14:
			urgency = "🟡 " + days(r.daysLeft)
		default:
			urgency = "🟢 " + days(r.daysLeft)
		}

		fmt.Fprintf(&b, "• *%s*\n", r.tenant)
		fmt.Fprintf(&b, "  📍 %s\n", r.property)
		fmt.Fprintf(&b, "  📅 Recert eligible: %s\n", Date(r.date))
		fmt.Fprintf(&b, "  ⏰ %s\n\n", urgency)
	}
	return b.String()
}

// RecertOverview lists the next recertifications, soonest first, including
// ones already past.
func RecertOverview(recerts []model.TenantRecert, today time.Time) string {
	due := recertsDue(recerts, today)
	if len(due) == 0 {
		return "No Section 8 tenants with lease dates found."
	}
	slices.SortStableFunc(due, func(a, b recertDue) int { return a.daysLeft - b.daysLeft })

	var b strings.Builder
	b.WriteString("📅 *Upcoming Recertifications*\n\n")
	for _, r := range due[:min(len(due), maxRecertsListed)] {
		var urgency string
		switch {
		case r.daysLeft < 0:
			urgency = fmt.Sprintf("🔴 %s ago!", days(-r.daysLeft))
		case r.daysLeft == 0:
			urgency = "⚠️ *TODAY*"
		case r.daysLeft <= 7:
			urgency = "🔴 " + days(r.daysLeft)
		case r.daysLeft <= 30:
			urgency = "🟡 " + days(r.daysLeft)
		default:
			urgency = "🟢 " + days(r.daysLeft)
		}

		fmt.Fprintf(&b, "• *%s*\n", r.tenant)
		fmt.Fprintf(&b, "  📍 %s\n", truncateRunes(r.property, 30))
		fmt.Fprintf(&b, "  📅 %s (%s)\n\n", Date(r.date), urgency)
	}
	return b.String()
}

// ThresholdAlerts lists properties whose latest bill is at least threshold.
// It returns "" when no bill qualifies.
func ThresholdAlerts(bills []model.PropertyBill, threshold model.Cents) string {
	var b strings.Builder
	for _, pb := range bills {
		if pb.Latest == nil || pb.Latest.AmountDue <= 0 || pb.Latest.AmountDue < threshold {
			continue
		}
		if b.Len() == 0 {
			fmt.Fprintf(&b, "💧 *Water Bill Alerts* (>%s)\n\n", wholeMoney(threshold))
		}
		fmt.Fprintf(&b, "• *%s*\n", pb.Property.Address)
		fmt.Fprintf(&b, "  💰 %s (due %s)\n\n", Money(pb.Latest.AmountDue), shortDate(pb.Latest.DueDate))
	}
	return b.String()
}

// DueSoonReminders lists unpaid bills due within the next 1 to 7 days.
// It returns "" when no bill qualifies.
func DueSoonReminders(bills []model.PropertyBill, today time.Time) string {
	var b strings.Builder
	for _, pb := range bills {
		if pb.Latest == nil || pb.Latest.AmountDue <= 0 || !pb.Latest.HasDueDate() {
			continue
		}
		left := model.DaysBetween(today, pb.Latest.DueDate)
		if left <= 0 || left > model.DueSoonDays {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("📅 *Bills Due Soon*\n\n")
		}
		fmt.Fprintf(&b, "• *%s*\n", pb.Property.Address)
		fmt.Fprintf(&b, "  💰 %s\n", Money(pb.Latest.AmountDue))
		fmt.Fprintf(&b, "  📅 Due in %s (%s)\n\n", days(left), shortDate(pb.Latest.DueDate))
	}
	return b.String()
}

// OverdueAlerts lists unpaid bills whose due date has passed.
// It returns "" when no bill qualifies.
func OverdueAlerts(bills []model.PropertyBill, today time.Time) string {
	var b strings.Builder
	for _, pb := range bills {
		if pb.Latest == nil || pb.Latest.AmountDue <= 0 || !pb.Latest.HasDueDate() {
			continue
		}
		late := model.DaysBetween(pb.Latest.DueDate, today)
		if late <= 0 {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("🔴 *Overdue Bills*\n\n")
		}
		fmt.Fprintf(&b, "• *%s*\n", pb.Property.Address)
		fmt.Fprintf(&b, "  💰 %s\n", Money(pb.Latest.AmountDue))
		fmt.Fprintf(&b, "  ⚠️ %s overdue\n\n", days(late))
	}
	return b.String()
}

// PropertyList renders the tracked properties with their latest balance.
func PropertyList(bills []model.PropertyBill) string {
	if len(bills) == 0 {
		return "No properties tracked yet.\nUse /add to add your first property."
	}

	var b strings.Builder
	b.WriteString("*📍 Your Properties:*\n\n")
	for _, pb := range bills {
		if pb.Latest == nil {
			fmt.Fprintf(&b, "⚪ *%s*\n", pb.Property.Address)
			b.WriteString("   No bill data yet\n\n")
			continue
		}
		fmt.Fprintf(&b, "%s *%s*\n", pb.StatusEmoji(), pb.Property.Address)
		fmt.Fprintf(&b, "   Balance: %s | Due: %s\n\n", Money(pb.Latest.AmountDue), Date(pb.Latest.DueDate))
	}
	return b.String()
}

// PropertyDetail renders one property and its latest bill.
func PropertyDetail(pb model.PropertyBill) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n", pb.StatusEmoji(), pb.Property.Address)
	fmt.Fprintf(&b, "*Account:* `%s`\n", pb.Property.AccountNumber)
	if pb.Property.OwnerName != "" {
		fmt.Fprintf(&b, "*Owner:* %s\n", pb.Property.OwnerName)
	}
	if pb.Property.TenantName != "" {
		fmt.Fprintf(&b, "*Tenant:* %s\n", pb.Property.TenantName)
	}

	bill := pb.Latest
	if bill == nil {
		b.WriteString("\nNo bill data yet. Use /refresh to fetch it.")
		return b.String()
	}

	fmt.Fprintf(&b, "\n💰 *Amount Due:* %s\n", Money(bill.AmountDue))
	fmt.Fprintf(&b, "📅 *Due Date:* %s\n", Date(bill.DueDate))
	fmt.Fprintf(&b, "*Status:* %s %s\n", bill.Status.Emoji(), bill.Status.Label())
	if bill.PreviousBalance != nil {
		fmt.Fprintf(&b, "Previous Balance: %s\n", Money(*bill.PreviousBalance))
	}
	if bill.CurrentCharges != nil {
		fmt.Fprintf(&b, "Current Charges: %s\n", Money(*bill.CurrentCharges))
	}
	if bill.LateFees != nil && *bill.LateFees > 0 {
		fmt.Fprintf(&b, "Late Fees: %s\n", Money(*bill.LateFees))
	}
	if bill.UsageGallons != nil {
		fmt.Fprintf(&b, "Usage: %s gallons\n", printer.Sprintf("%d", *bill.UsageGallons))
	}
	fmt.Fprintf(&b, "\n_Updated %s_", bill.ScrapedAt.Format("Jan 02, 2006 15:04"))
	return b.String()
}

// Summary renders the dashboard: total outstanding, status counts and the
// overdue and due-soon properties.
func Summary(bills []model.PropertyBill) string {
	if len(bills) == 0 {
		return "No properties tracked. Use /add to get started."
	}

	s := Summarize(bills)

	var b strings.Builder
	b.WriteString("📊 *Bill Summary Dashboard*\n\n")
	fmt.Fprintf(&b, "💰 *Total Outstanding:* %s\n\n", Money(s.TotalDue))
	b.WriteString("*Status Breakdown:*\n")
	fmt.Fprintf(&b, "🔴 Overdue: %d\n", len(s.Overdue))
	fmt.Fprintf(&b, "🟡 Due Soon: %d\n", len(s.DueSoon))
	fmt.Fprintf(&b, "🟢 Current: %d\n", s.Current)
	fmt.Fprintf(&b, "📍 Total Properties: %d\n", s.Properties)

	if len(s.Overdue) > 0 {
		b.WriteString("\n*⚠️ Overdue Bills:*\n")
		for _, pb := range s.Overdue {
			fmt.Fprintf(&b, "• %s: %s\n", pb.Property.Address, Money(pb.Latest.AmountDue))
		}
	}
	if len(s.DueSoon) > 0 {
		b.WriteString("\n*⏰ Due Soon:*\n")
		for _, pb := range s.DueSoon {
			fmt.Fprintf(&b, "• %s: Due %s\n", pb.Property.Address, Date(pb.Latest.DueDate))
		}
	}
	return b.String()
}

// OverdueList renders every overdue bill with how long ago it was due.
func OverdueList(bills []model.PropertyBill, today time.Time) string {
	var overdue []model.PropertyBill
	for _, pb := range bills {
		if pb.Status() == model.StatusOverdue {
			overdue = append(overdue, pb)
		}
	}
	if len(overdue) == 0 {
		return "✅ No overdue bills! You're all caught up."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔴 *Overdue Bills (%d)*\n\n", len(overdue))
	var total model.Cents
	for _, pb := range overdue {
		late := 0
		if pb.Latest.HasDueDate() {
			late = model.DaysBetween(pb.Latest.DueDate, today)
		}
		total += pb.Latest.AmountDue

		fmt.Fprintf(&b, "*%s*\n", pb.Property.Address)
		fmt.Fprintf(&b, "Amount: %s\n", Money(pb.Latest.AmountDue))
		fmt.Fprintf(&b, "Due: %s (%d days ago)\n\n", Date(pb.Latest.DueDate), late)
	}
	fmt.Fprintf(&b, "*Total Overdue: %s*", Money(total))
	return b.String()
}

// Test is the message sent by /notify.
func Test(userID int64) string {
	return fmt.Sprintf("🔔 *Test Notification*\n\n"+
		"✅ Notifications are working!\n\n"+
		"*Your Telegram ID:* `%d`\n"+
		"_Set ADMIN_TELEGRAM_ID to this ID to receive scheduled alerts._", userID)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
