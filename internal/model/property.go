package model

import (
	"strings"
	"time"
)

// PendingAddressPrefix marks a property whose address has not been looked up yet.
// The refresh run replaces such addresses with the one shown on the portal.
const PendingAddressPrefix = "Pending"

// Property is a rental property tracked by its utility account number.
type Property struct {
	ID            int64     `json:"id"`
	Address       string    `json:"address"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	ZipCode       string    `json:"zip_code,omitempty"`
	AccountNumber string    `json:"account_number"`
	OwnerName     string    `json:"owner_name,omitempty"`
	TenantName    string    `json:"tenant_name,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewPendingProperty returns an active property that only knows its account number.
func NewPendingProperty(accountNumber string) *Property {
	return &Property{
		AccountNumber: accountNumber,
		Address:       PendingAddress(accountNumber),
		Active:        true,
	}
}

// PendingAddress returns the placeholder address used until the first lookup.
func PendingAddress(accountNumber string) string {
	return "Pending lookup: " + accountNumber
}

// AddressPending reports whether the address is still a placeholder.
func (p *Property) AddressPending() bool {
	return p.Address == "" || strings.HasPrefix(p.Address, PendingAddressPrefix)
}

// WaterBill is one snapshot of a property's utility balance as shown on the portal.
// Optional amounts are nil when the portal did not show them.
type WaterBill struct {
	ID               int64      `json:"id"`
	PropertyID       int64      `json:"property_id"`
	AmountDue        Cents      `json:"amount_due"`
	PreviousBalance  *Cents     `json:"previous_balance,omitempty"`
	CurrentCharges   *Cents     `json:"current_charges,omitempty"`
	LateFees         *Cents     `json:"late_fees,omitempty"`
	PaymentsReceived *Cents     `json:"payments_received,omitempty"`
	StatementDate    time.Time  `json:"statement_date,omitzero"`
	DueDate          time.Time  `json:"due_date,omitzero"`
	UsageGallons     *int64     `json:"usage_gallons,omitempty"`
	Status           BillStatus `json:"status"`
	ScrapedAt        time.Time  `json:"scraped_at"`
	RawData          string     `json:"-"`
}

// HasDueDate reports whether the portal showed a due date.
func (b *WaterBill) HasDueDate() bool {
	return !b.DueDate.IsZero()
}

// DaysUntilDue returns the days from today to the due date.
// The second result is false when the due date is unknown.
func (b *WaterBill) DaysUntilDue(today time.Time) (int, bool) {
	if !b.HasDueDate() {
		return 0, false
	}
	return DaysBetween(today, b.DueDate), true
}

// PropertyBill pairs a property with its most recent bill, which may be nil.
type PropertyBill struct {
	Property Property   `json:"property"`
	Latest   *WaterBill `json:"latest,omitempty"`
}

// Status returns the latest bill's status, or StatusUnknown without a bill.
func (pb PropertyBill) Status() BillStatus {
	if pb.Latest == nil {
		return StatusUnknown
	}
	return pb.Latest.Status
}

// StatusEmoji returns the indicator for the latest bill.
func (pb PropertyBill) StatusEmoji() string {
	return pb.Status().Emoji()
}
