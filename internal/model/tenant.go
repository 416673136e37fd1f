package model

import "time"

// RecertMonths is the number of months after lease start at which a
// Section 8 tenant becomes eligible for recertification.
const RecertMonths = 9

// Tenant is an occupant of a property.
type Tenant struct {
	ID          int64     `json:"id"`
	PropertyID  int64     `json:"property_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Primary     bool      `json:"primary"`
	Active      bool      `json:"active"`
	Section8    bool      `json:"section8"`
	LeaseStart  time.Time `json:"lease_start,omitzero"`
	CurrentRent *Cents    `json:"current_rent,omitempty"`
}

// RecertDate returns the date the tenant becomes eligible for recertification.
// The second result is false when the lease start is unknown.
func (t *Tenant) RecertDate() (time.Time, bool) {
	if t.LeaseStart.IsZero() {
		return time.Time{}, false
	}
	return AddMonths(Date(t.LeaseStart), RecertMonths), true
}

// TenantRecert is a Section 8 tenant together with the address of the property.
type TenantRecert struct {
	Tenant          Tenant `json:"tenant"`
	PropertyAddress string `json:"property_address"`
}
