package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bluedeer/waterbill/internal/model"
)

// AddTenant stores a tenant and sets its ID.
func (s *SQLStore) AddTenant(ctx context.Context, t *model.Tenant) error {
	id, err := s.insert(ctx, `
	INSERT INTO tenants (property_id, name, phone, email, is_primary, is_active,
		is_section8, lease_start_date, current_rent, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.PropertyID, t.Name, t.Phone, t.Email, t.Primary, t.Active,
		t.Section8, nullDate(t.LeaseStart), nullCents(t.CurrentRent), formatTimestamp(s.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}
	t.ID = id
	return nil
}

// ListSection8Tenants returns active Section 8 tenants of active properties
// that have a lease start date.
func (s *SQLStore) ListSection8Tenants(ctx context.Context) ([]model.TenantRecert, error) {
	rows, err := s.query(ctx, `
	SELECT t.id, t.property_id, t.name, t.phone, t.email, t.is_primary, t.is_active,
		t.is_section8, t.lease_start_date, t.current_rent, p.address
	FROM tenants t
	JOIN properties p ON p.id = t.property_id
	WHERE t.is_active AND t.is_section8 AND p.is_active AND t.lease_start_date IS NOT NULL
	ORDER BY t.lease_start_date, t.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var out []model.TenantRecert
	for rows.Next() {
		var (
			tr    model.TenantRecert
			lease sql.NullString
			rent  sql.NullInt64
		)
		t := &tr.Tenant
		if err := rows.Scan(&t.ID, &t.PropertyID, &t.Name, &t.Phone, &t.Email, &t.Primary,
			&t.Active, &t.Section8, &lease, &rent, &tr.PropertyAddress); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		if lease.Valid {
			t.LeaseStart = parseDate(lease.String)
		}
		if rent.Valid {
			c := model.Cents(rent.Int64)
			t.CurrentRent = &c
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
